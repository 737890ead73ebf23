// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/secret"
)

// RefreshMargin is how long before expiry a token is considered
// expired. It absorbs clock skew and request latency.
const RefreshMargin = 10 * time.Second

// session is the client's authentication and sync state. Tokens live in
// protected memory; a nil buffer means "none".
type session struct {
	homeserverURL string
	userID        string
	deviceID      string
	accessToken   *secret.Buffer
	refreshToken  *secret.Buffer
	// tokenExpiryAt is the zero time when the token does not expire.
	tokenExpiryAt time.Time
	syncCursor    string
	masterUserID  string
	masterRoomID  string
}

// setAccessToken replaces the access token, releasing the old one.
func (s *session) setAccessToken(token string) error {
	buffer, err := secret.NewFromString(token)
	if err != nil {
		return fmt.Errorf("protecting access token: %w", err)
	}
	s.accessToken.Close()
	s.accessToken = buffer
	return nil
}

// setRefreshToken replaces the refresh token, releasing the old one.
func (s *session) setRefreshToken(token string) error {
	buffer, err := secret.NewFromString(token)
	if err != nil {
		return fmt.Errorf("protecting refresh token: %w", err)
	}
	s.refreshToken.Close()
	s.refreshToken = buffer
	return nil
}

// clear drops the token set. Room and cursor state are kept.
func (s *session) clear() error {
	err := errors.Join(s.accessToken.Close(), s.refreshToken.Close())
	s.accessToken = nil
	s.refreshToken = nil
	s.tokenExpiryAt = time.Time{}
	return err
}

// expiryFrom converts an expires_in_ms value into an absolute expiry.
// Zero means the token does not expire.
func expiryFrom(now time.Time, expiresInMs uint64) time.Time {
	if expiresInMs == 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(expiresInMs) * time.Millisecond)
}

// ensureValidToken is called before every authenticated exchange. It
// refreshes the token once it is within RefreshMargin of expiry.
func (c *Client) ensureValidToken(ctx context.Context) error {
	if c.session.accessToken.Len() == 0 {
		return ErrNotAuthenticated
	}
	if c.session.tokenExpiryAt.IsZero() {
		return nil
	}
	if c.clock.Now().Before(c.session.tokenExpiryAt.Add(-RefreshMargin)) {
		return nil
	}
	c.logger.Debug("access token near expiry, refreshing",
		"expires_at", c.session.tokenExpiryAt,
	)
	return c.refresh(ctx)
}

// Refresh exchanges the refresh token for a new access token. On
// failure the existing tokens are left untouched and ErrRefreshFailed
// is returned; there is no retry and no automatic re-login.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

func (c *Client) refresh(ctx context.Context) error {
	err := c.doRefresh(ctx)
	c.recorder.ObserveRefresh(err)
	if err != nil {
		c.logger.Error("token refresh failed", "error", err)
	}
	return err
}

func (c *Client) doRefresh(ctx context.Context) error {
	if c.session.refreshToken.Len() == 0 {
		return fmt.Errorf("messaging: refresh: %w: no refresh token held", ErrRefreshFailed)
	}

	result, err := c.call(ctx, callRequest{
		method:        http.MethodPost,
		url:           c.session.homeserverURL + "/_matrix/client/v3/refresh",
		payload:       map[string]string{"refresh_token": c.session.refreshToken.String()},
		authenticated: true,
	})
	if err != nil {
		return fmt.Errorf("messaging: refresh: %w: %w", ErrRefreshFailed, err)
	}

	accessToken := result.field("access_token")
	if accessToken == "" {
		c.logger.Error("refresh response has no access_token",
			"status", result.response.StatusCode(),
			"body", string(result.response.Body),
		)
		return result.failure(ErrRefreshFailed, "refresh", "access_token")
	}

	issuedAt := c.clock.Now()
	if err := c.session.setAccessToken(accessToken); err != nil {
		return fmt.Errorf("messaging: refresh: %w: %w", ErrRefreshFailed, err)
	}
	if refreshToken := result.field("refresh_token"); refreshToken != "" {
		if err := c.session.setRefreshToken(refreshToken); err != nil {
			return fmt.Errorf("messaging: refresh: %w: %w", ErrRefreshFailed, err)
		}
	}
	if result.document.Has("expires_in_ms") {
		c.session.tokenExpiryAt = expiryFrom(issuedAt, result.document.Uint(0, "expires_in_ms"))
	}

	c.logger.Info("access token refreshed",
		"user_id", c.session.userID,
		"expires_at", c.session.tokenExpiryAt,
	)
	return nil
}
