// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bureau-foundation/matrixwire/lib/secret"
)

// Discover resolves the homeserver base URL for userID through the
// server's /.well-known/matrix/client document. The server name is
// everything after the first ':' of the user ID. Failure is soft: it is
// logged and returned as ErrDiscoveryFailed so the caller can fall back
// to a configured host.
func (c *Client) Discover(ctx context.Context, userID string) (string, error) {
	_, serverName, found := strings.Cut(userID, ":")
	if !found || serverName == "" {
		err := fmt.Errorf("messaging: discover: %w: user ID %q has no server name", ErrDiscoveryFailed, userID)
		c.logger.Info("homeserver discovery skipped", "user_id", userID, "error", err)
		return "", err
	}

	result, err := c.call(ctx, callRequest{
		method: http.MethodGet,
		url:    "https://" + serverName + "/.well-known/matrix/client",
	})
	if err != nil {
		err = fmt.Errorf("messaging: discover %s: %w: %w", serverName, ErrDiscoveryFailed, err)
		c.logger.Info("homeserver discovery failed", "server_name", serverName, "error", err)
		return "", err
	}

	baseURL := strings.TrimRight(result.field("m.homeserver", "base_url"), "/")
	if baseURL == "" {
		err := result.failure(ErrDiscoveryFailed, "discover "+serverName, "m.homeserver.base_url")
		c.logger.Info("homeserver discovery failed",
			"server_name", serverName,
			"error", err,
			"body", string(result.response.Body),
		)
		return "", err
	}

	c.logger.Debug("homeserver discovered", "server_name", serverName, "base_url", baseURL)
	return baseURL, nil
}

// Login authenticates userID with a password and seeds the session. The
// homeserver comes from Discover, or https://<fallbackHost> when
// discovery fails. The sync cursor survives a re-login to the same
// homeserver and is cleared when the homeserver changes.
//
// The password is borrowed and not closed.
func (c *Client) Login(ctx context.Context, userID string, password *secret.Buffer, fallbackHost string) error {
	err := c.login(ctx, userID, password, fallbackHost)
	c.recorder.ObserveLogin(err)
	return err
}

func (c *Client) login(ctx context.Context, userID string, password *secret.Buffer, fallbackHost string) error {
	if c.deviceID == "" {
		return fmt.Errorf("messaging: login: %w: no device ID configured", ErrLoginFailed)
	}

	homeserverURL, err := c.Discover(ctx, userID)
	if err != nil {
		if fallbackHost == "" {
			return fmt.Errorf("messaging: login: %w: discovery failed and no fallback host: %w", ErrLoginFailed, err)
		}
		homeserverURL = "https://" + strings.TrimRight(fallbackHost, "/")
		c.logger.Info("using fallback homeserver", "homeserver", homeserverURL)
	}

	payload := map[string]any{
		"type": "m.login.password",
		"identifier": map[string]string{
			"type": "m.id.user",
			"user": userID,
		},
		"password":      password.String(),
		"device_id":     c.deviceID,
		"refresh_token": true,
	}
	if c.deviceDisplayName != "" {
		payload["initial_device_display_name"] = c.deviceDisplayName
	}

	result, err := c.call(ctx, callRequest{
		method:  http.MethodPost,
		url:     homeserverURL + "/_matrix/client/v3/login",
		payload: payload,
	})
	if err != nil {
		return fmt.Errorf("messaging: login as %s: %w: %w", userID, ErrLoginFailed, err)
	}

	accessToken := result.field("access_token")
	if accessToken == "" {
		c.logger.Error("login response has no access_token",
			"user_id", userID,
			"status", result.response.StatusCode(),
			"body", string(result.response.Body),
		)
		return result.failure(ErrLoginFailed, "login as "+userID, "access_token")
	}

	issuedAt := c.clock.Now()
	if c.session.homeserverURL != homeserverURL {
		c.session.syncCursor = ""
	}
	if err := c.session.clear(); err != nil {
		c.logger.Debug("releasing previous tokens", "error", err)
	}
	if err := c.session.setAccessToken(accessToken); err != nil {
		return fmt.Errorf("messaging: login as %s: %w: %w", userID, ErrLoginFailed, err)
	}
	if err := c.session.setRefreshToken(result.field("refresh_token")); err != nil {
		return fmt.Errorf("messaging: login as %s: %w: %w", userID, ErrLoginFailed, err)
	}
	c.session.homeserverURL = homeserverURL
	c.session.tokenExpiryAt = expiryFrom(issuedAt, result.document.Uint(0, "expires_in_ms"))
	c.session.userID = result.field("user_id")
	if c.session.userID == "" {
		c.session.userID = userID
	}
	c.session.deviceID = result.field("device_id")
	if c.session.deviceID == "" {
		c.session.deviceID = c.deviceID
	}

	c.logger.Info("logged in",
		"user_id", c.session.userID,
		"device_id", c.session.deviceID,
		"homeserver", homeserverURL,
		"refreshable", c.session.refreshToken.Len() > 0,
	)
	return nil
}
