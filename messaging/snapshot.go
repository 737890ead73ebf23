// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/secret"
)

// Snapshot is the persistent part of a session: enough to resume
// syncing in a later process without logging in again. The token fields
// are plaintext; call Zero once the snapshot has been written or
// restored.
type Snapshot struct {
	HomeserverURL string `cbor:"homeserver_url"`
	UserID        string `cbor:"user_id"`
	DeviceID      string `cbor:"device_id"`
	AccessToken   []byte `cbor:"access_token"`
	RefreshToken  []byte `cbor:"refresh_token,omitempty"`
	// TokenExpiryMillis is the expiry as Unix milliseconds, 0 when the
	// token does not expire.
	TokenExpiryMillis int64  `cbor:"token_expiry_ms,omitempty"`
	SyncCursor        string `cbor:"sync_cursor,omitempty"`
	MasterUserID      string `cbor:"master_user_id,omitempty"`
	MasterRoomID      string `cbor:"master_room_id,omitempty"`
}

// Zero overwrites the token bytes.
func (s *Snapshot) Zero() {
	secret.Zero(s.AccessToken)
	secret.Zero(s.RefreshToken)
	s.AccessToken = nil
	s.RefreshToken = nil
}

// Snapshot captures the current session. The caller owns the returned
// token bytes.
func (c *Client) Snapshot() *Snapshot {
	snapshot := &Snapshot{
		HomeserverURL: c.session.homeserverURL,
		UserID:        c.session.userID,
		DeviceID:      c.DeviceID(),
		AccessToken:   append([]byte(nil), c.session.accessToken.Bytes()...),
		SyncCursor:    c.session.syncCursor,
		MasterUserID:  c.session.masterUserID,
		MasterRoomID:  c.session.masterRoomID,
	}
	if c.session.refreshToken.Len() > 0 {
		snapshot.RefreshToken = append([]byte(nil), c.session.refreshToken.Bytes()...)
	}
	if !c.session.tokenExpiryAt.IsZero() {
		snapshot.TokenExpiryMillis = c.session.tokenExpiryAt.UnixMilli()
	}
	return snapshot
}

// Restore replaces the session with snapshot. The token bytes are moved
// into protected memory and zeroed in the snapshot. Pending events and
// the upload cache are left alone.
func (c *Client) Restore(snapshot *Snapshot) error {
	if snapshot.HomeserverURL == "" {
		return fmt.Errorf("messaging: restore: snapshot has no homeserver URL")
	}
	if len(snapshot.AccessToken) == 0 {
		return fmt.Errorf("messaging: restore: %w: snapshot has no access token", ErrNotAuthenticated)
	}

	accessToken, err := secret.NewFromBytes(snapshot.AccessToken)
	if err != nil {
		return fmt.Errorf("messaging: restore: protecting access token: %w", err)
	}
	var refreshToken *secret.Buffer
	if len(snapshot.RefreshToken) > 0 {
		refreshToken, err = secret.NewFromBytes(snapshot.RefreshToken)
		if err != nil {
			accessToken.Close()
			return fmt.Errorf("messaging: restore: protecting refresh token: %w", err)
		}
	}
	snapshot.Zero()

	if err := c.session.clear(); err != nil {
		c.logger.Debug("releasing previous tokens", "error", err)
	}
	c.session = session{
		homeserverURL: snapshot.HomeserverURL,
		userID:        snapshot.UserID,
		deviceID:      snapshot.DeviceID,
		accessToken:   accessToken,
		refreshToken:  refreshToken,
		syncCursor:    snapshot.SyncCursor,
		masterUserID:  snapshot.MasterUserID,
		masterRoomID:  snapshot.MasterRoomID,
	}
	if snapshot.TokenExpiryMillis != 0 {
		c.session.tokenExpiryAt = time.UnixMilli(snapshot.TokenExpiryMillis)
	}

	c.logger.Info("session restored",
		"user_id", snapshot.UserID,
		"homeserver", snapshot.HomeserverURL,
		"resumed_sync", snapshot.SyncCursor != "",
	)
	return nil
}
