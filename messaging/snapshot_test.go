// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/wire/wiretest"
)

func TestSnapshotRestore(t *testing.T) {
	source, _, fakeClock := newTestClient(t)
	expiry := fakeClock.Now().Add(time.Hour)
	restoreSession(t, source, expiry, "s42")
	source.SetMasterUserID("@boss:example.org")
	source.session.masterRoomID = "!dm:example.org"

	snapshot := source.Snapshot()
	if snapshot.TokenExpiryMillis != expiry.UnixMilli() {
		t.Errorf("expiry millis = %d, want %d", snapshot.TokenExpiryMillis, expiry.UnixMilli())
	}

	target, conn, _ := newTestClient(t, wiretest.JSON(200, emptySync))
	if err := target.Restore(snapshot); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if snapshot.AccessToken != nil || snapshot.RefreshToken != nil {
		t.Error("Restore left token bytes in the snapshot")
	}

	if target.HomeserverURL() != testHomeserver || target.UserID() != testUserID || target.DeviceID() != testDeviceID {
		t.Errorf("identity = %s %s %s", target.HomeserverURL(), target.UserID(), target.DeviceID())
	}
	if target.SyncCursor() != "s42" || target.MasterUserID() != "@boss:example.org" || target.MasterRoomID() != "!dm:example.org" {
		t.Errorf("state = %q %q %q", target.SyncCursor(), target.MasterUserID(), target.MasterRoomID())
	}
	if !target.TokenExpiry().Equal(expiry) {
		t.Errorf("expiry = %v, want %v", target.TokenExpiry(), expiry)
	}

	if err := target.Sync(context.Background()); err != nil {
		t.Fatalf("Sync after restore: %v", err)
	}
	request, _ := parseRequest(t, conn, 0)
	assertAuth(t, request, "T1")
	if request.URL.Query().Get("since") != "s42" {
		t.Errorf("since = %q, want s42", request.URL.Query().Get("since"))
	}
}

func TestSnapshotUnauthenticated(t *testing.T) {
	client, _, _ := newTestClient(t)
	snapshot := client.Snapshot()
	if snapshot.AccessToken != nil || snapshot.RefreshToken != nil || snapshot.TokenExpiryMillis != 0 {
		t.Errorf("snapshot = %+v, want no tokens", snapshot)
	}
}

func TestRestoreRejectsIncompleteSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		wantErr  error
	}{
		{"no homeserver", Snapshot{AccessToken: []byte("T1")}, nil},
		{"no access token", Snapshot{HomeserverURL: testHomeserver}, ErrNotAuthenticated},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, _, _ := newTestClient(t)
			err := client.Restore(&test.snapshot)
			if err == nil {
				t.Fatal("Restore succeeded")
			}
			if test.wantErr != nil && !errors.Is(err, test.wantErr) {
				t.Errorf("error = %v, want %v", err, test.wantErr)
			}
			if client.IsAuthenticated() {
				t.Error("client authenticated after failed restore")
			}
		})
	}
}
