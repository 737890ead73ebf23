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

const emptySync = `{"next_batch":"s2"}`

func TestEnsureValidTokenBoundary(t *testing.T) {
	tests := []struct {
		name        string
		expiresIn   time.Duration
		wantRefresh bool
	}{
		{"exactly at margin", 10000 * time.Millisecond, true},
		{"one millisecond outside margin", 10001 * time.Millisecond, false},
		{"already expired", -time.Second, true},
		{"far from expiry", time.Hour, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, conn, fakeClock := newTestClient(t)
			restoreSession(t, client, fakeClock.Now().Add(test.expiresIn), "s1")
			if test.wantRefresh {
				conn.Enqueue(wiretest.JSON(200, `{"access_token":"T2","expires_in_ms":600000}`))
			}
			conn.Enqueue(wiretest.JSON(200, emptySync))

			if err := client.Sync(context.Background()); err != nil {
				t.Fatalf("Sync: %v", err)
			}

			if !test.wantRefresh {
				assertRequestCount(t, conn, 1)
				request, _ := parseRequest(t, conn, 0)
				if request.URL.Path != "/_matrix/client/v3/sync" {
					t.Errorf("path = %q, want sync", request.URL.Path)
				}
				assertAuth(t, request, "T1")
				return
			}

			assertRequestCount(t, conn, 2)
			refresh, body := parseRequest(t, conn, 0)
			if refresh.Method != "POST" || refresh.URL.Path != "/_matrix/client/v3/refresh" {
				t.Errorf("first request = %s %s, want POST refresh", refresh.Method, refresh.URL.Path)
			}
			assertAuth(t, refresh, "T1")
			if body["refresh_token"] != "R1" {
				t.Errorf("refresh_token = %v, want R1", body["refresh_token"])
			}
			sync, _ := parseRequest(t, conn, 1)
			assertAuth(t, sync, "T2")
			if want := fakeClock.Now().Add(600000 * time.Millisecond); !client.TokenExpiry().Equal(want) {
				t.Errorf("expiry = %v, want %v", client.TokenExpiry(), want)
			}
		})
	}
}

func TestNonExpiringTokenNeverRefreshes(t *testing.T) {
	client, conn, fakeClock := newSessionClient(t, "s1", wiretest.JSON(200, emptySync))
	fakeClock.Advance(365 * 24 * time.Hour)

	if err := client.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	assertRequestCount(t, conn, 1)
}

func TestRefreshRotatesOrKeepsRefreshToken(t *testing.T) {
	t.Run("rotated", func(t *testing.T) {
		client, _, _ := newSessionClient(t, "",
			wiretest.JSON(200, `{"access_token":"T2","refresh_token":"R2","expires_in_ms":1000}`))
		if err := client.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		snapshot := client.Snapshot()
		if string(snapshot.AccessToken) != "T2" || string(snapshot.RefreshToken) != "R2" {
			t.Errorf("tokens = %q/%q, want T2/R2", snapshot.AccessToken, snapshot.RefreshToken)
		}
	})

	t.Run("kept", func(t *testing.T) {
		client, _, fakeClock := newTestClient(t, wiretest.JSON(200, `{"access_token":"T2"}`))
		expiry := fakeClock.Now().Add(5 * time.Second)
		restoreSession(t, client, expiry, "")
		if err := client.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		snapshot := client.Snapshot()
		if string(snapshot.AccessToken) != "T2" || string(snapshot.RefreshToken) != "R1" {
			t.Errorf("tokens = %q/%q, want T2/R1", snapshot.AccessToken, snapshot.RefreshToken)
		}
		if !client.TokenExpiry().Equal(expiry) {
			t.Errorf("expiry = %v, want prior %v kept when expires_in_ms is absent", client.TokenExpiry(), expiry)
		}
	})
}

func TestRefreshFailureLeavesTokens(t *testing.T) {
	client, conn, fakeClock := newTestClient(t,
		wiretest.JSON(401, `{"errcode":"M_UNKNOWN_TOKEN","error":"refresh token revoked"}`))
	recorder := newRecordingRecorder()
	client.recorder = recorder
	expiry := fakeClock.Now().Add(5 * time.Second)
	restoreSession(t, client, expiry, "s1")

	err := client.Sync(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("Sync error = %v, want ErrRefreshFailed", err)
	}
	if !IsMatrixError(err, ErrCodeUnknownToken) {
		t.Errorf("error %v does not carry M_UNKNOWN_TOKEN", err)
	}
	assertRequestCount(t, conn, 1)

	snapshot := client.Snapshot()
	if string(snapshot.AccessToken) != "T1" || string(snapshot.RefreshToken) != "R1" {
		t.Errorf("tokens = %q/%q, want stale T1/R1 left in place", snapshot.AccessToken, snapshot.RefreshToken)
	}
	if !client.TokenExpiry().Equal(expiry) {
		t.Errorf("expiry changed to %v", client.TokenExpiry())
	}
	if client.SyncCursor() != "s1" {
		t.Errorf("cursor = %q, want s1", client.SyncCursor())
	}
	if len(recorder.refreshes) != 1 || recorder.refreshes[0] == nil {
		t.Errorf("refresh observations = %v, want one failure", recorder.refreshes)
	}
}

func TestRefreshUndecodableResponse(t *testing.T) {
	client, _, _ := newSessionClient(t, "", wiretest.JSON(502, `<html>bad gateway</html>`))
	err := client.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("Refresh error = %v, want ErrRefreshFailed", err)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	client, conn, fakeClock := newTestClient(t)
	err := client.Restore(&Snapshot{
		HomeserverURL:     testHomeserver,
		AccessToken:       []byte("T1"),
		TokenExpiryMillis: fakeClock.Now().UnixMilli(),
		SyncCursor:        "s1",
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if err := client.Sync(context.Background()); !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("Sync error = %v, want ErrRefreshFailed", err)
	}
	assertRequestCount(t, conn, 0)
}

func TestNotAuthenticated(t *testing.T) {
	client, conn, _ := newTestClient(t)
	ctx := context.Background()

	operations := map[string]func() error{
		"sync": func() error { return client.Sync(ctx) },
		"create room": func() error {
			_, err := client.CreateRoom(ctx, "@alice:example.org")
			return err
		},
		"send": func() error {
			_, err := client.SendMessageToRoom(ctx, "!room:example.org", "hi", MsgTypeText)
			return err
		},
		"upload": func() error {
			_, err := client.UploadMedia(ctx, "a.png", "image/png", []byte{1})
			return err
		},
		"join":    func() error { return client.JoinRoom(ctx, "!room:example.org") },
		"receipt": func() error { return client.SendReadReceipt(ctx, "!room:example.org", "$event") },
	}
	for name, operation := range operations {
		t.Run(name, func(t *testing.T) {
			if err := operation(); !errors.Is(err, ErrNotAuthenticated) {
				t.Errorf("error = %v, want ErrNotAuthenticated", err)
			}
		})
	}
	assertRequestCount(t, conn, 0)
}

func TestCloseDropsTokens(t *testing.T) {
	client, _, _ := newSessionClient(t, "s1")
	if !client.IsAuthenticated() {
		t.Fatal("client not authenticated after restore")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.IsAuthenticated() {
		t.Error("client still authenticated after Close")
	}
}
