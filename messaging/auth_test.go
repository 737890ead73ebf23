// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/matrixwire/lib/clock"
	"github.com/bureau-foundation/matrixwire/lib/secret"
	"github.com/bureau-foundation/matrixwire/lib/wire/wiretest"
)

const wellKnown = `{"m.homeserver":{"base_url":"https://hs.example.org/"}}`

func testPassword(t *testing.T) *secret.Buffer {
	t.Helper()
	password, err := secret.NewFromString("hunter2")
	if err != nil {
		t.Fatalf("secret.NewFromString: %v", err)
	}
	t.Cleanup(func() { password.Close() })
	return password
}

func TestLoginSeedsSession(t *testing.T) {
	client, conn, fakeClock := newTestClient(t,
		wiretest.JSON(200, wellKnown),
		wiretest.JSON(200, `{"access_token":"T1","refresh_token":"R1","expires_in_ms":600000,"user_id":"@bot:example.org","device_id":"0A1B2C3D4E5F"}`),
	)
	client.deviceDisplayName = "matrixwire test"

	if err := client.Login(context.Background(), testUserID, testPassword(t), "fallback.example.org"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	assertRequestCount(t, conn, 2)
	if host := conn.Requests()[0].Host; host != "example.org" {
		t.Errorf("discovery host = %q, want example.org", host)
	}
	discovery, _ := parseRequest(t, conn, 0)
	if discovery.Method != "GET" || discovery.URL.Path != "/.well-known/matrix/client" {
		t.Errorf("discovery = %s %s", discovery.Method, discovery.URL.Path)
	}
	assertAuth(t, discovery, "")

	if host := conn.Requests()[1].Host; host != "hs.example.org" {
		t.Errorf("login host = %q, want hs.example.org", host)
	}
	login, body := parseRequest(t, conn, 1)
	if login.Method != "POST" || login.URL.Path != "/_matrix/client/v3/login" {
		t.Errorf("login = %s %s", login.Method, login.URL.Path)
	}
	assertAuth(t, login, "")
	if body["type"] != "m.login.password" {
		t.Errorf("type = %v", body["type"])
	}
	identifier, _ := body["identifier"].(map[string]any)
	if identifier["type"] != "m.id.user" || identifier["user"] != testUserID {
		t.Errorf("identifier = %v", body["identifier"])
	}
	if body["password"] != "hunter2" {
		t.Errorf("password = %v", body["password"])
	}
	if body["device_id"] != testDeviceID {
		t.Errorf("device_id = %v", body["device_id"])
	}
	if body["refresh_token"] != true {
		t.Errorf("refresh_token = %v, want true", body["refresh_token"])
	}
	if body["initial_device_display_name"] != "matrixwire test" {
		t.Errorf("initial_device_display_name = %v", body["initial_device_display_name"])
	}

	if client.HomeserverURL() != "https://hs.example.org" {
		t.Errorf("homeserver = %q", client.HomeserverURL())
	}
	snapshot := client.Snapshot()
	defer snapshot.Zero()
	if string(snapshot.AccessToken) != "T1" || string(snapshot.RefreshToken) != "R1" {
		t.Errorf("tokens = %q/%q, want T1/R1", snapshot.AccessToken, snapshot.RefreshToken)
	}
	if want := fakeClock.Now().Add(600000 * time.Millisecond); !client.TokenExpiry().Equal(want) {
		t.Errorf("expiry = %v, want %v", client.TokenExpiry(), want)
	}
	if client.UserID() != testUserID || client.DeviceID() != testDeviceID {
		t.Errorf("identity = %s/%s", client.UserID(), client.DeviceID())
	}
}

func TestLoginNeverLogsSecrets(t *testing.T) {
	sink := &recordingSink{}
	conn := wiretest.New(
		wiretest.JSON(200, wellKnown),
		wiretest.JSON(200, `{"access_token":"syt_access_value","refresh_token":"syr_refresh_value"}`),
	)
	client, err := NewClient(ClientConfig{
		Conn:     conn,
		Clock:    clock.FakeAutoAdvance(epoch),
		Logger:   NewSinkLogger(sink.sink),
		LogLevel: SeverityDebug,
		DeviceID: testDeviceID,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.Login(context.Background(), testUserID, testPassword(t), ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sink.count() == 0 {
		t.Fatal("no log lines at debug level")
	}
	for _, secretValue := range []string{"hunter2", "syt_access_value", "syr_refresh_value"} {
		if sink.contains(secretValue) {
			t.Errorf("log output contains %q", secretValue)
		}
	}
}

func TestLoginFallsBackWhenDiscoveryFails(t *testing.T) {
	tests := []struct {
		name      string
		discovery wiretest.Reply
	}{
		{"not found", wiretest.JSON(404, `{"errcode":"M_NOT_FOUND","error":"no well-known"}`)},
		{"no base url", wiretest.JSON(200, `{"m.identity_server":{"base_url":"https://id.example.org"}}`)},
		{"not json", wiretest.JSON(200, `<html></html>`)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, conn, _ := newTestClient(t,
				test.discovery,
				wiretest.JSON(200, `{"access_token":"T1"}`),
			)
			if err := client.Login(context.Background(), testUserID, testPassword(t), "fallback.example.org"); err != nil {
				t.Fatalf("Login: %v", err)
			}
			assertRequestCount(t, conn, 2)
			if host := conn.Requests()[1].Host; host != "fallback.example.org" {
				t.Errorf("login host = %q, want fallback.example.org", host)
			}
			if client.HomeserverURL() != "https://fallback.example.org" {
				t.Errorf("homeserver = %q", client.HomeserverURL())
			}
			if !client.TokenExpiry().IsZero() {
				t.Errorf("expiry = %v, want none", client.TokenExpiry())
			}
		})
	}
}

func TestLoginWithoutFallbackFailsAfterDiscovery(t *testing.T) {
	client, conn, _ := newTestClient(t, wiretest.JSON(404, `{"errcode":"M_NOT_FOUND"}`))
	err := client.Login(context.Background(), testUserID, testPassword(t), "")
	if !errors.Is(err, ErrLoginFailed) || !errors.Is(err, ErrDiscoveryFailed) {
		t.Fatalf("Login error = %v, want ErrLoginFailed wrapping ErrDiscoveryFailed", err)
	}
	assertRequestCount(t, conn, 1)
}

func TestLoginRejected(t *testing.T) {
	client, _, _ := newTestClient(t,
		wiretest.JSON(200, wellKnown),
		wiretest.JSON(403, `{"errcode":"M_FORBIDDEN","error":"Invalid password"}`),
	)
	recorder := newRecordingRecorder()
	client.recorder = recorder

	err := client.Login(context.Background(), testUserID, testPassword(t), "")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("Login error = %v, want ErrLoginFailed", err)
	}
	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) {
		t.Fatalf("error %v does not wrap *MatrixError", err)
	}
	if matrixErr.Code != ErrCodeForbidden || matrixErr.StatusCode != 403 || matrixErr.Message != "Invalid password" {
		t.Errorf("MatrixError = %+v", matrixErr)
	}
	if client.IsAuthenticated() {
		t.Error("client authenticated after rejected login")
	}
	if len(recorder.logins) != 1 || recorder.logins[0] == nil {
		t.Errorf("login observations = %v", recorder.logins)
	}
}

func TestLoginRequiresDeviceID(t *testing.T) {
	client, conn, _ := newTestClient(t)
	client.deviceID = ""
	if err := client.Login(context.Background(), testUserID, testPassword(t), "example.org"); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("Login error = %v, want ErrLoginFailed", err)
	}
	assertRequestCount(t, conn, 0)
}

func TestReloginCursorHandling(t *testing.T) {
	tests := []struct {
		name       string
		baseURL    string
		wantCursor string
	}{
		{"same homeserver keeps cursor", testHomeserver, "s1"},
		{"new homeserver clears cursor", "https://other.example.org", ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, _, _ := newSessionClient(t, "s1",
				wiretest.JSON(200, `{"m.homeserver":{"base_url":"`+test.baseURL+`"}}`),
				wiretest.JSON(200, `{"access_token":"T9"}`),
			)
			if err := client.Login(context.Background(), testUserID, testPassword(t), ""); err != nil {
				t.Fatalf("Login: %v", err)
			}
			if client.SyncCursor() != test.wantCursor {
				t.Errorf("cursor = %q, want %q", client.SyncCursor(), test.wantCursor)
			}
			snapshot := client.Snapshot()
			if string(snapshot.AccessToken) != "T9" || snapshot.RefreshToken != nil {
				t.Errorf("tokens = %q/%q, want T9 and no refresh token", snapshot.AccessToken, snapshot.RefreshToken)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	t.Run("user without server name", func(t *testing.T) {
		client, conn, _ := newTestClient(t)
		if _, err := client.Discover(context.Background(), "bot"); !errors.Is(err, ErrDiscoveryFailed) {
			t.Fatalf("Discover error = %v, want ErrDiscoveryFailed", err)
		}
		assertRequestCount(t, conn, 0)
	})

	t.Run("server name after first colon", func(t *testing.T) {
		client, conn, _ := newTestClient(t, wiretest.JSON(200, wellKnown))
		baseURL, err := client.Discover(context.Background(), "@bot:example.org:8448")
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if baseURL != "https://hs.example.org" {
			t.Errorf("base URL = %q", baseURL)
		}
		if host := conn.Requests()[0].Host; host != "example.org:8448" {
			t.Errorf("host = %q, want example.org:8448", host)
		}
	})

	t.Run("connection failure", func(t *testing.T) {
		client, _, _ := newTestClient(t, wiretest.Reply{ConnectErr: errors.New("refused")})
		if _, err := client.Discover(context.Background(), testUserID); !errors.Is(err, ErrDiscoveryFailed) {
			t.Fatalf("Discover error = %v, want ErrDiscoveryFailed", err)
		}
	})
}
