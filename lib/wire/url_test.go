// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"testing"
)

func TestSplitURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		host string
		path string
	}{
		{"simple", "https://matrix.example.org/_matrix/client/v3/sync", "matrix.example.org", "/_matrix/client/v3/sync"},
		{"root path", "https://example.org/", "example.org", "/"},
		{"with port", "https://example.org:8448/x", "example.org:8448", "/x"},
		{"query kept", "https://example.org/sync?since=s1&timeout=5000", "example.org", "/sync?since=s1&timeout=5000"},
		{"scheme ignored", "http://example.org/a/b", "example.org", "/a/b"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			host, path, err := SplitURL(test.url)
			if err != nil {
				t.Fatalf("SplitURL(%q): %v", test.url, err)
			}
			if host != test.host || path != test.path {
				t.Errorf("SplitURL(%q) = (%q, %q), want (%q, %q)", test.url, host, path, test.host, test.path)
			}
		})
	}
}

func TestSplitURLRoundTrip(t *testing.T) {
	for _, url := range []string{
		"https://a.example/b",
		"https://host/_matrix/client/v3/rooms/%21r%3Ahost/send/m.room.message/1",
		"https://h:1/p?q=1",
	} {
		host, path, err := SplitURL(url)
		if err != nil {
			t.Fatalf("SplitURL(%q): %v", url, err)
		}
		if got := "https://" + host + path; got != url {
			t.Errorf("round trip of %q = %q", url, got)
		}
	}
}

func TestSplitURLInvalid(t *testing.T) {
	for _, url := range []string{
		"example.org/path",
		"https://example.org",
		"",
	} {
		if _, _, err := SplitURL(url); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("SplitURL(%q) error = %v, want ErrInvalidURL", url, err)
		}
	}
}
