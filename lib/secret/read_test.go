// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFromPath(t *testing.T) {
	directory := t.TempDir()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"plain value", "hunter2", "hunter2"},
		{"trailing newline", "hunter2\n", "hunter2"},
		{"surrounding whitespace", "  hunter2 \t\n", "hunter2"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(directory, test.name)
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatalf("writing test file: %v", err)
			}
			buffer, err := ReadFromPath(path)
			if err != nil {
				t.Fatalf("ReadFromPath: %v", err)
			}
			defer buffer.Close()
			if buffer.String() != test.expected {
				t.Errorf("ReadFromPath = %q, want %q", buffer.String(), test.expected)
			}
		})
	}
}

func TestReadFromPathErrors(t *testing.T) {
	directory := t.TempDir()
	whitespace := filepath.Join(directory, "whitespace")
	if err := os.WriteFile(whitespace, []byte(" \n\t\n"), 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	empty := filepath.Join(directory, "empty")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	for _, path := range []string{filepath.Join(directory, "missing"), whitespace, empty} {
		if _, err := ReadFromPath(path); err == nil {
			t.Errorf("ReadFromPath(%s) succeeded", filepath.Base(path))
		}
	}
}

func TestReadLine(t *testing.T) {
	buffer, err := ReadLine(strings.NewReader("  first line \nsecond line\n"))
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "first line" {
		t.Errorf("ReadLine = %q", buffer.String())
	}

	if _, err := ReadLine(strings.NewReader("")); err == nil {
		t.Error("ReadLine on empty input succeeded")
	}
}
