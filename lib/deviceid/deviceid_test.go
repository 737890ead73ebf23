// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deviceid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/matrixwire/lib/testutil"
)

func TestFromHardwareID(t *testing.T) {
	tests := []struct {
		id   uint64
		want string
	}{
		{0x0000_0000_0000, "000000000000"},
		{0xA1B2_C3D4E5F6, "A1B2C3D4E5F6"},
		{0x24_0A_C4_12_34_56, "240AC4123456"},
		// Bits above 48 are ignored.
		{0xFFFF_0001_0000_0002, "000100000002"},
	}
	for _, test := range tests {
		if got := FromHardwareID(test.id); got != test.want {
			t.Errorf("FromHardwareID(%#x) = %q, want %q", test.id, got, test.want)
		}
	}
}

func TestGenerateIsValid(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		id := Generate()
		if !Valid(id) {
			t.Fatalf("Generate() = %q, not a valid device ID", id)
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Error("Generate() keeps returning the same ID")
	}
}

func TestValid(t *testing.T) {
	for id, want := range map[string]bool{
		"A1B2C3D4E5F6":  true,
		"a1b2c3d4e5f6":  false,
		"A1B2C3D4E5":    false,
		"A1B2C3D4E5F6A": false,
		"G1B2C3D4E5F6":  false,
		"":              false,
	} {
		if Valid(id) != want {
			t.Errorf("Valid(%q) = %v, want %v", id, !want, want)
		}
	}
}

func TestLoadOrCreatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device_id")

	first, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	second, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second LoadOrCreate: %v", err)
	}
	if first != second {
		t.Errorf("device ID changed between runs: %q then %q", first, second)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("device ID file mode = %o, want 600", mode)
	}
}

func TestLoadOrCreateExisting(t *testing.T) {
	path := testutil.WriteFile(t, "device_id", "240AC4123456\n")
	id, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if id != "240AC4123456" {
		t.Errorf("LoadOrCreate = %q", id)
	}
}

func TestLoadOrCreateRejectsCorruptFile(t *testing.T) {
	path := testutil.WriteFile(t, "device_id", "not-a-device\n")
	if _, err := LoadOrCreate(path); err == nil {
		t.Fatal("LoadOrCreate accepted a malformed device ID")
	}
}
