// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deviceid produces the Matrix device ID a client logs in with.
//
// A device ID is twelve upper-case hexadecimal digits: four from the
// high half of a 48-bit hardware identifier followed by eight from the
// low half. Hosts without a stable hardware identifier derive one from
// a random UUID the first time and persist it, so every run reuses the
// same device and the homeserver does not accumulate stale sessions.
package deviceid

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of hex digits in a device ID.
const Length = 12

var pattern = regexp.MustCompile(`^[0-9A-F]{12}$`)

// FromHardwareID formats the low 48 bits of id as a device ID.
func FromHardwareID(id uint64) string {
	return fmt.Sprintf("%04X%08X", uint16(id>>32), uint32(id))
}

// Generate returns a device ID derived from a random UUID.
func Generate() string {
	random := uuid.New()
	var id uint64
	for _, b := range random[:6] {
		id = id<<8 | uint64(b)
	}
	return FromHardwareID(id)
}

// Valid reports whether id is twelve upper-case hex digits.
func Valid(id string) bool {
	return pattern.MatchString(id)
}

// LoadOrCreate returns the device ID stored at path, generating and
// writing one (mode 0600) if the file does not exist yet.
func LoadOrCreate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if !Valid(id) {
			return "", fmt.Errorf("deviceid: %s holds %q, not a %d-digit upper-case hex ID", path, id, Length)
		}
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("deviceid: reading %s: %w", path, err)
	}

	id := Generate()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("deviceid: creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("deviceid: writing %s: %w", path, err)
	}
	return id, nil
}
