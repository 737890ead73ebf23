// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/matrixwire/lib/codec"
	"github.com/bureau-foundation/matrixwire/lib/sealed"
	"github.com/bureau-foundation/matrixwire/lib/secret"
)

// ErrIdentityRequired is returned by Read for a sealed file when no
// identity was supplied.
var ErrIdentityRequired = errors.New("statefile: file is sealed and no identity was given")

// Write encodes value as CBOR and atomically replaces path with it. When
// recipients is non-empty the encoding is sealed to them. The plaintext
// encoding is zeroed before returning.
func Write(path string, value any, recipients []string) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("statefile: encoding %s: %w", path, err)
	}
	defer secret.Zero(data)

	contents := data
	if len(recipients) > 0 {
		contents, err = sealed.Seal(data, recipients)
		if err != nil {
			return fmt.Errorf("statefile: sealing %s: %w", path, err)
		}
	}
	return writeAtomic(path, contents)
}

func writeAtomic(path string, contents []byte) error {
	directory := filepath.Dir(path)
	file, err := os.CreateTemp(directory, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("statefile: creating temporary file: %w", err)
	}
	temporaryPath := file.Name()

	// Write, sync, close. Any failure removes the temporary file.
	if err := file.Chmod(0600); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: restricting temporary file: %w", err)
	}
	if _, err := file.Write(contents); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: closing temporary file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("statefile: renaming into place: %w", err)
	}

	// Make the rename durable.
	if parent, err := os.Open(directory); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// Read decodes the file at path into value. identity, which is borrowed
// and not closed, is only needed when the file is sealed. When the file
// does not exist the error wraps os.ErrNotExist.
func Read(path string, value any, identity *secret.Buffer) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("statefile: %w", err)
	}

	if !sealed.IsSealed(contents) {
		defer secret.Zero(contents)
		if err := codec.Unmarshal(contents, value); err != nil {
			return fmt.Errorf("statefile: decoding %s: %w", path, err)
		}
		return nil
	}

	if identity.Len() == 0 {
		return fmt.Errorf("statefile: %s: %w", path, ErrIdentityRequired)
	}
	plaintext, err := sealed.Open(contents, identity)
	if err != nil {
		return fmt.Errorf("statefile: opening %s: %w", path, err)
	}
	defer plaintext.Close()
	if err := codec.Unmarshal(plaintext.Bytes(), value); err != nil {
		return fmt.Errorf("statefile: decoding %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a state file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Clear removes the state file. It is a no-op when the file is absent.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("statefile: removing %s: %w", path, err)
	}
	return nil
}
