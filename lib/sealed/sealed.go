// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/matrixwire/lib/secret"
)

// header is the first line of every binary age file.
const header = "age-encryption.org/v1\n"

// Keypair holds an age x25519 keypair. The caller must Close it.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... identity. Never log it.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient string.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	return k.PrivateKey.Close()
}

// GenerateKeypair generates a new age x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Seal encrypts plaintext to every recipient (age1... strings) and
// returns the binary age file.
func Seal(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Open decrypts a binary age file with privateKey, which is borrowed and
// not closed. The plaintext is returned in a secret.Buffer the caller
// must Close; empty plaintext yields a nil Buffer.
func Open(ciphertext []byte, privateKey *secret.Buffer) (*secret.Buffer, error) {
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, nil
	}
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}

// IsSealed reports whether data starts with the age file header.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(header))
}

// ParsePublicKey validates an age public key string.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// ReadRecipientFile reads age public keys from path, one per line.
// Blank lines and '#' comments are skipped, as in age-keygen output.
func ReadRecipientFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recipients []string
	for _, line := range keyLines(data) {
		if err := ParsePublicKey(line); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		recipients = append(recipients, line)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%s: no recipients", path)
	}
	return recipients, nil
}

// ReadIdentityFile reads the first age identity from path, in the format
// written by age-keygen or WriteKeypair.
func ReadIdentityFile(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer secret.Zero(data)

	for _, line := range keyLines(data) {
		if !strings.HasPrefix(line, "AGE-SECRET-KEY-") {
			continue
		}
		if _, err := age.ParseX25519Identity(line); err != nil {
			return nil, fmt.Errorf("%s: invalid age private key: %w", path, err)
		}
		return secret.NewFromString(line)
	}
	return nil, fmt.Errorf("%s: no age identity found", path)
}

// WriteKeypair writes the identity (0600) and recipient (0644) files for
// keypair in age-keygen's format.
func WriteKeypair(keypair *Keypair, identityPath, recipientPath string) error {
	identity := fmt.Sprintf("# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey.String())
	if err := os.WriteFile(identityPath, []byte(identity), 0600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := os.WriteFile(recipientPath, []byte(keypair.PublicKey+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient file: %w", err)
	}
	return nil
}

func keyLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
