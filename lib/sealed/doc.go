// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts session state at rest with age x25519 keys.
//
// [Seal] encrypts to one or more age1... recipients and returns a binary
// age file; [Open] decrypts it with an identity held in a
// [secret.Buffer] and returns the plaintext in another secret.Buffer.
// [IsSealed] recognizes the age header so readers can accept both
// sealed and plain files.
//
// Key files use age-keygen's text format, so keys made with the age
// tool work unchanged. [GenerateKeypair] and [WriteKeypair] produce
// them; [ReadRecipientFile] and [ReadIdentityFile] load them.
package sealed
