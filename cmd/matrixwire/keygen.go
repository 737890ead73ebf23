// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixwire/cmd/matrixwire/cli"
	"github.com/bureau-foundation/matrixwire/lib/sealed"
)

func keygenCommand(stdout io.Writer) *cli.Command {
	var (
		flags         commonFlags
		identityPath  string
		recipientPath string
		force         bool
	)
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate the age keypair that seals the saved session",
		Description: `Write an age identity and recipient file. With state.identity_file and
state.recipient_file pointing at them, the saved session is encrypted at
rest. Paths default to the configured ones.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVar(&identityPath, "identity", "", "identity (private key) file")
			flagSet.StringVar(&recipientPath, "recipient", "", "recipient (public key) file")
			flagSet.BoolVar(&force, "force", false, "overwrite existing key files")
			return flagSet
		},
		Run: func(args []string) error {
			if identityPath == "" || recipientPath == "" {
				cfg, err := flags.loadConfig()
				if err != nil {
					return err
				}
				if identityPath == "" {
					identityPath = cfg.State.IdentityFile
				}
				if recipientPath == "" {
					recipientPath = cfg.State.RecipientFile
				}
			}
			if identityPath == "" || recipientPath == "" {
				return fmt.Errorf("identity and recipient paths are required (flags or state.identity_file and state.recipient_file)")
			}
			if _, err := os.Stat(identityPath); !force && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s exists; pass --force to replace it (the saved session will no longer open)", identityPath)
			}
			return generateKeypair(stdout, identityPath, recipientPath)
		},
	}
}

func generateKeypair(stdout io.Writer, identityPath, recipientPath string) error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	defer keypair.Close()
	if err := sealed.WriteKeypair(keypair, identityPath, recipientPath); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Public key: %s\n", keypair.PublicKey)
	return nil
}
