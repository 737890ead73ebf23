// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixwire/cmd/matrixwire/cli"
	"github.com/bureau-foundation/matrixwire/lib/config"
	"github.com/bureau-foundation/matrixwire/lib/version"
)

// rootCommand builds the command tree. Command output goes to stdout;
// logs and help go to stderr.
func rootCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "matrixwire",
		Description: `matrixwire: a Matrix client for scripts and bots.

Log in once, then sync, send messages and media, join rooms and
acknowledge events. The session is saved between invocations.`,
		Subcommands: []*cli.Command{
			loginCommand(ctx, stdout),
			syncCommand(ctx, stdout),
			sendCommand(ctx, stdout),
			sendImageCommand(ctx, stdout),
			createRoomCommand(ctx, stdout),
			joinCommand(ctx, stdout),
			receiptCommand(ctx, stdout),
			dmCommand(ctx, stdout),
			statusCommand(ctx, stdout),
			forgetCommand(stdout),
			transcriptCommand(stdout),
			keygenCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(stdout, "matrixwire %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// commonFlags are accepted by every command that opens a session.
type commonFlags struct {
	configPath string
	verbose    bool
}

func (f *commonFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.configPath, "config", "c", "", "config file (default $"+config.EnvironmentVariable+")")
	flagSet.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
}

// loadConfig reads and validates the config selected by --config or the
// environment.
func (f *commonFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
