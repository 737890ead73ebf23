// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/matrixwire/cmd/matrixwire/cli"
	"github.com/bureau-foundation/matrixwire/lib/secret"
	"github.com/bureau-foundation/matrixwire/lib/statefile"
	"github.com/bureau-foundation/matrixwire/messaging"
)

// withSession opens the environment, runs action, and closes the
// environment (saving the session) whether or not action failed.
func withSession(flags *commonFlags, authenticated bool, action func(env *environment) error) (err error) {
	env, err := openEnvironment(flags)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, env.Close())
	}()
	if authenticated {
		if err := env.requireSession(); err != nil {
			return err
		}
	}
	return action(env)
}

func loginCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var (
		flags        commonFlags
		passwordFile string
		userID       string
	)
	return &cli.Command{
		Name:    "login",
		Summary: "Log in and save the session",
		Description: `Log in with a password and save the session to state.file.

The homeserver is discovered from the user ID's server name via
/.well-known/matrix/client, falling back to account.fallback_host. The
password is read from --password-file (or account.password_file), from
stdin when the file is "-", and otherwise prompted for on the terminal.
Logging in again keeps the sync cursor when the user is unchanged.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("login", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVar(&passwordFile, "password-file", "", `file holding the password ("-" for stdin)`)
			flagSet.StringVar(&userID, "user", "", "user ID to log in as (default account.user_id)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return withSession(&flags, false, func(env *environment) error {
				if userID == "" {
					userID = env.config.Account.UserID
				}
				if userID == "" {
					return fmt.Errorf("no user ID: set account.user_id or pass --user")
				}
				if passwordFile == "" {
					passwordFile = env.config.Account.PasswordFile
				}

				password, err := readPassword(passwordFile)
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				defer password.Close()

				if err := env.client.Login(ctx, userID, password, env.config.Account.FallbackHost); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Logged in as %s (device %s) on %s\n",
					env.client.UserID(), env.client.DeviceID(), env.client.HomeserverURL())
				return nil
			})
		},
	}
}

// readPassword reads the login password from path, from stdin when path
// is "-", and otherwise prompts on the terminal with echo disabled.
func readPassword(path string) (*secret.Buffer, error) {
	if path != "" {
		return secret.ReadFromPath(path)
	}

	stdinDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinDescriptor) {
		return nil, fmt.Errorf("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(stdinDescriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	defer secret.Zero(password)
	if len(password) == 0 {
		return nil, fmt.Errorf("password is empty")
	}
	return secret.NewFromBytes(password)
}

func statusCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var (
		flags   commonFlags
		refresh bool
	)
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"whoami"},
		Summary: "Show the saved session",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.BoolVar(&refresh, "refresh", false, "refresh the access token now")
			return flagSet
		},
		Run: func(args []string) error {
			return withSession(&flags, true, func(env *environment) error {
				if refresh {
					if err := env.client.Refresh(ctx); err != nil {
						return err
					}
				}
				client := env.client
				fmt.Fprintf(stdout, "user:        %s\n", client.UserID())
				fmt.Fprintf(stdout, "device:      %s\n", client.DeviceID())
				fmt.Fprintf(stdout, "homeserver:  %s\n", client.HomeserverURL())
				expiry := "never"
				if !client.TokenExpiry().IsZero() {
					expiry = client.TokenExpiry().UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(stdout, "expires:     %s\n", expiry)
				cursor := client.SyncCursor()
				if cursor == "" {
					cursor = "(initial sync pending)"
				}
				fmt.Fprintf(stdout, "sync cursor: %s\n", cursor)
				if master := client.MasterUserID(); master != "" {
					fmt.Fprintf(stdout, "master:      %s %s\n", master, client.MasterRoomID())
				}
				return nil
			})
		},
	}
}

func forgetCommand(stdout io.Writer) *cli.Command {
	var flags commonFlags
	return &cli.Command{
		Name:    "forget",
		Summary: "Delete the saved session",
		Description: `Delete state.file. The next command starts unauthenticated and
the next login performs an initial sync. The server-side device is not
logged out.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("forget", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cfg.State.File == "" {
				return fmt.Errorf("state.file is not configured")
			}
			if err := statefile.Clear(cfg.State.File); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Removed %s\n", cfg.State.File)
			return nil
		},
	}
}

// messageType maps the --type flag to a msgtype.
func messageType(name string) (string, error) {
	switch name {
	case "text", "":
		return messaging.MsgTypeText, nil
	case "notice":
		return messaging.MsgTypeNotice, nil
	case "emote":
		return messaging.MsgTypeEmote, nil
	default:
		return "", fmt.Errorf("unknown message type %q (want text, notice or emote)", name)
	}
}
