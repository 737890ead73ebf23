// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixwire/cmd/matrixwire/cli"
)

func sendCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var (
		flags    commonFlags
		roomID   string
		typeName string
		markdown bool
	)
	return &cli.Command{
		Name:    "send",
		Summary: "Send a message to a room",
		Usage:   "matrixwire send --room <room-id> [flags] <message>...",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVarP(&roomID, "room", "r", "", "room ID (required)")
			flagSet.StringVarP(&typeName, "type", "t", "text", "message type: text, notice or emote")
			flagSet.BoolVarP(&markdown, "markdown", "m", false, "render the message as markdown")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Send a notice", Command: "matrixwire send -r '!ops:example.org' -t notice 'nightly build green'"},
			{Description: "Send formatted text", Command: "matrixwire send -r '!ops:example.org' -m 'deploy **done**'"},
		},
		Run: func(args []string) error {
			if roomID == "" {
				return fmt.Errorf("--room is required")
			}
			if len(args) == 0 {
				return fmt.Errorf("message is required")
			}
			msgType, err := messageType(typeName)
			if err != nil {
				return err
			}
			body := strings.Join(args, " ")
			return withSession(&flags, true, func(env *environment) error {
				send := env.client.SendMessageToRoom
				if markdown {
					send = env.client.SendMarkdownToRoom
				}
				eventID, err := send(ctx, roomID, body, msgType)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, eventID)
				return nil
			})
		},
	}
}

func sendImageCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var (
		flags       commonFlags
		roomID      string
		contentType string
		name        string
	)
	return &cli.Command{
		Name:    "send-image",
		Aliases: []string{"image"},
		Summary: "Upload an image and post it to a room",
		Usage:   "matrixwire send-image --room <room-id> [flags] <path>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("send-image", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVarP(&roomID, "room", "r", "", "room ID (required)")
			flagSet.StringVar(&contentType, "content-type", "", "MIME type (default: from the file extension or contents)")
			flagSet.StringVar(&name, "name", "", "file name shown in the room (default: base name of path)")
			return flagSet
		},
		Run: func(args []string) error {
			if roomID == "" {
				return fmt.Errorf("--room is required")
			}
			if len(args) != 1 {
				return fmt.Errorf("exactly one file path is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			if contentType == "" {
				contentType = detectContentType(args[0], data)
			}
			return withSession(&flags, true, func(env *environment) error {
				eventID, err := env.client.SendMediaToRoom(ctx, roomID, name, contentType, data)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, eventID)
				return nil
			})
		},
	}
}

// detectContentType prefers the extension's registered type and falls
// back to sniffing the first bytes.
func detectContentType(path string, data []byte) string {
	if byExtension := mime.TypeByExtension(filepath.Ext(path)); byExtension != "" {
		return byExtension
	}
	return http.DetectContentType(data)
}

func createRoomCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var flags commonFlags
	return &cli.Command{
		Name:    "create-room",
		Summary: "Create a direct-message room with a user",
		Usage:   "matrixwire create-room [flags] <user-id>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create-room", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one user ID is required")
			}
			return withSession(&flags, true, func(env *environment) error {
				roomID, err := env.client.CreateRoom(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, roomID)
				return nil
			})
		},
	}
}

func joinCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var flags commonFlags
	return &cli.Command{
		Name:    "join",
		Summary: "Join a room",
		Usage:   "matrixwire join [flags] <room-id>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("join", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one room ID is required")
			}
			return withSession(&flags, true, func(env *environment) error {
				if err := env.client.JoinRoom(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Joined %s\n", args[0])
				return nil
			})
		},
	}
}

func receiptCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var flags commonFlags
	return &cli.Command{
		Name:    "receipt",
		Summary: "Mark an event as read",
		Usage:   "matrixwire receipt [flags] <room-id> <event-id>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("receipt", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("a room ID and an event ID are required")
			}
			return withSession(&flags, true, func(env *environment) error {
				return env.client.SendReadReceipt(ctx, args[0], args[1])
			})
		},
	}
}

func dmCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var (
		flags    commonFlags
		typeName string
	)
	return &cli.Command{
		Name:    "dm",
		Summary: "Send a direct message to the master user",
		Description: `Send a message to account.master_user_id. The direct-message room
is created on first use and remembered in the saved session.`,
		Usage: "matrixwire dm [flags] <message>...",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dm", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVarP(&typeName, "type", "t", "text", "message type: text, notice or emote")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("message is required")
			}
			msgType, err := messageType(typeName)
			if err != nil {
				return err
			}
			return withSession(&flags, true, func(env *environment) error {
				eventID, err := env.client.SendDMToMaster(ctx, strings.Join(args, " "), msgType)
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, eventID)
				return nil
			})
		},
	}
}
