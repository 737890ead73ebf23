// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixwire/cmd/matrixwire/cli"
	"github.com/bureau-foundation/matrixwire/messaging"
)

// syncRetryDelay is the pause after a failed round in --follow mode.
const syncRetryDelay = 2 * time.Second

// syncOptions controls what runSync does with each round's events.
type syncOptions struct {
	rounds     int
	follow     bool
	jsonOutput bool
	autoJoin   bool
	markRead   bool
}

func syncCommand(ctx context.Context, stdout io.Writer) *cli.Command {
	var (
		flags   commonFlags
		options syncOptions
	)
	return &cli.Command{
		Name:    "sync",
		Summary: "Fetch new messages and invitations",
		Description: `Run sync rounds and print the events they produce.

The first sync after login only establishes the cursor and produces no
events. Each later round long-polls for up to sync.timeout. The cursor
is saved after every round, so an interrupted --follow resumes where it
stopped.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("sync", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.IntVarP(&options.rounds, "rounds", "n", 1, "number of sync rounds")
			flagSet.BoolVarP(&options.follow, "follow", "f", false, "sync until interrupted")
			flagSet.BoolVar(&options.jsonOutput, "json", false, "print one JSON object per event")
			flagSet.BoolVar(&options.autoJoin, "auto-join", false, "join every room we are invited to")
			flagSet.BoolVar(&options.markRead, "mark-read", false, "send a read receipt for every message")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Follow a bot account, accepting invitations", Command: "matrixwire sync --follow --auto-join"},
		},
		Run: func(args []string) error {
			if options.rounds < 1 && !options.follow {
				return fmt.Errorf("--rounds must be at least 1")
			}
			return withSession(&flags, true, func(env *environment) error {
				return runSync(ctx, env, stdout, options)
			})
		},
	}
}

// runSync performs the requested rounds, saving the session after each.
func runSync(ctx context.Context, env *environment, stdout io.Writer, options syncOptions) error {
	for round := 0; options.follow || round < options.rounds; round++ {
		if ctx.Err() != nil {
			return nil
		}
		if err := env.client.Sync(ctx); err != nil {
			if !options.follow || ctx.Err() != nil || needsLogin(err) {
				return err
			}
			env.logger.Warn("sync round failed, retrying", "error", err, "delay", syncRetryDelay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(syncRetryDelay):
			}
			continue
		}

		for _, event := range env.client.DrainEvents() {
			if err := printEvent(stdout, event, options.jsonOutput); err != nil {
				return err
			}
			if err := handleEvent(ctx, env, event, options); err != nil {
				return err
			}
		}

		if err := env.save(); err != nil {
			return err
		}
	}
	return nil
}

// needsLogin reports whether err can only be cleared by logging in
// again, so retrying the round is pointless.
func needsLogin(err error) bool {
	return errors.Is(err, messaging.ErrRefreshFailed) || errors.Is(err, messaging.ErrNotAuthenticated)
}

// syncedEvent is the --json form of a RoomEvent.
type syncedEvent struct {
	Kind        messaging.EventKind `json:"kind"`
	EventID     string              `json:"event_id,omitempty"`
	Sender      string              `json:"sender"`
	RoomID      string              `json:"room_id"`
	RoomName    string              `json:"room_name,omitempty"`
	RoomTopic   string              `json:"room_topic,omitempty"`
	IsEncrypted bool                `json:"is_encrypted"`
	MessageType string              `json:"msgtype,omitempty"`
	MessageBody string              `json:"body,omitempty"`
}

func printEvent(stdout io.Writer, event messaging.RoomEvent, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(stdout, renderEvent(event))
		return err
	}
	line, err := json.Marshal(syncedEvent(event))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", line)
	return err
}

func handleEvent(ctx context.Context, env *environment, event messaging.RoomEvent, options syncOptions) error {
	switch {
	case event.Kind == messaging.KindInvitation && options.autoJoin:
		if err := env.client.JoinRoom(ctx, event.RoomID); err != nil {
			return err
		}
		env.logger.Info("joined room", "room_id", event.RoomID, "invited_by", event.Sender)
	case event.Kind == messaging.KindMessage && options.markRead && event.EventID != "":
		if err := env.client.SendReadReceipt(ctx, event.RoomID, event.EventID); err != nil {
			return err
		}
	}
	return nil
}
