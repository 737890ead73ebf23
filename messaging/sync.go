// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bureau-foundation/matrixwire/lib/envelope"
	"github.com/bureau-foundation/matrixwire/lib/wire"
)

// Sync performs one incremental sync and queues the resulting events
// for DrainEvents.
//
// The first sync (no cursor yet) only establishes the cursor; its
// payload is the room backlog and produces no events. Later syncs carry
// since and timeout and queue one KindMessage event per m.room.message
// timeline event in joined rooms, and one KindInvitation event per
// invited room.
//
// Sync returns nil whenever the exchange completed, even if the body
// could not be parsed or carried a Matrix error: sync is polled and a
// bad round means "nothing new". Inspect DrainEvents, not the error, to
// learn whether anything arrived.
func (c *Client) Sync(ctx context.Context) error {
	initial := c.session.syncCursor == ""
	queued, err := c.sync(ctx, initial)
	c.recorder.ObserveSync(initial, queued, err)
	return err
}

func (c *Client) sync(ctx context.Context, initial bool) (int, error) {
	if err := c.ensureValidToken(ctx); err != nil {
		return 0, fmt.Errorf("messaging: sync: %w", err)
	}

	syncURL := c.session.homeserverURL + "/_matrix/client/v3/sync"
	if !initial {
		syncURL += "?since=" + url.QueryEscape(c.session.syncCursor)
		if timeout := c.framer.SyncTimeout().Milliseconds(); timeout > 0 {
			syncURL += "&timeout=" + strconv.FormatInt(timeout, 10)
		}
	}

	response, err := c.framer.Do(ctx, wire.Request{
		Method:      http.MethodGet,
		URL:         syncURL,
		AccessToken: c.session.accessToken.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("messaging: sync: %w", err)
	}

	// Pass 1: the cursor is scraped from the raw bytes so it advances
	// even when the rest of the payload cannot be decoded.
	if cursor, found := scrapeCursor(response.Body); found {
		c.session.syncCursor = cursor
	}

	// Pass 2: best-effort full decode for events.
	document, err := envelope.Parse(response.Body)
	if err != nil {
		c.logger.Info("sync payload not decodable, treating as empty",
			"error", err,
			"truncated", response.Truncated,
			"body", string(response.Body),
		)
		return 0, nil
	}
	if matrixErr := matrixErrorFrom(response, document); matrixErr != nil {
		c.logger.Error("sync rejected by homeserver", "error", matrixErr)
		return 0, nil
	}

	if initial {
		c.logger.Debug("initial sync complete", "cursor", c.session.syncCursor)
		return 0, nil
	}

	before := len(c.pending)
	document.Object("rooms", "join").ForEach(func(roomID string, room *envelope.Document) bool {
		c.pending = append(c.pending, joinedRoomEvents(roomID, room)...)
		return true
	})
	document.Object("rooms", "invite").ForEach(func(roomID string, room *envelope.Document) bool {
		c.pending = append(c.pending, invitationEvent(roomID, room))
		return true
	})
	queued := len(c.pending) - before

	if queued > 0 {
		c.logger.Debug("sync queued events", "count", queued, "cursor", c.session.syncCursor)
	}
	return queued, nil
}

var cursorKey = []byte(`"next_batch"`)

// scrapeCursor finds "next_batch":"<value>" in body without decoding it.
// Whitespace is allowed around the colon. The value is returned raw, up
// to the next '"'.
func scrapeCursor(body []byte) (string, bool) {
	rest := body
	for {
		index := bytes.Index(rest, cursorKey)
		if index < 0 {
			return "", false
		}
		rest = rest[index+len(cursorKey):]

		value := bytes.TrimLeft(rest, " \t\r\n")
		if len(value) == 0 || value[0] != ':' {
			continue
		}
		value = bytes.TrimLeft(value[1:], " \t\r\n")
		if len(value) == 0 || value[0] != '"' {
			continue
		}
		value = value[1:]
		end := bytes.IndexByte(value, '"')
		if end < 0 {
			return "", false
		}
		return string(value[:end]), true
	}
}

// roomSummary is the name, topic and encryption state of a room as
// seen in one sync response.
type roomSummary struct {
	name      string
	topic     string
	encrypted bool
}

// apply folds a state event into the summary.
func (s *roomSummary) apply(event *envelope.Document) {
	switch event.String("", "type") {
	case "m.room.name":
		s.name = event.String("", "content", "name")
	case "m.room.topic":
		s.topic = event.String("", "content", "topic")
	case "m.room.encryption":
		s.encrypted = true
	}
}

// joinedRoomSummary derives a joined room's summary. Room-level name,
// topic and encrypted keys win; otherwise the room's state events and
// then its timeline state events are folded in, last one winning.
func joinedRoomSummary(room *envelope.Document) roomSummary {
	var summary roomSummary
	for _, event := range room.Array("state", "events").Items() {
		summary.apply(event)
	}
	for _, event := range room.Array("timeline", "events").Items() {
		if event.Has("state_key") {
			summary.apply(event)
		}
	}
	if room.Has("name") {
		summary.name = room.String("", "name")
	}
	if room.Has("topic") {
		summary.topic = room.String("", "topic")
	}
	if room.Has("encrypted") {
		summary.encrypted = room.Bool(false, "encrypted")
	}
	return summary
}

func joinedRoomEvents(roomID string, room *envelope.Document) []RoomEvent {
	summary := joinedRoomSummary(room)
	var events []RoomEvent
	for _, event := range room.Array("timeline", "events").Items() {
		if event.String("", "type") != "m.room.message" {
			continue
		}
		events = append(events, RoomEvent{
			Kind:        KindMessage,
			EventID:     event.String("", "event_id"),
			Sender:      event.String("", "sender"),
			RoomID:      roomID,
			RoomName:    summary.name,
			RoomTopic:   summary.topic,
			IsEncrypted: summary.encrypted,
			MessageType: event.String("", "content", "msgtype"),
			MessageBody: event.String("", "content", "body"),
		})
	}
	return events
}

// invitationEvent summarizes an invited room from its stripped invite
// state. The invite membership event supplies sender and event ID.
func invitationEvent(roomID string, room *envelope.Document) RoomEvent {
	invitation := RoomEvent{Kind: KindInvitation, RoomID: roomID}
	var summary roomSummary
	for _, event := range room.Array("invite_state", "events").Items() {
		summary.apply(event)
		if event.String("", "type") == "m.room.member" && event.String("", "content", "membership") == "invite" {
			invitation.Sender = event.String("", "sender")
			invitation.EventID = event.String("", "event_id")
		}
	}
	invitation.RoomName = summary.name
	invitation.RoomTopic = summary.topic
	invitation.IsEncrypted = summary.encrypted
	return invitation
}
