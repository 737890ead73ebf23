// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

// EventKind distinguishes the two kinds of RoomEvent.
type EventKind string

const (
	// KindMessage is an m.room.message timeline event in a joined room.
	KindMessage EventKind = "message"
	// KindInvitation summarizes a pending invite to a room.
	KindInvitation EventKind = "invitation"
)

// RoomEvent is one item produced by Sync. It is a plain value; compare
// with ==.
type RoomEvent struct {
	Kind EventKind
	// EventID is empty for an invitation whose invite state carried no
	// membership event ID.
	EventID     string
	Sender      string
	RoomID      string
	RoomName    string
	RoomTopic   string
	IsEncrypted bool
	// MessageType and MessageBody are set for KindMessage only.
	MessageType string
	MessageBody string
}

// DrainEvents returns every event queued by Sync since the last drain,
// in the order they were produced, and empties the queue. Each event is
// returned exactly once.
func (c *Client) DrainEvents() []RoomEvent {
	events := c.pending
	c.pending = nil
	return events
}

// PendingEvents reports how many events are waiting to be drained.
func (c *Client) PendingEvents() int {
	return len(c.pending)
}
