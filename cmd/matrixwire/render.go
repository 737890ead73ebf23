// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/matrixwire/lib/transcript"
	"github.com/bureau-foundation/matrixwire/messaging"
)

var (
	roomStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	senderStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	noticeStyle     = lipgloss.NewStyle().Faint(true)
	invitationStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	encryptedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failureStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// roomLabel is the room's name when known, otherwise its ID, with a
// lock marker for encrypted rooms.
func roomLabel(event messaging.RoomEvent) string {
	label := event.RoomID
	if event.RoomName != "" {
		label = event.RoomName
	}
	if event.IsEncrypted {
		label += " " + encryptedStyle.Render("[e2e]")
	}
	return label
}

// renderEvent formats one synced event as a single terminal line.
func renderEvent(event messaging.RoomEvent) string {
	room := roomStyle.Render("[" + roomLabel(event) + "]")
	switch event.Kind {
	case messaging.KindInvitation:
		line := fmt.Sprintf("%s %s %s", room, invitationStyle.Render("invited by"), senderStyle.Render(event.Sender))
		if event.RoomTopic != "" {
			line += roomStyle.Render(" (" + event.RoomTopic + ")")
		}
		return line
	default:
		body := event.MessageBody
		switch event.MessageType {
		case messaging.MsgTypeEmote:
			return fmt.Sprintf("%s * %s %s", room, senderStyle.Render(event.Sender), body)
		case messaging.MsgTypeNotice:
			body = noticeStyle.Render(body)
		case messaging.MsgTypeImage:
			body = noticeStyle.Render("[image] " + body)
		}
		return fmt.Sprintf("%s %s: %s", room, senderStyle.Render(event.Sender), body)
	}
}

// renderRecord formats one transcript record as a summary line followed
// by the body when withBody is set.
func renderRecord(record transcript.Record, withBody bool) string {
	status := fmt.Sprintf("%d", record.StatusCode)
	if record.Error != "" {
		status = failureStyle.Render("error: " + record.Error)
	} else if record.StatusCode >= 400 || record.StatusCode == 0 {
		status = failureStyle.Render(status)
	}

	var line strings.Builder
	fmt.Fprintf(&line, "%s %s %s%s %s %s %dB",
		roomStyle.Render(record.StartedAt.UTC().Format(time.RFC3339Nano)),
		record.Method,
		record.Host,
		record.Path,
		status,
		record.Duration.Round(time.Millisecond),
		record.BytesRead,
	)
	if withBody && len(record.Body) > 0 {
		line.WriteString("\n")
		line.Write(record.Body)
	}
	return line.String()
}
