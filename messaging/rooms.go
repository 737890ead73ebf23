// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/zeebo/blake3"
)

// Message types accepted by SendMessageToRoom.
const (
	MsgTypeText   = "m.text"
	MsgTypeNotice = "m.notice"
	MsgTypeEmote  = "m.emote"
	MsgTypeImage  = "m.image"
)

// FormatHTML is the format value for messages carrying a
// formatted_body.
const FormatHTML = "org.matrix.custom.html"

// Action names passed to Recorder.ObserveAction.
const (
	ActionCreateRoom  = "create_room"
	ActionSendMessage = "send_message"
	ActionUpload      = "upload"
	ActionJoin        = "join"
	ActionReceipt     = "receipt"
)

// CreateRoom creates a trusted private direct chat with userID invited
// and returns its room ID.
func (c *Client) CreateRoom(ctx context.Context, userID string) (string, error) {
	roomID, err := c.createRoom(ctx, userID)
	c.recorder.ObserveAction(ActionCreateRoom, err)
	return roomID, err
}

func (c *Client) createRoom(ctx context.Context, userID string) (string, error) {
	if err := c.ensureValidToken(ctx); err != nil {
		return "", fmt.Errorf("messaging: create room: %w", err)
	}

	result, err := c.call(ctx, callRequest{
		method: http.MethodPost,
		url:    c.session.homeserverURL + "/_matrix/client/v3/createRoom",
		payload: map[string]any{
			"invite":    []string{userID},
			"is_direct": true,
			"preset":    "trusted_private_chat",
		},
		authenticated: true,
	})
	if err != nil {
		return "", fmt.Errorf("messaging: create room for %s: %w: %w", userID, ErrCreateRoomFailed, err)
	}

	roomID := result.field("room_id")
	if roomID == "" {
		c.logger.Error("create room response has no room_id",
			"invite", userID,
			"status", result.response.StatusCode(),
			"body", string(result.response.Body),
		)
		return "", result.failure(ErrCreateRoomFailed, "create room for "+userID, "room_id")
	}

	c.logger.Info("room created", "room_id", roomID, "invite", userID)
	return roomID, nil
}

// SendMessageToRoom sends an m.room.message event with the given
// msgtype and body, returning the new event's ID.
func (c *Client) SendMessageToRoom(ctx context.Context, roomID, body, msgType string) (string, error) {
	return c.sendMessage(ctx, roomID, map[string]string{
		"msgtype": msgType,
		"body":    body,
	})
}

// SendMarkdownToRoom renders markdown to HTML and sends it as a
// formatted message. The raw markdown is the plain-text body.
func (c *Client) SendMarkdownToRoom(ctx context.Context, roomID, markdown, msgType string) (string, error) {
	formatted, err := RenderMarkdown(markdown)
	if err != nil {
		return "", fmt.Errorf("messaging: send markdown to %s: %w", roomID, err)
	}
	return c.sendMessage(ctx, roomID, map[string]string{
		"msgtype":        msgType,
		"body":           markdown,
		"format":         FormatHTML,
		"formatted_body": formatted,
	})
}

func (c *Client) sendMessage(ctx context.Context, roomID string, content map[string]string) (string, error) {
	eventID, err := c.doSendMessage(ctx, roomID, content)
	c.recorder.ObserveAction(ActionSendMessage, err)
	return eventID, err
}

func (c *Client) doSendMessage(ctx context.Context, roomID string, content map[string]string) (string, error) {
	if err := c.ensureValidToken(ctx); err != nil {
		return "", fmt.Errorf("messaging: send to %s: %w", roomID, err)
	}

	sendURL := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		c.session.homeserverURL,
		url.PathEscape(roomID),
		url.PathEscape(c.nextTransactionID()),
	)
	result, err := c.call(ctx, callRequest{
		method:        http.MethodPut,
		url:           sendURL,
		payload:       content,
		authenticated: true,
	})
	if err != nil {
		return "", fmt.Errorf("messaging: send to %s: %w: %w", roomID, ErrSendMessageFailed, err)
	}

	eventID := result.field("event_id")
	if eventID == "" {
		c.logger.Error("send response has no event_id",
			"room_id", roomID,
			"status", result.response.StatusCode(),
			"body", string(result.response.Body),
		)
		return "", result.failure(ErrSendMessageFailed, "send to "+roomID, "event_id")
	}

	c.logger.Debug("message sent", "room_id", roomID, "event_id", eventID, "msgtype", content["msgtype"])
	return eventID, nil
}

// nextTransactionID returns a transaction ID unique within this client
// and, through the timestamp, across restarts.
func (c *Client) nextTransactionID() string {
	c.transactionCounter++
	return fmt.Sprintf("matrixwire-%d-%d", c.clock.Now().UnixMilli(), c.transactionCounter)
}

// UploadMedia uploads data to the media repository and returns its
// mxc:// content URI. Identical uploads (same bytes and content type)
// are served from a per-client cache without a round trip.
func (c *Client) UploadMedia(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	contentURI, err := c.uploadMedia(ctx, fileName, contentType, data)
	c.recorder.ObserveAction(ActionUpload, err)
	return contentURI, err
}

func (c *Client) uploadMedia(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	if err := c.ensureValidToken(ctx); err != nil {
		return "", fmt.Errorf("messaging: upload %s: %w", fileName, err)
	}

	digest := uploadDigest(contentType, data)
	if contentURI, cached := c.uploads[digest]; cached {
		c.logger.Debug("media upload served from cache", "file_name", fileName, "content_uri", contentURI)
		return contentURI, nil
	}

	result, err := c.call(ctx, callRequest{
		method:        http.MethodPost,
		url:           c.session.homeserverURL + "/_matrix/media/v3/upload?filename=" + url.QueryEscape(fileName),
		payload:       data,
		contentType:   contentType,
		authenticated: true,
	})
	if err != nil {
		return "", fmt.Errorf("messaging: upload %s: %w: %w", fileName, ErrUploadFailed, err)
	}

	contentURI := result.field("content_uri")
	if contentURI == "" {
		c.logger.Error("upload response has no content_uri",
			"file_name", fileName,
			"status", result.response.StatusCode(),
			"body", string(result.response.Body),
		)
		return "", result.failure(ErrUploadFailed, "upload "+fileName, "content_uri")
	}

	c.uploads[digest] = contentURI
	c.logger.Info("media uploaded", "file_name", fileName, "size", len(data), "content_uri", contentURI)
	return contentURI, nil
}

// uploadDigest keys the upload cache. The content type is hashed ahead
// of the data, separated by a NUL.
func uploadDigest(contentType string, data []byte) [32]byte {
	hasher := blake3.New()
	hasher.Write([]byte(contentType))
	hasher.Write([]byte{0})
	hasher.Write(data)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// SendMediaToRoom uploads data and posts it to roomID as an m.image
// message named fileName.
func (c *Client) SendMediaToRoom(ctx context.Context, roomID, fileName, contentType string, data []byte) (string, error) {
	contentURI, err := c.UploadMedia(ctx, fileName, contentType, data)
	if err != nil {
		return "", err
	}
	return c.sendMessage(ctx, roomID, map[string]string{
		"msgtype": MsgTypeImage,
		"body":    fileName,
		"url":     contentURI,
	})
}

// JoinRoom joins roomID. Any completed exchange counts as success; the
// response is not inspected beyond logging a Matrix error.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	err := c.postEmpty(ctx, "join "+roomID,
		fmt.Sprintf("%s/_matrix/client/v3/join/%s", c.session.homeserverURL, url.PathEscape(roomID)))
	c.recorder.ObserveAction(ActionJoin, err)
	return err
}

// SendReadReceipt marks eventID as read in roomID. Like JoinRoom, any
// completed exchange counts as success.
func (c *Client) SendReadReceipt(ctx context.Context, roomID, eventID string) error {
	err := c.postEmpty(ctx, "receipt "+eventID,
		fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/receipt/m.read/%s",
			c.session.homeserverURL, url.PathEscape(roomID), url.PathEscape(eventID)))
	c.recorder.ObserveAction(ActionReceipt, err)
	return err
}

func (c *Client) postEmpty(ctx context.Context, operation, target string) error {
	if err := c.ensureValidToken(ctx); err != nil {
		return fmt.Errorf("messaging: %s: %w", operation, err)
	}
	result, err := c.call(ctx, callRequest{
		method:        http.MethodPost,
		url:           target,
		authenticated: true,
	})
	if err != nil {
		return fmt.Errorf("messaging: %s: %w", operation, err)
	}
	if matrixErr := result.matrixError(); matrixErr != nil {
		c.logger.Info("homeserver reported an error", "operation", operation, "error", matrixErr)
	}
	return nil
}

// SendDMToMaster sends a message to the master user's direct chat,
// creating the room on first use and reusing it afterwards.
func (c *Client) SendDMToMaster(ctx context.Context, message, msgType string) (string, error) {
	if c.session.masterUserID == "" {
		return "", ErrNoMasterUser
	}
	if c.session.masterRoomID == "" {
		roomID, err := c.CreateRoom(ctx, c.session.masterUserID)
		if err != nil {
			return "", err
		}
		c.session.masterRoomID = roomID
	}
	return c.SendMessageToRoom(ctx, c.session.masterRoomID, message, msgType)
}

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdownConverter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownInstance
}

// RenderMarkdown converts GitHub-flavored markdown to the HTML subset
// used in formatted_body.
func RenderMarkdown(markdown string) (string, error) {
	var buffer bytes.Buffer
	if err := markdownConverter().Convert([]byte(markdown), &buffer); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return string(bytes.TrimRight(buffer.Bytes(), "\n")), nil
}
