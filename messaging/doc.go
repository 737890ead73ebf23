// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is a small Matrix client-server session and sync
// engine that speaks raw HTTP/1.1 over a caller-supplied connection.
//
// A [Client] owns one session: the homeserver URL, the access and
// refresh tokens (held in secret.Buffer memory), the token expiry and
// the sync cursor. [Client.Login] resolves the homeserver through
// /.well-known/matrix/client (falling back to a configured host) and
// seeds the session. Every authenticated call first checks the token and
// refreshes it once it is within [RefreshMargin] of expiry; a failed
// refresh is terminal for the token set and surfaces as
// [ErrRefreshFailed].
//
// [Client.Sync] is polled by the caller. The first call only obtains a
// cursor. Later calls long-poll with since and timeout and queue one
// [RoomEvent] per m.room.message timeline event in joined rooms and one
// per invited room. [Client.DrainEvents] hands the queue over and
// empties it.
//
// Room actions (create, send, upload, join, read receipt) are one
// exchange each. Operations that need a field from the response fail
// with a sentinel error; when the body carried a Matrix error the
// returned error also wraps a [*MatrixError], testable with
// [IsMatrixError].
//
// A Client is not safe for concurrent use. [Client.Snapshot] and
// [Client.Restore] move the session across processes; lib/statefile
// persists snapshots.
package messaging
