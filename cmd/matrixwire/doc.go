// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Matrixwire is a command-line Matrix client built on the messaging
// package. Each invocation loads the config file, resumes the session
// saved by the previous run, performs one action, and saves the session
// again:
//
//	matrixwire login
//	matrixwire sync --follow
//	matrixwire send --room '!abc:example.org' --markdown 'deploy **done**'
//	matrixwire dm 'backup finished'
//
// The config file is named by --config or MATRIXWIRE_CONFIG. Session
// state is written to state.file, sealed with age when
// state.recipient_file is set (generate a keypair with "matrixwire
// keygen"). With transcript.file set, every exchange is appended to a
// compressed transcript readable with "matrixwire transcript". With
// metrics.listen set, Prometheus metrics are served for the duration of
// the command.
package main
