// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/bureau-foundation/matrixwire/cmd/matrixwire/cli"
	"github.com/bureau-foundation/matrixwire/lib/config"
	"github.com/bureau-foundation/matrixwire/lib/deviceid"
	"github.com/bureau-foundation/matrixwire/lib/metrics"
	"github.com/bureau-foundation/matrixwire/lib/sealed"
	"github.com/bureau-foundation/matrixwire/lib/secret"
	"github.com/bureau-foundation/matrixwire/lib/statefile"
	"github.com/bureau-foundation/matrixwire/lib/transcript"
	"github.com/bureau-foundation/matrixwire/lib/wire"
	"github.com/bureau-foundation/matrixwire/messaging"
)

// newConn returns the connection a client runs over. Tests replace it
// with a scripted connection.
var newConn = func(cfg *config.Config) wire.Conn {
	return wire.NewTLSConn(&tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
	})
}

// metricsShutdownTimeout bounds how long a command waits for in-flight
// scrapes when it exits.
const metricsShutdownTimeout = 5 * time.Second

// environment is everything one command invocation needs: the client,
// its logger, and the optional state file, transcript and metrics
// endpoint wired from the config.
type environment struct {
	config *config.Config
	logger *slog.Logger
	client *messaging.Client

	transcript    *transcript.Writer
	metricsServer *metrics.Server
	identity      *secret.Buffer
}

// openEnvironment builds a client from the config and resumes the saved
// session if there is one. The caller must Close the environment, which
// saves the session again.
func openEnvironment(flags *commonFlags) (*environment, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureStateDirectories(); err != nil {
		return nil, err
	}

	logger := cli.NewLogger(flags.verbose)
	severity, err := messaging.ParseSeverity(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		severity = messaging.SeverityDebug
	}

	deviceID := deviceid.Generate()
	if cfg.Account.DeviceIDFile != "" {
		deviceID, err = deviceid.LoadOrCreate(cfg.Account.DeviceIDFile)
		if err != nil {
			return nil, err
		}
	}

	env := &environment{config: cfg, logger: logger}
	success := false
	defer func() {
		if !success {
			env.release()
		}
	}()

	clientConfig := messaging.ClientConfig{
		Conn:              newConn(cfg),
		Logger:            logger,
		LogLevel:          severity,
		SyncTimeout:       cfg.Sync.Timeout.Std(),
		ResponseGrace:     cfg.Sync.ResponseGrace.Std(),
		PollInterval:      cfg.Sync.PollInterval.Std(),
		MaxResponseLength: cfg.Sync.MaxResponseLength,
		DeviceID:          deviceID,
		DeviceDisplayName: cfg.Account.DeviceDisplayName,
	}

	if cfg.Transcript.File != "" {
		compression, err := transcript.ParseCompressionTag(cfg.Transcript.Compression)
		if err != nil {
			return nil, err
		}
		env.transcript, err = transcript.OpenFile(cfg.Transcript.File, compression)
		if err != nil {
			return nil, err
		}
		clientConfig.Observer = env.transcript
	}

	if cfg.Metrics.Listen != "" {
		collector := metrics.NewCollector()
		listener, err := net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return nil, fmt.Errorf("listening for metrics on %s: %w", cfg.Metrics.Listen, err)
		}
		env.metricsServer = metrics.NewServer(cfg.Metrics.Listen, collector, logger)
		go func() {
			if err := env.metricsServer.Serve(listener); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		clientConfig.Metrics = collector
	}

	env.client, err = messaging.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	if cfg.State.IdentityFile != "" && statefile.Exists(cfg.State.File) {
		env.identity, err = sealed.ReadIdentityFile(cfg.State.IdentityFile)
		if err != nil {
			return nil, err
		}
	}
	if err := env.restore(); err != nil {
		return nil, err
	}
	if cfg.Account.MasterUserID != "" {
		env.client.SetMasterUserID(cfg.Account.MasterUserID)
	}

	success = true
	return env, nil
}

// restore loads the saved session into the client. A missing state file
// leaves the client unauthenticated.
func (e *environment) restore() error {
	path := e.config.State.File
	if path == "" || !statefile.Exists(path) {
		return nil
	}
	var snapshot messaging.Snapshot
	if err := statefile.Read(path, &snapshot, e.identity); err != nil {
		return err
	}
	defer snapshot.Zero()
	if err := e.client.Restore(&snapshot); err != nil {
		e.logger.Warn("saved session unusable, log in again", "path", path, "error", err)
	}
	return nil
}

// save writes the current session to the state file. Nothing is written
// while the client is unauthenticated.
func (e *environment) save() error {
	path := e.config.State.File
	if path == "" || !e.client.IsAuthenticated() {
		return nil
	}

	var recipients []string
	if e.config.State.RecipientFile != "" {
		var err error
		recipients, err = sealed.ReadRecipientFile(e.config.State.RecipientFile)
		if err != nil {
			return err
		}
	}

	snapshot := e.client.Snapshot()
	defer snapshot.Zero()
	if err := statefile.Write(path, snapshot, recipients); err != nil {
		return err
	}
	e.logger.Debug("session saved", "path", path, "sealed", len(recipients) > 0)
	return nil
}

// requireSession fails unless a session was restored or established.
func (e *environment) requireSession() error {
	if !e.client.IsAuthenticated() {
		return fmt.Errorf("not logged in; run 'matrixwire login' first")
	}
	return nil
}

// Close saves the session and releases every resource. The save error,
// if any, is returned alongside release errors.
func (e *environment) Close() error {
	return errors.Join(e.save(), e.release())
}

func (e *environment) release() error {
	var errs []error
	if e.client != nil {
		errs = append(errs, e.client.Close())
	}
	if e.transcript != nil {
		errs = append(errs, e.transcript.Close())
	}
	if e.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		errs = append(errs, e.metricsServer.Shutdown(ctx))
		cancel()
	}
	if e.identity != nil {
		errs = append(errs, e.identity.Close())
	}
	return errors.Join(errs...)
}
