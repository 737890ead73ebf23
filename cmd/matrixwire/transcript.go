// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixwire/cmd/matrixwire/cli"
	"github.com/bureau-foundation/matrixwire/lib/transcript"
)

func transcriptCommand(stdout io.Writer) *cli.Command {
	var (
		flags    commonFlags
		withBody bool
		last     int
	)
	return &cli.Command{
		Name:    "transcript",
		Summary: "Print recorded exchanges",
		Description: `Print the exchanges recorded in a transcript file, oldest first.
Secrets were redacted when the records were written.`,
		Usage: "matrixwire transcript [flags] [path]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("transcript", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.BoolVarP(&withBody, "body", "b", false, "print response bodies")
			flagSet.IntVar(&last, "last", 0, "print only the last N records")
			return flagSet
		},
		Run: func(args []string) error {
			var path string
			switch len(args) {
			case 0:
				cfg, err := flags.loadConfig()
				if err != nil {
					return err
				}
				if cfg.Transcript.File == "" {
					return fmt.Errorf("no path given and transcript.file is not configured")
				}
				path = cfg.Transcript.File
			case 1:
				path = args[0]
			default:
				return fmt.Errorf("at most one transcript path is accepted")
			}
			return dumpTranscript(stdout, path, withBody, last)
		},
	}
}

func dumpTranscript(stdout io.Writer, path string, withBody bool, last int) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	records, err := transcript.ReadAll(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if last > 0 && len(records) > last {
		records = records[len(records)-last:]
	}
	for _, record := range records {
		if _, err := fmt.Fprintln(stdout, renderRecord(record, withBody)); err != nil {
			return err
		}
	}
	return nil
}
