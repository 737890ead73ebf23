// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bureau-foundation/matrixwire/lib/codec"
	"github.com/bureau-foundation/matrixwire/lib/wire"
)

// magic opens every transcript. The last byte is the format version.
var magic = []byte("MWTRANS\x01")

// Writer appends records to a transcript. It is safe for concurrent
// use. A write error is sticky: later records are dropped and Err
// reports the first failure, so a full disk never fails an exchange.
type Writer struct {
	mu          sync.Mutex
	destination io.Writer
	closer      io.Closer
	compression CompressionTag
	records     int
	err         error
}

// NewWriter writes the header to destination and returns a Writer that
// stores each record with compression. Close does not close
// destination.
func NewWriter(destination io.Writer, compression CompressionTag) (*Writer, error) {
	if err := checkCompression(compression); err != nil {
		return nil, err
	}
	if _, err := destination.Write(magic); err != nil {
		return nil, fmt.Errorf("transcript: writing header: %w", err)
	}
	return &Writer{destination: destination, compression: compression}, nil
}

// OpenFile appends to the transcript at path, creating it (mode 0600)
// with a header when it is new or empty. An existing non-empty file must
// already be a transcript.
func OpenFile(path string, compression CompressionTag) (*Writer, error) {
	if err := checkCompression(compression); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("transcript: %w", err)
	}

	if info.Size() == 0 {
		if _, err := file.Write(magic); err != nil {
			file.Close()
			return nil, fmt.Errorf("transcript: writing header to %s: %w", path, err)
		}
	} else {
		header := make([]byte, len(magic))
		if _, err := file.ReadAt(header, 0); err != nil || !bytes.Equal(header, magic) {
			file.Close()
			return nil, fmt.Errorf("transcript: %s is not a transcript file", path)
		}
	}
	return &Writer{destination: file, closer: file, compression: compression}, nil
}

// ObserveExchange implements wire.Observer.
func (w *Writer) ObserveExchange(exchange wire.Exchange) {
	record := RecordFrom(exchange)
	w.Append(record)
}

// Append stores one record. Errors are recorded for Err.
func (w *Writer) Append(record Record) {
	frame, err := encodeFrame(record, w.compression)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if err != nil {
		w.err = err
		return
	}
	if _, err := w.destination.Write(frame); err != nil {
		w.err = fmt.Errorf("transcript: writing record: %w", err)
		return
	}
	w.records++
}

// Records reports how many records have been written.
func (w *Writer) Records() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close closes the file opened by OpenFile and returns the first write
// error, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer != nil {
		if err := w.closer.Close(); err != nil && w.err == nil {
			w.err = fmt.Errorf("transcript: %w", err)
		}
		w.closer = nil
	}
	return w.err
}

func encodeFrame(record Record, compression CompressionTag) ([]byte, error) {
	plain, err := codec.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("transcript: encoding record: %w", err)
	}
	stored, tag, err := compress(plain, compression)
	if err != nil {
		return nil, fmt.Errorf("transcript: compressing record: %w", err)
	}

	frame := make([]byte, 0, 1+2*binary.MaxVarintLen64+len(stored))
	frame = append(frame, byte(tag))
	frame = binary.AppendUvarint(frame, uint64(len(plain)))
	frame = binary.AppendUvarint(frame, uint64(len(stored)))
	frame = append(frame, stored...)
	return frame, nil
}
