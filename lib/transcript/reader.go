// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/matrixwire/lib/codec"
)

// MaxRecordSize bounds the plain and stored size of one frame. The
// framer caps response bodies far below this; anything larger is
// corruption.
const MaxRecordSize = 64 << 20

// ErrNotTranscript is returned by NewReader when the header is wrong.
var ErrNotTranscript = errors.New("transcript: not a transcript file")

// Reader reads records in the order they were written.
type Reader struct {
	source *bufio.Reader
	index  int
}

// NewReader checks the header and returns a Reader positioned at the
// first record.
func NewReader(source io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(source)
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(buffered, header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotTranscript, err)
	}
	if !bytes.Equal(header, magic) {
		return nil, ErrNotTranscript
	}
	return &Reader{source: buffered}, nil
}

// Next returns the next record, or io.EOF after the last one. A frame
// cut short by a crash mid-write is reported as io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	tagByte, err := r.source.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("transcript: record %d: %w", r.index, err)
	}
	plainSize, err := r.readSize()
	if err != nil {
		return Record{}, err
	}
	storedSize, err := r.readSize()
	if err != nil {
		return Record{}, err
	}

	stored := make([]byte, storedSize)
	if _, err := io.ReadFull(r.source, stored); err != nil {
		return Record{}, fmt.Errorf("transcript: record %d: %w", r.index, io.ErrUnexpectedEOF)
	}
	plain, err := decompress(stored, CompressionTag(tagByte), plainSize)
	if err != nil {
		return Record{}, fmt.Errorf("transcript: record %d: %w", r.index, err)
	}

	var record Record
	if err := codec.Unmarshal(plain, &record); err != nil {
		return Record{}, fmt.Errorf("transcript: record %d: decoding: %w", r.index, err)
	}
	r.index++
	return record, nil
}

func (r *Reader) readSize() (int, error) {
	size, err := binary.ReadUvarint(r.source)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("transcript: record %d: %w", r.index, err)
	}
	if size > MaxRecordSize {
		return 0, fmt.Errorf("transcript: record %d: size %d exceeds %d", r.index, size, MaxRecordSize)
	}
	return int(size), nil
}

// ReadAll reads every record from source.
func ReadAll(source io.Reader) ([]Record, error) {
	reader, err := NewReader(source)
	if err != nil {
		return nil, err
	}
	var records []Record
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}
