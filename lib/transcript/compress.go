// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies how a frame's payload is stored. The values
// are part of the file format.
type CompressionTag uint8

const (
	// CompressionNone stores the record as is.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression: cheap, modest ratio.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level. Sync bodies are
	// repetitive JSON and usually shrink 5x or more.
	CompressionZstd CompressionTag = 2
)

func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses "none", "lz4" or "zstd".
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("transcript: unknown compression %q", name)
	}
}

func checkCompression(tag CompressionTag) error {
	switch tag {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return nil
	default:
		return fmt.Errorf("transcript: unsupported compression %d", tag)
	}
}

// errIncompressible means the compressed form would not be smaller.
var errIncompressible = errors.New("data is incompressible")

// compress returns data stored with tag, or data itself with
// CompressionNone when tag would not shrink it.
func compress(data []byte, tag CompressionTag) ([]byte, CompressionTag, error) {
	var (
		stored []byte
		err    error
	)
	switch tag {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		stored, err = compressLZ4(data)
	case CompressionZstd:
		stored, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("transcript: unsupported compression %d", tag)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return stored, tag, nil
}

// decompress reverses compress. plainSize must match exactly.
func decompress(stored []byte, tag CompressionTag, plainSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != plainSize {
			return nil, fmt.Errorf("stored frame is %d bytes, header says %d", len(stored), plainSize)
		}
		return stored, nil
	case CompressionLZ4:
		destination := make([]byte, plainSize)
		read, err := lz4.UncompressBlock(stored, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != plainSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, plainSize)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, plainSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != plainSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), plainSize)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

// The zstd encoder and decoder are safe for concurrent use and
// expensive to build, so one of each is shared.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("transcript: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("transcript: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}
