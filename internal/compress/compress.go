// Package compress wraps zstd for frame bodies and field payloads.
package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// MaxDecodedSize bounds a single decompression.
const MaxDecodedSize = 64 << 20

var ErrTooLarge = errors.New("decompressed size exceeds limit")

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error

	decOnce sync.Once
	dec     *zstd.Decoder
	decErr  error
)

// EncodeAll and DecodeAll are safe for concurrent use, so one of each is shared.
func encoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		enc, encErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1),
		)
	})
	return enc, encErr
}

func decoder() (*zstd.Decoder, error) {
	decOnce.Do(func() {
		dec, decErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxDecodedSize),
		)
	})
	return dec, decErr
}

// Compress appends the zstd encoding of src to dst.
func Compress(dst, src []byte) ([]byte, error) {
	e, err := encoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return e.EncodeAll(src, dst), nil
}

// Decompress appends the decoded form of src to dst. maxSize <= 0 means
// MaxDecodedSize.
func Decompress(dst, src []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 || maxSize > MaxDecodedSize {
		maxSize = MaxDecodedSize
	}
	d, err := decoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	start := len(dst)
	out, err := d.DecodeAll(src, dst)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if len(out)-start > maxSize {
		return nil, ErrTooLarge
	}
	return out, nil
}
