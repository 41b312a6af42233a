package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// ErrTooLarge reports a payload bigger than the configured ceiling.
var ErrTooLarge = errors.New("storage: payload too large")

// zstd frame magic, little-endian 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// IsCompressed reports whether data starts a zstd frame. Raw pixel dumps are
// commonly stored compressed to save card space.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Decompress inflates a zstd-framed payload, returning data unchanged when
// it is not one. Decoder memory and the inflated size are capped at maxSize
// so a hostile frame cannot blow the heap.
func Decompress(data []byte, maxSize uint64) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxSize),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: zstd init: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("storage: zstd inflate: %w", ErrTooLarge)
		}
		return nil, fmt.Errorf("storage: zstd inflate: %w", err)
	}
	return out, nil
}
