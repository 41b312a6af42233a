package sdimage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jpfielding/sdimage.go/pkg/decode"
	"github.com/jpfielding/sdimage.go/pkg/storage"
)

// A failed load surfaces exactly one of these sentinels, wrapped with
// detail. ErrInsufficientMemory never fails a load: the orchestrator
// recovers it with the fallback pattern, and the sentinel appears only in
// logs and in the classification of lower-layer errors.
var (
	ErrFileNotFound       = errors.New("sdimage: file not found")
	ErrFileTooLarge       = errors.New("sdimage: file too large")
	ErrInvalidFormat      = errors.New("sdimage: invalid format")
	ErrCorruptData        = errors.New("sdimage: corrupt data")
	ErrMissingDimensions  = errors.New("sdimage: missing dimensions")
	ErrInsufficientMemory = errors.New("sdimage: insufficient memory")
	ErrSizeMismatch       = errors.New("sdimage: size mismatch")
	ErrCancelled          = errors.New("sdimage: cancelled")
)

var taxonomy = []error{
	ErrFileNotFound, ErrFileTooLarge, ErrInvalidFormat, ErrCorruptData,
	ErrMissingDimensions, ErrInsufficientMemory, ErrSizeMismatch, ErrCancelled,
}

// classify maps lower-layer errors into the load taxonomy. Errors already
// carrying a sentinel pass through unchanged so double wrapping never occurs.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isTaxonomy(err):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrFileNotFound, err)
	case errors.Is(err, storage.ErrTooLarge):
		return fmt.Errorf("%w: %w", ErrFileTooLarge, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	case errors.Is(err, decode.ErrTooManyTileFailures):
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	case errors.Is(err, decode.ErrInsufficientMemory):
		return fmt.Errorf("%w: %w", ErrInsufficientMemory, err)
	default:
		return err
	}
}

func isTaxonomy(err error) bool {
	for _, s := range taxonomy {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
