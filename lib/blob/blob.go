package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

// Store reads and writes small text objects, such as the watermark.
type Store interface {
	// ReadText returns [ErrNotFound] (possibly wrapped) when [key] does not exist.
	ReadText(ctx context.Context, key string) (string, error)
	// WriteText fully overwrites [key].
	WriteText(ctx context.Context, key, value string) error
}
