package watermark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/artie-labs/starsync/lib/blob"
)

// Epoch is used when no watermark was ever written, every row is newer than it.
var Epoch = Watermark{ts: time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)}

var supportedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	time.DateTime,
	time.DateOnly,
}

type Watermark struct {
	ts time.Time
}

func New(ts time.Time) Watermark {
	return Watermark{ts: ts.UTC()}
}

func (w Watermark) Time() time.Time {
	return w.ts
}

func (w Watermark) IsEpoch() bool {
	return w.ts.Equal(Epoch.ts)
}

func (w Watermark) Before(other Watermark) bool {
	return w.ts.Before(other.ts)
}

func (w Watermark) Equal(other Watermark) bool {
	return w.ts.Equal(other.ts)
}

// Max returns the later of the two watermarks.
func Max(a, b Watermark) Watermark {
	if a.Before(b) {
		return b
	}
	return a
}

func (w Watermark) String() string {
	return w.ts.Format(time.RFC3339Nano)
}

func Parse(value string) (Watermark, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Watermark{}, fmt.Errorf("watermark is empty")
	}

	for _, layout := range supportedLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return New(ts), nil
		}
	}

	return Watermark{}, fmt.Errorf("failed to parse watermark %q", value)
}

type Store struct {
	blob blob.Store
	key  string
}

func NewStore(blobStore blob.Store, key string) *Store {
	return &Store{blob: blobStore, key: key}
}

func (s *Store) Key() string {
	return s.key
}

// Read never fails: anything that prevents us from reading a valid watermark falls back to [Epoch],
// which at worst means a full extraction.
func (s *Store) Read(ctx context.Context) Watermark {
	value, err := s.blob.ReadText(ctx, s.key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			slog.Info("No watermark found, starting from the beginning", slog.String("key", s.key))
		} else {
			slog.Warn("Failed to read the watermark, starting from the beginning", slog.String("key", s.key), slog.Any("err", err))
		}
		return Epoch
	}

	wm, err := Parse(value)
	if err != nil {
		slog.Warn("Failed to parse the watermark, starting from the beginning", slog.String("key", s.key), slog.Any("err", err))
		return Epoch
	}

	return wm
}

func (s *Store) Write(ctx context.Context, wm Watermark) error {
	if err := s.blob.WriteText(ctx, s.key, wm.String()); err != nil {
		return fmt.Errorf("failed to write watermark to %q: %w", s.key, err)
	}
	return nil
}
