package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
	"github.com/artie-labs/starsync/lib/watermark"
)

// ExtractionKeys records the queries already run during a single run, so the same table is never extracted twice.
type ExtractionKeys struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewExtractionKeys() *ExtractionKeys {
	return &ExtractionKeys{seen: make(map[string]bool)}
}

// claim returns false when [key] was already claimed.
func (k *ExtractionKeys) claim(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.seen[key] {
		return false
	}
	k.seen[key] = true
	return true
}

type Extractor struct {
	store   source.Store
	queries source.QuerySupplier
}

func NewExtractor(store source.Store, queries source.QuerySupplier) *Extractor {
	return &Extractor{store: store, queries: queries}
}

// Extract returns the rows of [table] changed since [wm]. A query already claimed in [keys] returns no rows
// without reaching the source.
func (e *Extractor) Extract(ctx context.Context, keys *ExtractionKeys, table schema.TableDescriptor, wm watermark.Watermark) ([]source.Row, error) {
	query, err := e.queries.Query(table.Name(), wm)
	if err != nil {
		return nil, err
	}

	if !keys.claim(table.Name() + "|" + query.Key()) {
		slog.Debug("Query was already extracted during this run, skipping", slog.String("table", table.Name()))
		return nil, nil
	}

	rows, err := e.store.Execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to extract rows: %w", err)
	}

	slog.Info("Extracted rows", slog.String("table", table.Name()), slog.Int("rows", len(rows)))
	return rows, nil
}
