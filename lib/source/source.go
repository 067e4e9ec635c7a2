package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/artie-labs/starsync/lib/watermark"
)

// Row is one extracted record keyed by column name. It is passed to the warehouse verbatim.
type Row = map[string]any

type Query struct {
	Text string
	Args []any
}

func NewQuery(text string, args ...any) Query {
	return Query{Text: text, Args: args}
}

// Key identifies a query within a run, two queries with the same key return the same rows.
func (q Query) Key() string {
	var sb strings.Builder
	sb.WriteString(q.Text)
	for _, arg := range q.Args {
		sb.WriteString(fmt.Sprintf("|%v", arg))
	}
	return sb.String()
}

type Store interface {
	Execute(ctx context.Context, query Query) ([]Row, error)
}

// QuerySupplier returns the extraction query for [table] selecting the rows changed since [wm].
type QuerySupplier interface {
	Query(table string, wm watermark.Watermark) (Query, error)
}
