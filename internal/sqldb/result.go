package sqldb

import (
	"context"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// result holds the rows of a query, read eagerly so the pinned connection
// is free for the next statement.
type result struct {
	rows []types.Row
	pos  int
}

func (r *result) FetchRow() (types.Row, bool, error) {
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true, nil
}

func (r *result) Close() error {
	r.rows = nil
	return nil
}

// statement is a query compiled on first execution. Named queries compile
// to one driver statement per bound query text.
type statement struct {
	db    *DB
	query string
}

func (s *statement) Execute(ctx context.Context, args types.Bindings) (types.Result, error) {
	return s.db.execute(ctx, s.query, args)
}
