// Package sqldb implements types.Database over sqlx for MySQL and SQLite.
//
// A DB pins a single connection for its lifetime so transactions, table
// locks and LastInsertID all refer to the same session. A DB serves one
// request at a time.
package sqldb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

var (
	_ types.Database        = (*DB)(nil)
	_ types.DialectProvider = (*DB)(nil)
)

// DB is a database handle over one pinned connection.
type DB struct {
	mu        sync.Mutex
	eng       engine
	dsn       string
	pool      *sqlx.DB
	conn      *sqlx.Conn
	stmts     map[string]*sqlx.Stmt
	inTx      bool
	lastID    int64
	observers []observer
	log       logrus.FieldLogger
	closed    bool
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger statements are traced to at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(db *DB) { db.log = l }
}

// Open validates cfg, opens the driver and pins one connection.
func Open(ctx context.Context, cfg types.Config, opts ...Option) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, source, identity, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := sqlx.Open(eng.driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", eng.driver, err)
	}
	conn, err := pool.Connx(ctx)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("connect %s: %w", identity, err)
	}

	db := &DB{
		eng:   eng,
		dsn:   identity,
		pool:  pool,
		conn:  conn,
		stmts: make(map[string]*sqlx.Stmt),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.log == nil {
		db.log = logrus.StandardLogger()
	}
	db.log = db.log.WithField("dsn", identity)
	return db, nil
}

// DSN returns the datasource identity, with any password removed.
func (db *DB) DSN() string { return db.dsn }

// Driver returns the driver name.
func (db *DB) Driver() string { return db.eng.driver }

// Dialect returns the SQL dialect of the driver.
func (db *DB) Dialect() types.Dialect { return db.eng.dialect }

// Perform runs a statement outside the statement cache, for DDL.
func (db *DB) Perform(ctx context.Context, query string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	db.notify(Event{Kind: EventPerform, Query: query})
	db.log.WithField("sql", query).Debug("sqldb: perform")
	_, err := db.conn.ExecContext(ctx, query)
	return err
}

// Prepare returns a statement for query. The driver statement is compiled
// and cached on first execution, once named bindings have been resolved.
func (db *DB) Prepare(ctx context.Context, query string) (types.Statement, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	db.notify(Event{Kind: EventPrepare, Query: query})
	return &statement{db: db, query: query}, nil
}

// Execute runs query with args.
func (db *DB) Execute(ctx context.Context, query string, args types.Bindings) (types.Result, error) {
	return db.execute(ctx, query, args)
}

func (db *DB) execute(ctx context.Context, query string, args types.Bindings) (types.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	q, params, err := db.bind(query, args)
	if err != nil {
		return nil, err
	}
	db.notify(Event{Kind: EventExecute, Query: query, Args: params})
	db.log.WithFields(logrus.Fields{"sql": q, "args": len(params)}).Debug("sqldb: execute")

	stmt, err := db.prepared(ctx, q)
	if err != nil {
		return nil, err
	}

	if !isQuery(q) {
		res, err := stmt.ExecContext(ctx, params...)
		if err != nil {
			return nil, err
		}
		if id, err := res.LastInsertId(); err == nil && id != 0 {
			db.lastID = id
		}
		return &result{}, nil
	}

	rows, err := stmt.QueryxContext(ctx, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &result{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		res.rows = append(res.rows, types.Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// bind resolves bindings into driver placeholders and arguments.
func (db *DB) bind(query string, args types.Bindings) (string, []any, error) {
	switch a := args.(type) {
	case nil:
		return query, nil, nil
	case types.Positional:
		return query, []any(a), nil
	case types.Named:
		m := make(map[string]any, len(a))
		for k, v := range a {
			m[strings.TrimPrefix(k, ":")] = v
		}
		q, params, err := sqlx.Named(query, m)
		if err != nil {
			return "", nil, fmt.Errorf("bind %q: %w", query, err)
		}
		return db.pool.Rebind(q), params, nil
	default:
		return "", nil, fmt.Errorf("%w: bindings of type %T", types.ErrInvalidArgument, args)
	}
}

// prepared must be called with db.mu held.
func (db *DB) prepared(ctx context.Context, q string) (*sqlx.Stmt, error) {
	if stmt, ok := db.stmts[q]; ok {
		return stmt, nil
	}
	stmt, err := db.conn.PreparexContext(ctx, q)
	if err != nil {
		return nil, err
	}
	db.stmts[q] = stmt
	return stmt, nil
}

func isQuery(q string) bool {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE":
		return true
	}
	return false
}

// Transaction opens a transaction. Transactions do not nest.
func (db *DB) Transaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	if db.inTx {
		return ErrTransactionActive
	}
	db.notify(Event{Kind: EventTransaction})
	for _, q := range db.eng.begin {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	db.inTx = true
	return nil
}

// Commit commits the open transaction.
func (db *DB) Commit(ctx context.Context) error {
	return db.finish(ctx, EventCommit, db.eng.commit)
}

// Rollback rolls back the open transaction.
func (db *DB) Rollback(ctx context.Context) error {
	return db.finish(ctx, EventRollback, db.eng.rollback)
}

// finish ends the transaction once the first statement succeeds; a failed
// COMMIT leaves it open for Rollback.
func (db *DB) finish(ctx context.Context, kind string, stmts []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	if !db.inTx {
		return ErrNoTransaction
	}
	db.notify(Event{Kind: kind})
	for i, q := range stmts {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return err
		}
		if i == 0 {
			db.inTx = false
		}
	}
	return nil
}

// Lock takes a table lock. It is a no-op on SQLite, where the transaction
// already holds the database write lock.
func (db *DB) Lock(ctx context.Context, table string, mode types.LockMode) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	ev := Event{Kind: EventLock, Table: table}
	if db.eng.lock != nil {
		ev.Query = db.eng.lock(table, mode)
	}
	db.notify(ev)
	if ev.Query == "" {
		return nil
	}
	_, err := db.conn.ExecContext(ctx, ev.Query)
	return err
}

// Unlock releases every table lock held by the connection.
func (db *DB) Unlock(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	db.notify(Event{Kind: EventUnlock, Query: db.eng.unlock})
	if db.eng.unlock == "" {
		return nil
	}
	_, err := db.conn.ExecContext(ctx, db.eng.unlock)
	return err
}

// LastInsertID returns the id generated by the most recent insert on this
// connection.
func (db *DB) LastInsertID(ctx context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return 0, ErrClosed
	}
	db.notify(Event{Kind: EventLastInsertID, ID: db.lastID})
	return db.lastID, nil
}

// Close releases cached statements, the pinned connection and the pool.
// Closing twice is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	var err error
	for _, stmt := range db.stmts {
		err = multierr.Append(err, stmt.Close())
	}
	db.stmts = nil
	err = multierr.Append(err, db.conn.Close())
	err = multierr.Append(err, db.pool.Close())
	return err
}
