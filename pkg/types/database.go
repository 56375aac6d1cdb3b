package types

import "context"

// LockMode selects the kind of table lock taken by Database.Lock.
type LockMode int

// Supported lock modes.
const (
	LockRead LockMode = iota
	LockWrite
)

// String returns the SQL keyword for the lock mode.
func (m LockMode) String() string {
	switch m {
	case LockRead:
		return "READ"
	case LockWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// Bindings are the values bound to a statement's placeholders. A statement
// uses either positional (?) or named (:column) placeholders, never both.
type Bindings interface {
	bindings()
}

// Positional binds values to ? placeholders in order.
type Positional []any

// Named binds values to :name placeholders. Keys carry the leading colon,
// for example {":name": "Foo"}.
type Named map[string]any

func (Positional) bindings() {}
func (Named) bindings()      {}

// Row is a single fetched row keyed by column name.
type Row map[string]any

// Data is the flat column-keyed form of an entity produced by serialization
// and consumed by deserialization.
type Data map[string]any

// Database is the connection-level collaborator the ORM runs its statements
// through. Implementations are used by one request at a time; LastInsertID
// is only meaningful immediately after an insert on the same handle.
type Database interface {
	// Prepare compiles a statement for later execution.
	Prepare(ctx context.Context, query string) (Statement, error)

	// Execute prepares and runs a statement in one step.
	Execute(ctx context.Context, query string, args Bindings) (Result, error)

	// Transaction opens a single-level transaction.
	Transaction(ctx context.Context) error

	// Commit commits the open transaction.
	Commit(ctx context.Context) error

	// Rollback rolls back the open transaction.
	Rollback(ctx context.Context) error

	// Lock takes a table-level lock.
	Lock(ctx context.Context, table string, mode LockMode) error

	// Unlock releases every table lock held by this handle.
	Unlock(ctx context.Context) error

	// LastInsertID returns the id generated by the most recent insert.
	LastInsertID(ctx context.Context) (int64, error)

	// DSN identifies the datasource. It is part of every identity map key,
	// so two handles on the same database must report the same value.
	DSN() string
}

// Statement is a prepared statement.
type Statement interface {
	Execute(ctx context.Context, args Bindings) (Result, error)
}

// Result is the handle returned by executing a statement.
type Result interface {
	// FetchRow returns the next row. ok is false once the rows are
	// exhausted or when the statement produced no rows at all.
	FetchRow() (row Row, ok bool, err error)

	// Close releases the result.
	Close() error
}

//go:generate mockgen -destination=mocks/mock_database.go -package=mocks github.com/mesh-intelligence/dbo/pkg/types Database,Statement,Result
