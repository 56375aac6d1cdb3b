package types

// Dialect carries the SQL differences between database engines that the
// metadata layer needs: replacement statement templates and the
// read/write wrappers for typed columns.
type Dialect struct {
	Name string

	// Statements overrides canonical statement templates by name.
	Statements map[string]string

	// ColumnTypes overrides or adds column types by name.
	ColumnTypes map[string]ColumnType
}

// ColumnType wraps a column's read and write SQL. In Read, {col} is
// replaced with the quoted column reference; in Write, {bind} is replaced
// with the named bind token.
type ColumnType struct {
	Name  string
	Read  string
	Write string
}

// DialectProvider is implemented by a Database that needs SQL other than the
// MySQL-flavoured defaults.
type DialectProvider interface {
	Dialect() Dialect
}
