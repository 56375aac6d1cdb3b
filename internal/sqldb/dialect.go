package sqldb

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// engine holds the per-driver SQL for transactions and locks.
type engine struct {
	driver   string
	begin    []string
	commit   []string
	rollback []string
	lock     func(table string, mode types.LockMode) string
	unlock   string
	dialect  types.Dialect
}

var mysqlEngine = engine{
	driver:   "mysql",
	begin:    []string{"SET autocommit=0"},
	commit:   []string{"COMMIT", "SET autocommit=1"},
	rollback: []string{"ROLLBACK", "SET autocommit=1"},
	lock: func(table string, mode types.LockMode) string {
		return fmt.Sprintf("LOCK TABLES `%s` %s", strings.ReplaceAll(table, "`", "``"), mode)
	},
	unlock:  "UNLOCK TABLES",
	dialect: types.Dialect{Name: types.DriverMySQL},
}

// SQLite has no table locks; BEGIN IMMEDIATE takes the database write lock
// for the whole transaction instead.
var sqliteEngine = engine{
	driver:   "sqlite",
	begin:    []string{"BEGIN IMMEDIATE"},
	commit:   []string{"COMMIT"},
	rollback: []string{"ROLLBACK"},
	dialect: types.Dialect{
		Name: types.DriverSQLite,
		Statements: map[string]string{
			"insert": "INSERT INTO {table} ({colnames}) VALUES ({binds})",
			"update": "UPDATE {table} SET {fieldset} WHERE {key}={keybind}",
		},
		ColumnTypes: map[string]types.ColumnType{
			"date": {
				Name:  "date",
				Read:  "CAST(strftime('%s', {col}) AS INTEGER)",
				Write: "date({bind}, 'unixepoch')",
			},
			"datetime": {
				Name:  "datetime",
				Read:  "CAST(strftime('%s', {col}) AS INTEGER)",
				Write: "datetime({bind}, 'unixepoch')",
			},
			"time": {
				Name:  "time",
				Read:  "(CAST(strftime('%s', {col}) AS INTEGER) % 86400)",
				Write: "time({bind}, 'unixepoch')",
			},
		},
	},
}

// resolve returns the engine, the driver data source and the identity DSN
// for a validated config.
func resolve(cfg types.Config) (engine, string, string, error) {
	switch cfg.Driver {
	case types.DriverMySQL:
		parsed, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return engine{}, "", "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		identity := "mysql://" + parsed.User + "@" + parsed.Addr + "/" + parsed.DBName
		return mysqlEngine, cfg.DSN, identity, nil

	case types.DriverSQLite:
		source := cfg.DSN
		if isMemory(source) {
			if source == "" {
				source = ":memory:"
			}
			return sqliteEngine, source, "sqlite://memory-" + uuid.NewString(), nil
		}
		return sqliteEngine, source, "sqlite://" + sqlitePath(source), nil

	default:
		return engine{}, "", "", types.ErrDriverUnknown
	}
}

func isMemory(source string) bool {
	return source == "" || source == ":memory:" ||
		strings.HasPrefix(source, "file::memory:") ||
		strings.Contains(source, "mode=memory")
}

// sqlitePath strips the file: scheme and query options from a SQLite
// source.
func sqlitePath(source string) string {
	path := strings.TrimPrefix(source, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	return path
}
