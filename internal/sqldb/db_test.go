package sqldb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

const widgetSchema = "CREATE TABLE widget (widget_id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL DEFAULT '')"

func setupDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), types.Config{Driver: types.DriverSQLite})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Perform(context.Background(), widgetSchema))
	return db
}

func insertWidget(t *testing.T, db *DB, name string) int64 {
	t.Helper()
	ctx := context.Background()
	stmt, err := db.Prepare(ctx, "INSERT INTO `widget` (`name`) VALUES (:name)")
	require.NoError(t, err)
	res, err := stmt.Execute(ctx, types.Named{":name": name})
	require.NoError(t, err)
	require.NoError(t, res.Close())
	id, err := db.LastInsertID(ctx)
	require.NoError(t, err)
	return id
}

func TestOpenValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.Config
		err  error
	}{
		{name: "empty driver", cfg: types.Config{}, err: types.ErrDriverEmpty},
		{name: "unknown driver", cfg: types.Config{Driver: "oracle"}, err: types.ErrDriverUnknown},
		{name: "mysql without dsn", cfg: types.Config{Driver: types.DriverMySQL}, err: types.ErrDSNEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestResolveIdentity(t *testing.T) {
	_, source, identity, err := resolve(types.Config{Driver: types.DriverMySQL, DSN: "app:secret@tcp(db.local:3306)/shop?parseTime=true"})
	require.NoError(t, err)
	assert.Equal(t, "app:secret@tcp(db.local:3306)/shop?parseTime=true", source)
	assert.Equal(t, "mysql://app@db.local:3306/shop", identity)
	assert.NotContains(t, identity, "secret")

	_, _, identity, err = resolve(types.Config{Driver: types.DriverSQLite, DSN: "file:/var/lib/dbo/app.db?_pragma=busy_timeout(5000)"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///var/lib/dbo/app.db", identity)

	_, source, first, err := resolve(types.Config{Driver: types.DriverSQLite})
	require.NoError(t, err)
	assert.Equal(t, ":memory:", source)
	_, _, second, err := resolve(types.Config{Driver: types.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "sqlite://memory-"))
	assert.NotEqual(t, first, second, "every in-memory database has its own identity")
}

func TestExecuteNamedAndPositional(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	first := insertWidget(t, db, "Foo")
	second := insertWidget(t, db, "Bar")
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	res, err := db.Execute(ctx, "SELECT `widget_id`, `name` FROM `widget` WHERE `widget_id`=? LIMIT 1", types.Positional{second})
	require.NoError(t, err)
	row, ok, err := res.FetchRow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), row["widget_id"])
	assert.Equal(t, "Bar", row["name"])

	_, ok, err = res.FetchRow()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, res.Close())

	res, err = db.Execute(ctx, "SELECT `name` FROM `widget` WHERE `widget_id`=?", types.Positional{int64(99)})
	require.NoError(t, err)
	_, ok, err = res.FetchRow()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatementCache(t *testing.T) {
	db := setupDB(t)

	insertWidget(t, db, "a")
	insertWidget(t, db, "b")
	assert.Len(t, db.stmts, 1, "one driver statement per query text")
}

func TestTransactionRules(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, db.Commit(ctx), ErrNoTransaction)
	assert.ErrorIs(t, db.Rollback(ctx), ErrNoTransaction)

	require.NoError(t, db.Transaction(ctx))
	assert.ErrorIs(t, db.Transaction(ctx), ErrTransactionActive)
	require.NoError(t, db.Lock(ctx, "widget", types.LockWrite))
	insertWidget(t, db, "discarded")
	require.NoError(t, db.Rollback(ctx))
	require.NoError(t, db.Unlock(ctx))

	res, err := db.Execute(ctx, "SELECT COUNT(*) AS n FROM `widget`", nil)
	require.NoError(t, err)
	row, ok, err := res.FetchRow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), row["n"])

	require.NoError(t, db.Transaction(ctx))
	insertWidget(t, db, "kept")
	require.NoError(t, db.Commit(ctx))

	res, err = db.Execute(ctx, "SELECT COUNT(*) AS n FROM `widget`", nil)
	require.NoError(t, err)
	row, _, err = res.FetchRow()
	require.NoError(t, err)
	assert.Equal(t, int64(1), row["n"])
}

func TestObservers(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	var kinds []string
	handle := db.Observe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	require.NoError(t, db.Transaction(ctx))
	require.NoError(t, db.Lock(ctx, "widget", types.LockWrite))
	insertWidget(t, db, "x")
	require.NoError(t, db.Commit(ctx))
	require.NoError(t, db.Unlock(ctx))

	assert.Equal(t, []string{
		EventTransaction, EventLock, EventPrepare, EventExecute, EventLastInsertID, EventCommit, EventUnlock,
	}, kinds)

	db.StopObserving(handle)
	require.NoError(t, db.Perform(ctx, "DELETE FROM `widget`"))
	assert.Len(t, kinds, 7)
}

func TestClose(t *testing.T) {
	db, err := Open(context.Background(), types.Config{Driver: types.DriverSQLite, DSN: filepath.Join(t.TempDir(), "close.db")})
	require.NoError(t, err)
	require.NoError(t, db.Perform(context.Background(), widgetSchema))
	insertWidget(t, db, "a")

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.Execute(context.Background(), "SELECT 1", nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, db.Transaction(context.Background()), ErrClosed)
}

func TestIsQuery(t *testing.T) {
	assert.True(t, isQuery("SELECT 1"))
	assert.True(t, isQuery("  select * from t"))
	assert.True(t, isQuery("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.False(t, isQuery("INSERT INTO t SET a=1"))
	assert.False(t, isQuery(""))
}

func TestDialect(t *testing.T) {
	db := setupDB(t)
	d := db.Dialect()
	assert.Equal(t, types.DriverSQLite, d.Name)
	assert.Contains(t, d.Statements, "insert")
	assert.Contains(t, d.ColumnTypes, "date")
	assert.Equal(t, "sqlite", db.Driver())
}
