// Package catalog declares the entity types the dbo command manages.
package catalog

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/dbo/pkg/dbo"
	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Widget is the minimal entity: one text column.
type Widget struct {
	dbo.Record `dbo:"table=widget,key=widget_id"`
	Name       string
}

// Note exercises typed columns, serialization hooks and a custom statement.
type Note struct {
	dbo.Record `dbo:"table=note,key=note_id"`
	Title      string
	Body       string
	Due        time.Time     `dbo:"type=date"`
	Posted     time.Time     `dbo:"type=datetime"`
	Reminder   time.Duration `dbo:"type=time"`
}

// StatementByTitle finds a note id by exact title.
const StatementByTitle = "by_title"

// CustomSQL adds the by-title lookup.
func (*Note) CustomSQL() map[string]string {
	return map[string]string{
		StatementByTitle: "SELECT {key} FROM {table} WHERE `title`=:title ORDER BY {key} LIMIT 1",
	}
}

type wordCount struct {
	body string
	n    int
}

// Words returns the number of words in the body.
func (n *Note) Words() int {
	if wc, ok := n.Memo("words").(wordCount); ok && wc.body == n.Body {
		return wc.n
	}
	wc := wordCount{body: n.Body, n: len(strings.Fields(n.Body))}
	n.SetMemo("words", wc)
	return wc.n
}

// ToData adds the computed word count to the stored columns.
func (n *Note) ToData(meta *dbo.Meta) (types.Data, error) {
	data, err := meta.ToData(n)
	if err != nil {
		return nil, err
	}
	data["words"] = n.Words()
	return data, nil
}

// FromData drops memoized values before assigning the columns.
func (n *Note) FromData(meta *dbo.Meta, data types.Data) error {
	n.ClearMemo()
	return meta.FromData(n, data)
}

// NoteByTitle loads the first note with the given title.
func NoteByTitle(ctx context.Context, s *dbo.Store, title string) (*Note, error) {
	meta, err := s.MetaFor(reflect.TypeOf(Note{}))
	if err != nil {
		return nil, err
	}
	query, err := meta.SQL(StatementByTitle)
	if err != nil {
		return nil, err
	}

	res, err := s.Database().Execute(ctx, query, types.Named{":title": title})
	if err != nil {
		return nil, err
	}
	defer res.Close()

	row, ok, err := res.FetchRow()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: note titled %q", types.ErrNotFound, title)
	}
	return dbo.Load[Note](ctx, s, row[meta.Key()])
}

// entities maps command-line entity names to their types.
var entities = map[string]reflect.Type{
	"widget": reflect.TypeOf(Widget{}),
	"note":   reflect.TypeOf(Note{}),
}

// Names returns the entity names, sorted.
func Names() []string {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the entity type registered under name.
func Lookup(name string) (reflect.Type, bool) {
	t, ok := entities[name]
	return t, ok
}

// New returns a transient instance of the named entity.
func New(name string) (dbo.Entity, bool) {
	t, ok := entities[name]
	if !ok {
		return nil, false
	}
	return reflect.New(t).Interface().(dbo.Entity), true
}
