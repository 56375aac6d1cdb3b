package dbo

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Canonical statement names.
const (
	StatementSelect = "select"
	StatementInsert = "insert"
	StatementUpdate = "update"
	StatementDelete = "delete"
)

// canonicalStatements are the MySQL templates every entity type starts from.
var canonicalStatements = map[string]string{
	StatementSelect: "SELECT {columns} FROM {table} WHERE {key}=? LIMIT 1",
	StatementInsert: "INSERT INTO {table} SET {fieldset}",
	StatementUpdate: "UPDATE {table} SET {fieldset} WHERE {key}={keybind} LIMIT 1",
	StatementDelete: "DELETE FROM {table} WHERE {key}=?",
}

const (
	tagName  = "dbo"
	keyAttr  = "ID"
	tagSkip  = "-"
	listSep  = "|"
	optionEq = "="
)

var recordType = reflect.TypeOf(Record{})

// Column maps one attribute to one table column.
type Column struct {
	// Attr is the Go field name. The key column's attribute is "ID".
	Attr string

	// Name is the column name.
	Name string

	// Type is the column type wrapper, nil for plain columns.
	Type *types.ColumnType

	// Manual columns are never written by insert or update field sets.
	Manual bool

	// Key marks the primary key column.
	Key bool

	index []int
}

// Meta is the resolved mapping of one entity type on one datasource.
// A Meta is immutable once built and safe to share.
type Meta struct {
	typ     reflect.Type
	dsn     string
	table   string
	key     string
	columns []*Column
	byName  map[string]*Column
	manual  map[string]bool

	statements map[string]string
	factory    func(id int64) Entity
}

// Type returns the entity struct type.
func (m *Meta) Type() reflect.Type { return m.typ }

// DSN returns the datasource the metadata was built for.
func (m *Meta) DSN() string { return m.dsn }

// Table returns the table name.
func (m *Meta) Table() string { return m.table }

// Key returns the primary key column name.
func (m *Meta) Key() string { return m.key }

// Columns returns the column map in order: the key first, then the other
// columns in field declaration order.
func (m *Meta) Columns() []Column {
	out := make([]Column, len(m.columns))
	for i, c := range m.columns {
		out[i] = *c
	}
	return out
}

// Column looks up a column by name.
func (m *Meta) Column(name string) (Column, bool) {
	c, ok := m.byName[name]
	if !ok {
		return Column{}, false
	}
	return *c, true
}

// IsManual reports whether a column is excluded from field sets.
func (m *Meta) IsManual(name string) bool { return m.manual[name] }

// ManualColumns returns the manual column names, sorted.
func (m *Meta) ManualColumns() []string {
	out := make([]string, 0, len(m.manual))
	for name := range m.manual {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasFactory reports whether the entity type supplies its own instances.
func (m *Meta) HasFactory() bool { return m.factory != nil }

// SQL returns the expanded statement registered under name.
func (m *Meta) SQL(name string) (string, error) {
	s, ok := m.statements[name]
	if !ok {
		return "", fmt.Errorf("%w: %s has no %q statement", types.ErrConfiguration, m.typ, name)
	}
	return s, nil
}

// StatementNames returns the defined statement names, sorted.
func (m *Meta) StatementNames() []string {
	out := make([]string, 0, len(m.statements))
	for name := range m.statements {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CacheKey returns the identity map key of the row with the given id.
func (m *Meta) CacheKey(id int64) string {
	return CacheKeyFor(m.dsn, m.table, id)
}

// fieldColumns returns the non-manual columns in column order.
func (m *Meta) fieldColumns() []*Column {
	out := make([]*Column, 0, len(m.columns))
	for _, c := range m.columns {
		if !c.Manual {
			out = append(out, c)
		}
	}
	return out
}

// value returns the struct value behind e after checking it is this
// metadata's type.
func (m *Meta) value(e Entity) (reflect.Value, error) {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type() != m.typ {
		return reflect.Value{}, fmt.Errorf("%w: %T is not *%s", types.ErrInvalidArgument, e, m.typ)
	}
	return v.Elem(), nil
}

// newInstance builds a transient instance for a cache miss.
func (m *Meta) newInstance(id int64) (Entity, error) {
	if m.factory == nil {
		return reflect.New(m.typ).Interface().(Entity), nil
	}
	e := m.factory(id)
	if _, err := m.value(e); err != nil {
		return nil, fmt.Errorf("%w: factory returned %T", types.ErrConfiguration, e)
	}
	return e, nil
}

// buildMeta reflects over t once and expands every statement.
func buildMeta(t reflect.Type, dsn string, dialect types.Dialect) (*Meta, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", types.ErrConfiguration, t)
	}
	if !reflect.PointerTo(t).Implements(reflect.TypeOf((*Entity)(nil)).Elem()) {
		return nil, fmt.Errorf("%w: %s does not embed dbo.Record", types.ErrConfiguration, t)
	}

	b := &metaBuilder{typ: t, colTypes: columnTypes(dialect)}
	if err := b.walk(t, nil); err != nil {
		return nil, err
	}
	if !b.sawRecord {
		return nil, fmt.Errorf("%w: %s does not embed dbo.Record", types.ErrConfiguration, t)
	}
	if b.table == "" {
		return nil, fmt.Errorf("%w: %s declares no table", types.ErrConfiguration, t)
	}
	if b.key == "" {
		return nil, fmt.Errorf("%w: %s declares no key", types.ErrConfiguration, t)
	}

	m := &Meta{
		typ:    t,
		dsn:    dsn,
		table:  b.table,
		key:    b.key,
		byName: make(map[string]*Column),
		manual: map[string]bool{b.key: true},
	}
	for _, name := range b.manual {
		m.manual[name] = true
	}

	keyCol := &Column{Attr: keyAttr, Name: b.key, Manual: true, Key: true}
	m.columns = append(m.columns, keyCol)
	m.byName[keyCol.Name] = keyCol

	for _, c := range b.resolved() {
		if _, dup := m.byName[c.Name]; dup {
			return nil, fmt.Errorf("%w: %s maps column %q twice", types.ErrConfiguration, t, c.Name)
		}
		if m.manual[c.Name] {
			c.Manual = true
		}
		if c.Manual {
			m.manual[c.Name] = true
		}
		m.columns = append(m.columns, c)
		m.byName[c.Name] = c
	}

	sample := reflect.New(t).Interface()
	templates := make(map[string]string, len(canonicalStatements))
	for name, tmpl := range canonicalStatements {
		templates[name] = tmpl
	}
	for name, tmpl := range dialect.Statements {
		templates[name] = tmpl
	}
	if cs, ok := sample.(CustomSQL); ok {
		for name, tmpl := range cs.CustomSQL() {
			templates[name] = tmpl
		}
	}
	m.statements = make(map[string]string, len(templates))
	for name, tmpl := range templates {
		m.statements[name] = m.expand(tmpl)
	}

	if f, ok := sample.(Factory); ok {
		m.factory = f.NewForID
	}
	return m, nil
}

func columnTypes(d types.Dialect) map[string]types.ColumnType {
	out := make(map[string]types.ColumnType, len(defaultColumnTypes)+len(d.ColumnTypes))
	for name, ct := range defaultColumnTypes {
		out[name] = ct
	}
	for name, ct := range d.ColumnTypes {
		if ct.Name == "" {
			ct.Name = name
		}
		out[name] = ct
	}
	return out
}

type metaBuilder struct {
	typ       reflect.Type
	colTypes  map[string]types.ColumnType
	sawRecord bool
	table     string
	key       string
	manual    []string
	attrs     []*Column
}

func (b *metaBuilder) walk(t reflect.Type, index []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int(nil), index...), i)
		tag, tagged := f.Tag.Lookup(tagName)

		if f.Anonymous && f.Type == recordType {
			if b.sawRecord {
				continue
			}
			b.sawRecord = true
			if err := b.parseRecordTag(tag); err != nil {
				return err
			}
			continue
		}
		if tag == tagSkip {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct {
			return fmt.Errorf("%w: %s embeds %s by pointer", types.ErrConfiguration, b.typ, f.Type)
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !tagged && f.Type != timeType {
			if err := b.walk(f.Type, idx); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		col := &Column{Attr: f.Name, Name: columnName(f.Name), index: idx}
		if err := b.parseFieldTag(col, tag); err != nil {
			return err
		}
		b.attrs = append(b.attrs, col)
	}
	return nil
}

func (b *metaBuilder) parseRecordTag(tag string) error {
	for _, opt := range splitOptions(tag) {
		name, value, _ := strings.Cut(opt, optionEq)
		switch name {
		case "table":
			b.table = value
		case "key":
			b.key = value
		case "manual":
			for _, col := range strings.Split(value, listSep) {
				if col = strings.TrimSpace(col); col != "" {
					b.manual = append(b.manual, col)
				}
			}
		default:
			return fmt.Errorf("%w: %s: unknown record option %q", types.ErrConfiguration, b.typ, opt)
		}
	}
	return nil
}

func (b *metaBuilder) parseFieldTag(col *Column, tag string) error {
	for _, opt := range splitOptions(tag) {
		name, value, _ := strings.Cut(opt, optionEq)
		switch name {
		case "column":
			if value == "" {
				return fmt.Errorf("%w: %s.%s: empty column name", types.ErrConfiguration, b.typ, col.Attr)
			}
			col.Name = value
		case "type":
			ct, ok := b.colTypes[value]
			if !ok {
				return fmt.Errorf("%w: %s.%s: unknown column type %q", types.ErrConfiguration, b.typ, col.Attr, value)
			}
			col.Type = &ct
		case "manual":
			col.Manual = true
		default:
			return fmt.Errorf("%w: %s.%s: unknown option %q", types.ErrConfiguration, b.typ, col.Attr, opt)
		}
	}
	return nil
}

// resolved drops attributes shadowed by a shallower field of the same name,
// matching Go's field promotion.
func (b *metaBuilder) resolved() []*Column {
	best := make(map[string]*Column, len(b.attrs))
	for _, c := range b.attrs {
		if cur, ok := best[c.Attr]; !ok || len(c.index) < len(cur.index) {
			best[c.Attr] = c
		}
	}
	out := make([]*Column, 0, len(best))
	for _, c := range b.attrs {
		if best[c.Attr] == c {
			out = append(out, c)
		}
	}
	return out
}

func splitOptions(tag string) []string {
	var out []string
	for _, opt := range strings.Split(tag, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}
