package dbo

import (
	"strings"
)

// quote wraps an identifier in backticks.
func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// bindToken is the named placeholder of a column.
func bindToken(column string) string {
	return ":" + column
}

// readExpr is the select-list entry of a column, optionally qualified with
// the table name. Typed and qualified columns are aliased back to the bare
// column name so fetched rows are keyed by column.
func (m *Meta) readExpr(c *Column, qualified bool) string {
	ref := quote(c.Name)
	if qualified {
		ref = quote(m.table) + "." + ref
	}
	if c.Type != nil {
		return strings.ReplaceAll(c.Type.Read, "{col}", ref) + " AS " + quote(c.Name)
	}
	if qualified {
		return ref + " AS " + quote(c.Name)
	}
	return ref
}

// writeExpr is the value side of a column assignment.
func writeExpr(c *Column) string {
	if c.Type != nil {
		return strings.ReplaceAll(c.Type.Write, "{bind}", bindToken(c.Name))
	}
	return bindToken(c.Name)
}

// ColumnsSQL returns the comma-separated select list of every non-manual
// column, prefixed with the table name when qualified is set. An entity
// whose columns are all manual selects its key so the row can still be
// found.
func (m *Meta) ColumnsSQL(qualified bool) string {
	cols := m.fieldColumns()
	if len(cols) == 0 {
		cols = m.columns[:1]
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = m.readExpr(c, qualified)
	}
	return strings.Join(parts, ", ")
}

// FieldSetSQL returns the `col`=:col assignments of every non-manual
// column.
func (m *Meta) FieldSetSQL() string {
	cols := m.fieldColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quote(c.Name) + "=" + writeExpr(c)
	}
	return strings.Join(parts, ", ")
}

func (m *Meta) colNamesSQL() string {
	cols := m.fieldColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quote(c.Name)
	}
	return strings.Join(parts, ", ")
}

func (m *Meta) bindsSQL() string {
	cols := m.fieldColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = writeExpr(c)
	}
	return strings.Join(parts, ", ")
}

// expand substitutes every placeholder in a statement template. Unknown
// placeholders are left as written.
func (m *Meta) expand(tmpl string) string {
	columns := m.ColumnsSQL(false)
	r := strings.NewReplacer(
		"{table}", quote(m.table),
		"{key}", quote(m.key),
		"{keybind}", bindToken(m.key),
		"{columns}", columns,
		"{colspec}", columns,
		"{fieldset}", m.FieldSetSQL(),
		"{colnames}", m.colNamesSQL(),
		"{binds}", m.bindsSQL(),
	)
	return r.Replace(tmpl)
}
