// Package dbo maps Go structs to table rows and keeps exactly one live
// instance per persisted row.
//
// An entity is a struct that embeds Record. The Record field's tag names the
// table and its primary key column; the struct's exported fields become
// columns, converted to snake_case unless tagged otherwise:
//
//	type Note struct {
//		dbo.Record `dbo:"table=note,key=note_id"`
//		Title      string
//		Due        time.Time     `dbo:"type=date"`
//		Reminder   time.Duration `dbo:"type=time"`
//		Scratch    string        `dbo:"-"`
//	}
//
// Metadata for each (type, datasource) pair is built once by a Registry and
// holds the expanded select, insert, update and delete statements plus any
// statements the type adds through CustomSQL.
//
// A Store runs the lifecycle. Load consults the IdentityMap before reading,
// so repeated loads of one row return the same pointer. Create inserts
// inside a write-locked transaction and registers the new instance; Update
// and Delete only accept the registered instance.
package dbo
