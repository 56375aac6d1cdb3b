package dbo

import (
	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Record is embedded by every persistent entity struct. Its struct tag
// declares the table the entity maps to:
//
//	type Widget struct {
//		dbo.Record `dbo:"table=widget,key=widget_id"`
//		Name string
//	}
//
// Record holds the state the store tracks for an instance: its id, its
// identity map key and the datasource it was loaded from or created on. The
// zero Record is a transient entity.
type Record struct {
	id       int64
	cacheKey string
	db       types.Database
	deleted  bool

	serializing   bool
	deserializing bool

	memo map[string]any
}

// Entity is a pointer to a struct that embeds Record.
type Entity interface {
	record() *Record
}

func (r *Record) record() *Record { return r }

// ID returns the primary key value, or 0 when the entity has not been
// created or loaded.
func (r *Record) ID() int64 { return r.id }

// HasID reports whether the entity is persisted.
func (r *Record) HasID() bool { return r.id != 0 }

// CacheKey returns the identity map key, or "" for a transient entity.
func (r *Record) CacheKey() string { return r.cacheKey }

// Deleted reports whether the entity has been deleted through the store.
func (r *Record) Deleted() bool { return r.deleted }

// Serializing reports whether a serialization hook is running for this
// instance.
func (r *Record) Serializing() bool { return r.serializing }

// Deserializing reports whether a deserialization hook is running for this
// instance.
func (r *Record) Deserializing() bool { return r.deserializing }

// HasMemo reports whether a derived value is memoized under name.
func (r *Record) HasMemo(name string) bool {
	_, ok := r.memo[name]
	return ok
}

// Memo returns the value memoized under name, or nil.
func (r *Record) Memo(name string) any {
	return r.memo[name]
}

// SetMemo memoizes value under name and returns it.
func (r *Record) SetMemo(name string, value any) any {
	if r.memo == nil {
		r.memo = make(map[string]any)
	}
	r.memo[name] = value
	return value
}

// ClearMemo drops every memoized value.
func (r *Record) ClearMemo() {
	r.memo = nil
}

// Factory is implemented by entity types that control instantiation on a
// cache miss. NewForID must return a fresh instance of the same type with no
// id; the store fills it from the fetched row.
type Factory interface {
	NewForID(id int64) Entity
}

// Serializer replaces the default field-to-data conversion.
type Serializer interface {
	ToData(meta *Meta) (types.Data, error)
}

// Deserializer replaces the default data-to-field assignment.
type Deserializer interface {
	FromData(meta *Meta, data types.Data) error
}

// CustomSQL is implemented by entity types that add statements or replace
// the canonical ones. Templates are expanded with the same placeholders as
// the canonical statements.
type CustomSQL interface {
	CustomSQL() map[string]string
}

// IDOf returns the id of any entity, or 0 when it is transient.
func IDOf(e Entity) int64 { return e.record().id }
