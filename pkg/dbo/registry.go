package dbo

import (
	"reflect"
	"sync"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

type metaKey struct {
	typ reflect.Type
	dsn string
}

// Registry builds and caches entity metadata per (type, datasource). It is
// safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	metas  map[metaKey]*Meta
	builds int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{metas: make(map[metaKey]*Meta)}
}

// MetaFor returns the metadata of t on db, building it on first use. t may
// be the struct type or a pointer to it.
func (r *Registry) MetaFor(t reflect.Type, db types.Database) (*Meta, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	dsn := db.DSN()
	key := metaKey{typ: t, dsn: dsn}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.metas[key]; ok {
		return m, nil
	}

	var dialect types.Dialect
	if p, ok := db.(types.DialectProvider); ok {
		dialect = p.Dialect()
	}
	m, err := buildMeta(t, dsn, dialect)
	if err != nil {
		return nil, err
	}
	r.builds++
	r.metas[key] = m
	return m, nil
}

// Len returns the number of cached metadata entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.metas)
}
