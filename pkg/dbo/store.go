package dbo

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Store runs the entity lifecycle against a database. The registry,
// identity map, logger and metrics are shared by every view returned from
// On.
type Store struct {
	db       types.Database
	registry *Registry
	identity *IdentityMap
	log      logrus.FieldLogger
	metrics  *Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry shares a metadata registry between stores.
func WithRegistry(r *Registry) Option {
	return func(s *Store) { s.registry = r }
}

// WithIdentityMap shares an identity map between stores.
func WithIdentityMap(m *IdentityMap) Option {
	return func(s *Store) { s.identity = m }
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics registers the store's counters under scope. The default is
// tally.NoopScope.
func WithMetrics(scope tally.Scope) Option {
	return func(s *Store) { s.metrics = NewMetrics(scope) }
}

// NewStore returns a store whose default datasource is db.
func NewStore(db types.Database, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.identity == nil {
		s.identity = NewIdentityMap()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(tally.NoopScope)
	}
	return s
}

// On returns a view of the store that loads and creates on db.
func (s *Store) On(db types.Database) *Store {
	view := *s
	view.db = db
	return &view
}

// Database returns the store's datasource.
func (s *Store) Database() types.Database { return s.db }

// Registry returns the metadata registry.
func (s *Store) Registry() *Registry { return s.registry }

// IdentityMap returns the identity map.
func (s *Store) IdentityMap() *IdentityMap { return s.identity }

// MetaFor returns the metadata of t on the store's datasource.
func (s *Store) MetaFor(t reflect.Type) (*Meta, error) {
	return s.registry.MetaFor(t, s.db)
}

// Meta returns the metadata of e on the datasource e is bound to.
func (s *Store) Meta(e Entity) (*Meta, error) {
	if v := reflect.ValueOf(e); e == nil || v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, fmt.Errorf("%w: nil entity", types.ErrInvalidArgument)
	}
	return s.registry.MetaFor(reflect.TypeOf(e), s.dbFor(e))
}

// dbFor returns the datasource a persisted entity is bound to, falling back
// to the store's own.
func (s *Store) dbFor(e Entity) types.Database {
	if db := e.record().db; db != nil {
		return db
	}
	return s.db
}
