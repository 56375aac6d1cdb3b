package dbo

import (
	"fmt"
	"strconv"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// CacheKeyFor returns the identity map key of a row: "<dsn>/<table>/<id>".
func CacheKeyFor(dsn, table string, id int64) string {
	return dsn + "/" + table + "/" + strconv.FormatInt(id, 10)
}

// IdentityMap holds the one live instance of every persisted row. Entries
// are never evicted except by delete.
type IdentityMap struct {
	entries *xsync.MapOf[string, Entity]
}

// NewIdentityMap returns an empty identity map.
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{entries: xsync.NewMapOf[string, Entity]()}
}

// Lookup returns the instance registered under key.
func (m *IdentityMap) Lookup(key string) (Entity, bool) {
	return m.entries.Load(key)
}

// Register maps key to e. Registering the instance already held is a no-op;
// a different instance under the same key is an invariant violation.
func (m *IdentityMap) Register(key string, e Entity) error {
	actual, loaded := m.entries.LoadOrStore(key, e)
	if loaded && actual != e {
		return fmt.Errorf("%w: %s is held by another instance", types.ErrInvariantViolation, key)
	}
	return nil
}

// Evict removes key.
func (m *IdentityMap) Evict(key string) {
	m.entries.Delete(key)
}

// Len returns the number of registered instances.
func (m *IdentityMap) Len() int {
	return m.entries.Size()
}
