package sqldb

import (
	"github.com/google/uuid"
)

// Event kinds.
const (
	EventPerform      = "perform"
	EventPrepare      = "prepare"
	EventExecute      = "execute"
	EventLastInsertID = "lastInsertId"
	EventTransaction  = "transaction"
	EventCommit       = "commit"
	EventRollback     = "rollback"
	EventLock         = "lock"
	EventUnlock       = "unlock"
)

// Event describes one call made on a DB.
type Event struct {
	Kind  string
	Query string
	Args  []any
	Table string
	ID    int64
}

type observer struct {
	handle string
	fn     func(Event)
}

// Observe registers fn to receive every event and returns a handle for
// StopObserving. Observers run synchronously and must not call back into
// the DB.
func (db *DB) Observe(fn func(Event)) string {
	db.mu.Lock()
	defer db.mu.Unlock()

	handle := uuid.NewString()
	db.observers = append(db.observers, observer{handle: handle, fn: fn})
	return handle
}

// StopObserving removes the observer registered under handle.
func (db *DB) StopObserving(handle string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, o := range db.observers {
		if o.handle == handle {
			db.observers = append(db.observers[:i:i], db.observers[i+1:]...)
			return
		}
	}
}

// notify must be called with db.mu held.
func (db *DB) notify(ev Event) {
	for _, o := range db.observers {
		o.fn(ev)
	}
}
