package dbo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

// Load returns the canonical instance of the T row with the given id,
// fetching it on a cache miss.
//
//	w, err := dbo.Load[catalog.Widget](ctx, store, 1)
func Load[T any, P interface {
	*T
	Entity
}](ctx context.Context, s *Store, id any) (P, error) {
	e, err := s.LoadType(ctx, reflect.TypeOf((*T)(nil)).Elem(), id)
	if err != nil {
		return nil, err
	}
	p, ok := e.(P)
	if !ok {
		return nil, fmt.Errorf("%w: cached %T is not %T", types.ErrInvariantViolation, e, p)
	}
	return p, nil
}

// LoadType is Load for a type known only at run time. t may be the struct
// type or a pointer to it.
func (s *Store) LoadType(ctx context.Context, t reflect.Type, id any) (Entity, error) {
	n, err := coerceID(id)
	if err != nil {
		s.metrics.LoadFail.Inc(1)
		return nil, err
	}
	meta, err := s.registry.MetaFor(t, s.db)
	if err != nil {
		s.metrics.LoadFail.Inc(1)
		return nil, err
	}

	key := meta.CacheKey(n)
	if e, ok := s.identity.Lookup(key); ok {
		s.metrics.LoadHit.Inc(1)
		return e, nil
	}

	e, err := meta.newInstance(n)
	if err != nil {
		s.metrics.LoadFail.Inc(1)
		return nil, err
	}
	if err := s.fetch(ctx, meta, e, n); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			s.metrics.LoadNotFound.Inc(1)
		} else {
			s.metrics.LoadFail.Inc(1)
		}
		return nil, err
	}

	if err := s.identity.Register(key, e); err != nil {
		if winner, ok := s.identity.Lookup(key); ok {
			s.log.WithField("key", key).Debug("dbo: load lost registration race")
			s.metrics.LoadHit.Inc(1)
			return winner, nil
		}
		s.log.WithError(err).WithField("key", key).Error("dbo: register loaded entity")
		s.metrics.LoadFail.Inc(1)
		return nil, err
	}

	s.metrics.LoadMiss.Inc(1)
	s.log.WithFields(logrus.Fields{"table": meta.Table(), "id": n}).Debug("dbo: loaded")
	return e, nil
}

// fetch populates a fresh instance from the row with the given id.
func (s *Store) fetch(ctx context.Context, meta *Meta, e Entity, id int64) error {
	rec := e.record()
	if rec.id != 0 {
		return fmt.Errorf("%w: %s factory returned an instance with id %d", types.ErrInvalidState, meta.Type(), rec.id)
	}

	query, err := meta.SQL(StatementSelect)
	if err != nil {
		return err
	}
	res, err := s.db.Execute(ctx, query, types.Positional{id})
	if err != nil {
		return err
	}
	defer s.closeResult(res)

	row, ok, err := res.FetchRow()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s %d", types.ErrNotFound, meta.Table(), id)
	}

	if err := s.deserialize(ctx, meta, e, types.Data(row), false); err != nil {
		return err
	}
	rec.id = id
	rec.cacheKey = meta.CacheKey(id)
	rec.db = s.db
	return nil
}

// Create inserts a transient entity inside a write-locked transaction and
// registers it. On failure the entity is left transient, the transaction is
// rolled back and the lock released; the original error is returned.
func (s *Store) Create(ctx context.Context, e Entity) error {
	if err := s.create(ctx, e); err != nil {
		s.metrics.CreateFail.Inc(1)
		return err
	}
	s.metrics.CreateSuccess.Inc(1)
	return nil
}

func (s *Store) create(ctx context.Context, e Entity) error {
	meta, err := s.Meta(e)
	if err != nil {
		return err
	}
	rec := e.record()
	if rec.deleted {
		return fmt.Errorf("%w: %s was deleted", types.ErrInvalidState, meta.Type())
	}
	if rec.id != 0 {
		return fmt.Errorf("%w: %s %d is already created", types.ErrInvalidState, meta.Table(), rec.id)
	}
	db := s.dbFor(e)
	log := s.log.WithField("table", meta.Table())

	if err := db.Transaction(ctx); err != nil {
		return err
	}
	if err := db.Lock(ctx, meta.Table(), types.LockWrite); err != nil {
		s.abort(ctx, db, log, false)
		return err
	}

	if err := s.insert(ctx, db, meta, e); err != nil {
		rec.id = 0
		rec.cacheKey = ""
		s.abort(ctx, db, log, true)
		return err
	}

	if err := db.Commit(ctx); err != nil {
		s.identity.Evict(rec.cacheKey)
		rec.id = 0
		rec.cacheKey = ""
		rec.db = nil
		s.abort(ctx, db, log, true)
		return err
	}
	// The row is committed and registered; an unlock failure leaves the
	// entity created.
	if err := db.Unlock(ctx); err != nil {
		log.WithError(err).WithField("id", rec.id).Warn("dbo: unlock after create")
	}

	log.WithField("id", rec.id).Debug("dbo: created")
	return nil
}

func (s *Store) insert(ctx context.Context, db types.Database, meta *Meta, e Entity) error {
	query, err := meta.SQL(StatementInsert)
	if err != nil {
		return err
	}
	values, err := meta.fieldValues(e)
	if err != nil {
		return err
	}
	stmt, err := db.Prepare(ctx, query)
	if err != nil {
		return err
	}
	res, err := stmt.Execute(ctx, values)
	if err != nil {
		return err
	}
	s.closeResult(res)

	id, err := db.LastInsertID(ctx)
	if err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("%w: insert into %s reported id %d", types.ErrInvalidState, meta.Table(), id)
	}

	rec := e.record()
	rec.id = id
	key := meta.CacheKey(id)
	if err := s.identity.Register(key, e); err != nil {
		s.log.WithError(err).WithField("key", key).Error("dbo: register created entity")
		return err
	}
	rec.cacheKey = key
	rec.db = db
	return nil
}

// abort rolls back and optionally unlocks, logging rather than returning
// cleanup failures.
func (s *Store) abort(ctx context.Context, db types.Database, log logrus.FieldLogger, unlock bool) {
	if err := db.Rollback(ctx); err != nil {
		log.WithError(err).Warn("dbo: rollback")
	}
	if !unlock {
		return
	}
	if err := db.Unlock(ctx); err != nil {
		log.WithError(err).Warn("dbo: unlock")
	}
}

// Update writes the entity's field values to its row.
func (s *Store) Update(ctx context.Context, e Entity) error {
	if err := s.update(ctx, e); err != nil {
		s.metrics.UpdateFail.Inc(1)
		return err
	}
	s.metrics.UpdateSuccess.Inc(1)
	return nil
}

func (s *Store) update(ctx context.Context, e Entity) error {
	meta, err := s.persisted(e, "update")
	if err != nil {
		return err
	}
	query, err := meta.SQL(StatementUpdate)
	if err != nil {
		return err
	}
	values, err := meta.fieldValues(e)
	if err != nil {
		return err
	}
	rec := e.record()
	values[bindToken(meta.Key())] = rec.id

	db := s.dbFor(e)
	stmt, err := db.Prepare(ctx, query)
	if err != nil {
		return err
	}
	res, err := stmt.Execute(ctx, values)
	if err != nil {
		return err
	}
	s.closeResult(res)

	s.log.WithFields(logrus.Fields{"table": meta.Table(), "id": rec.id}).Debug("dbo: updated")
	return nil
}

// Delete removes the entity's row and evicts it. The instance keeps its
// field values but can no longer be persisted.
func (s *Store) Delete(ctx context.Context, e Entity) error {
	if err := s.delete(ctx, e); err != nil {
		s.metrics.DeleteFail.Inc(1)
		return err
	}
	s.metrics.DeleteSuccess.Inc(1)
	return nil
}

func (s *Store) delete(ctx context.Context, e Entity) error {
	meta, err := s.persisted(e, "delete")
	if err != nil {
		return err
	}
	query, err := meta.SQL(StatementDelete)
	if err != nil {
		return err
	}
	rec := e.record()
	id := rec.id

	res, err := s.dbFor(e).Execute(ctx, query, types.Positional{id})
	if err != nil {
		return err
	}
	s.closeResult(res)

	s.identity.Evict(rec.cacheKey)
	rec.id = 0
	rec.cacheKey = ""
	rec.db = nil
	rec.deleted = true

	s.log.WithFields(logrus.Fields{"table": meta.Table(), "id": id}).Debug("dbo: deleted")
	return nil
}

// persisted checks that e has an id and is the instance registered under
// its cache key.
func (s *Store) persisted(e Entity, op string) (*Meta, error) {
	meta, err := s.Meta(e)
	if err != nil {
		return nil, err
	}
	rec := e.record()
	if rec.id == 0 {
		return nil, fmt.Errorf("%w: %s of %s without id", types.ErrInvalidState, op, meta.Type())
	}
	cur, ok := s.identity.Lookup(rec.cacheKey)
	if !ok || cur != e {
		return nil, fmt.Errorf("%w: %s of %s %d: instance is not the registered one", types.ErrInvalidState, op, meta.Table(), rec.id)
	}
	return meta, nil
}

func (s *Store) closeResult(res types.Result) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		s.log.WithError(err).Warn("dbo: close result")
	}
}
