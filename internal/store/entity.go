package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds re-runs of a read-modify-write transaction that
// lost Badger's optimistic conflict check.
const maxConflictRetries = 3

// Entity provides generic CRUD operations for any domain type.
type Entity[T any] struct {
	store    *Badger
	prefix   string
	notFound *Error
	indexes  []Index[T]
	lookups  []Lookup[T]
}

// Index is a unique secondary index: one value maps to one id.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string
}

// Lookup is a non-unique secondary index: one value maps to many ids.
type Lookup[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Badger, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix, notFound: ErrNotFound}
}

// WithNotFound sets the error returned for missing records.
func (e *Entity[T]) WithNotFound(err *Error) *Entity[T] {
	e.notFound = err
	return e
}

// WithIndex adds a unique secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithIndexTransform adds a unique secondary index whose lookup values are
// passed through lookupTransform first (case folding and the like).
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen, lookupTransform: lookupTransform})
	return e
}

// WithLookup adds a non-unique secondary index. Empty values are not filed.
func (e *Entity[T]) WithLookup(name string, keyGen func(*T) []string) *Entity[T] {
	e.lookups = append(e.lookups, Lookup[T]{name: name, keyGen: keyGen})
	return e
}

// Create stores a new entity under id.
// Returns ErrAlreadyExists if the id or a unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := marshal(entity)
	if err != nil {
		return err
	}

	key := []byte(e.prefix + id)
	return e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		return e.writeIndexes(txn, id, nil, entity)
	})
}

// Get retrieves an entity by ID.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetByIndex retrieves an entity by unique secondary index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(e.prefix, indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return e.notFound
		}
		if err != nil {
			return err
		}

		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}

		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ListByLookup returns every entity filed under value in the named lookup.
func (e *Entity[T]) ListByLookup(ctx context.Context, name, value string) ([]*T, error) {
	var out []*T
	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = lookupPrefix(e.prefix, name, value)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			entity, err := e.read(txn, lookupID(it.Item().Key()))
			if errors.Is(err, e.notFound) {
				continue // lookup outlived its record
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces an existing entity.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	_, err := e.Mutate(ctx, id, func(current *T) error {
		*current = *entity
		return nil
	})
	return err
}

// Mutate loads the entity, applies fn and writes the result in a single
// transaction, keeping indexes in step. If fn returns an error nothing is
// written and that error is returned.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *T
	for attempt := 0; ; attempt++ {
		err := e.store.db.Update(func(txn *badger.Txn) error {
			old, err := e.read(txn, id)
			if err != nil {
				return err
			}

			// fn gets its own copy so old stays intact for index cleanup.
			next, err := e.read(txn, id)
			if err != nil {
				return err
			}
			if err := fn(next); err != nil {
				return err
			}

			data, err := marshal(next)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(e.prefix+id), data); err != nil {
				return fmt.Errorf("failed to set key: %w", err)
			}
			if err := e.writeIndexes(txn, id, old, next); err != nil {
				return err
			}
			result = next
			return nil
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// Delete removes an entity and its index keys. Missing ids are not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		return e.deleteTxn(txn, id)
	})
}

func (e *Entity[T]) deleteTxn(txn *badger.Txn, id string) error {
	old, err := e.read(txn, id)
	if errors.Is(err, e.notFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(old) {
			if err := txn.Delete(indexKey(e.prefix, idx.name, v)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	for _, lk := range e.lookups {
		for _, v := range lk.keyGen(old) {
			if v == "" {
				continue
			}
			if err := txn.Delete(lookupKey(e.prefix, lk.name, v, id)); err != nil {
				return fmt.Errorf("failed to delete lookup key: %w", err)
			}
		}
	}
	return txn.Delete([]byte(e.prefix + id))
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}
				if isIndexKey(e.prefix, it.Item().Key()) {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}
				if !yield(&entity, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// Collect drains List into a slice.
func (e *Entity[T]) Collect(ctx context.Context) ([]*T, error) {
	var out []*T
	for entity, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (e *Entity[T]) read(txn *badger.Txn, id string) (*T, error) {
	key := buildKey(e.prefix, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, e.notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

// writeIndexes moves index keys from old (nil on create) to next.
func (e *Entity[T]) writeIndexes(txn *badger.Txn, id string, old, next *T) error {
	for _, idx := range e.indexes {
		var oldVals []string
		if old != nil {
			oldVals = idx.keyGen(old)
		}
		newVals := idx.keyGen(next)

		for _, v := range diff(oldVals, newVals) {
			if err := txn.Delete(indexKey(e.prefix, idx.name, v)); err != nil {
				return fmt.Errorf("failed to delete old index key: %w", err)
			}
		}
		for _, v := range diff(newVals, oldVals) {
			k := indexKey(e.prefix, idx.name, v)
			_, err := txn.Get(k)
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, v, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
			if err := txn.Set(k, []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}

	for _, lk := range e.lookups {
		var oldVals []string
		if old != nil {
			oldVals = lk.keyGen(old)
		}
		newVals := lk.keyGen(next)

		for _, v := range diff(oldVals, newVals) {
			if v == "" {
				continue
			}
			if err := txn.Delete(lookupKey(e.prefix, lk.name, v, id)); err != nil {
				return fmt.Errorf("failed to delete lookup key: %w", err)
			}
		}
		for _, v := range diff(newVals, oldVals) {
			if v == "" {
				continue
			}
			if err := txn.Set(lookupKey(e.prefix, lk.name, v, id), nil); err != nil {
				return fmt.Errorf("failed to set lookup key: %w", err)
			}
		}
	}
	return nil
}

// diff returns the values of a not present in b.
func diff(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		seen[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
