// ABOUTME: Durable pending-mutation queues backed by the same badger namespace.
// ABOUTME: Three independent queues: session upserts, exercise upserts, exercise deletes.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/harperreed/crux/internal/models"
)

const (
	sessionUpsertQueue  = "queue:session-upserts"
	exerciseUpsertQueue = "queue:exercise-upserts"
	exerciseDeleteQueue = "queue:exercise-deletes"
)

// AppendSessionUpserts appends entries to the pending session queue.
func (s *Store) AppendSessionUpserts(items ...models.PendingSessionUpsert) error {
	return appendQueue(s, sessionUpsertQueue, items)
}

// TakeSessionUpserts drains the pending session queue, returning a
// snapshot and clearing the live queue in one transaction.
func (s *Store) TakeSessionUpserts() ([]models.PendingSessionUpsert, error) {
	return takeQueue[models.PendingSessionUpsert](s, sessionUpsertQueue)
}

// RestoreSessionUpserts puts still-pending entries back ahead of anything
// enqueued since the snapshot was taken.
func (s *Store) RestoreSessionUpserts(items []models.PendingSessionUpsert) error {
	return restoreQueue(s, sessionUpsertQueue, items)
}

// AppendExerciseUpserts appends entries to the pending exercise queue.
func (s *Store) AppendExerciseUpserts(items ...models.PendingExerciseUpsert) error {
	return appendQueue(s, exerciseUpsertQueue, items)
}

// TakeExerciseUpserts drains the pending exercise queue.
func (s *Store) TakeExerciseUpserts() ([]models.PendingExerciseUpsert, error) {
	return takeQueue[models.PendingExerciseUpsert](s, exerciseUpsertQueue)
}

// RestoreExerciseUpserts puts still-pending entries back ahead of anything
// enqueued since the snapshot was taken.
func (s *Store) RestoreExerciseUpserts(items []models.PendingExerciseUpsert) error {
	return restoreQueue(s, exerciseUpsertQueue, items)
}

// FilterExerciseUpserts rewrites the pending exercise queue keeping only
// entries the predicate accepts. Used when a local record is removed
// before its upsert ever reached the server, so the flush cannot
// resurrect it remotely.
func (s *Store) FilterExerciseUpserts(keep func(models.PendingExerciseUpsert) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(s.key(exerciseUpsertQueue))
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := readQueue[models.PendingExerciseUpsert](txn, key)
		if err != nil {
			return err
		}
		kept := cur[:0]
		for _, item := range cur {
			if keep(item) {
				kept = append(kept, item)
			}
		}
		return writeQueue(txn, key, kept)
	})
	if err != nil {
		return fmt.Errorf("filter %s: %w", exerciseUpsertQueue, err)
	}
	return nil
}

// AppendExerciseDeletes appends entries to the pending deletion queue.
func (s *Store) AppendExerciseDeletes(items ...models.PendingExerciseDelete) error {
	return appendQueue(s, exerciseDeleteQueue, items)
}

// TakeExerciseDeletes drains the pending deletion queue.
func (s *Store) TakeExerciseDeletes() ([]models.PendingExerciseDelete, error) {
	return takeQueue[models.PendingExerciseDelete](s, exerciseDeleteQueue)
}

// RestoreExerciseDeletes puts still-pending entries back ahead of anything
// enqueued since the snapshot was taken.
func (s *Store) RestoreExerciseDeletes(items []models.PendingExerciseDelete) error {
	return restoreQueue(s, exerciseDeleteQueue, items)
}

// PendingCounts reports the current depth of each queue.
func (s *Store) PendingCounts() (sessions, exercises, deletes int, err error) {
	su, err := peekQueue[models.PendingSessionUpsert](s, sessionUpsertQueue)
	if err != nil {
		return 0, 0, 0, err
	}
	eu, err := peekQueue[models.PendingExerciseUpsert](s, exerciseUpsertQueue)
	if err != nil {
		return 0, 0, 0, err
	}
	ed, err := peekQueue[models.PendingExerciseDelete](s, exerciseDeleteQueue)
	if err != nil {
		return 0, 0, 0, err
	}
	return len(su), len(eu), len(ed), nil
}

// appendQueue reads, extends, and rewrites one queue atomically.
func appendQueue[T any](s *Store, name string, items []T) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(s.key(name))
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := readQueue[T](txn, key)
		if err != nil {
			return err
		}
		return writeQueue(txn, key, append(cur, items...))
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	return nil
}

// takeQueue snapshots and clears one queue in a single transaction.
func takeQueue[T any](s *Store, name string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(s.key(name))
	var snapshot []T
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := readQueue[T](txn, key)
		if err != nil {
			return err
		}
		snapshot = cur
		return txn.Delete(key)
	})
	if err != nil {
		return nil, fmt.Errorf("take %s: %w", name, err)
	}
	return snapshot, nil
}

// restoreQueue prepends items to whatever has been enqueued since the
// snapshot, so mutations made during a flush are never lost.
func restoreQueue[T any](s *Store, name string, items []T) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(s.key(name))
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := readQueue[T](txn, key)
		if err != nil {
			return err
		}
		return writeQueue(txn, key, append(items, cur...))
	})
	if err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	return nil
}

// peekQueue reads one queue without clearing it.
func peekQueue[T any](s *Store, name string) ([]T, error) {
	s.mu.RLock()
	key := []byte(s.key(name))
	s.mu.RUnlock()

	var out []T
	err := s.db.View(func(txn *badger.Txn) error {
		cur, err := readQueue[T](txn, key)
		if err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", name, err)
	}
	return out, nil
}

func readQueue[T any](txn *badger.Txn, key []byte) ([]T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func writeQueue[T any](txn *badger.Txn, key []byte, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}
