// ABOUTME: Badger-backed durable local store for sessions and exercise completions.
// ABOUTME: Keeps identity-scoped collections in memory and persists every mutation synchronously.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"

	"github.com/harperreed/crux/internal/models"
)

// Store is the durable local store. All reads are served from an in-memory
// cache; every mutation persists the full updated collection before
// returning, so persisted state never lags published state by more than
// one operation. Access is serialized by a single mutex.
type Store struct {
	db       *badger.DB
	identity string
	logger   *log.Logger

	mu        sync.RWMutex
	sessions  map[string][]models.SessionRecord
	exercises map[string][]models.ExerciseCompletion
	notify    func(planID string)
}

// Open opens the store at dir for the given user identity and loads the
// identity's persisted state. Absent data yields empty collections.
func Open(dir, identity string, logger *log.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{
		db:       db,
		identity: identity,
		logger:   logger,
	}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Identity returns the user identity the store is currently scoped to.
func (s *Store) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// OnChange registers a single observer invoked after each committed
// mutation. This is a UI invalidation side channel, not part of the
// durability contract.
func (s *Store) OnChange(fn func(planID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Sessions returns a copy of the session records held for a plan.
func (s *Store) Sessions(planID string) []models.SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionRecord, len(s.sessions[planID]))
	copy(out, s.sessions[planID])
	return out
}

// Exercises returns a copy of the exercise completions held for a plan.
func (s *Store) Exercises(planID string) []models.ExerciseCompletion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ExerciseCompletion, len(s.exercises[planID]))
	copy(out, s.exercises[planID])
	return out
}

// PlanIDs returns every plan that has local sessions or completions.
func (s *Store) PlanIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.sessions))
	var ids []string
	for id := range s.sessions {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range s.exercises {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// MutateSessions applies a pure transformation to a plan's session
// collection and persists the result before returning.
func (s *Store) MutateSessions(planID string, fn func([]models.SessionRecord) []models.SessionRecord) error {
	s.mu.Lock()
	cur := make([]models.SessionRecord, len(s.sessions[planID]))
	copy(cur, s.sessions[planID])
	next := fn(cur)

	if err := s.setJSON(s.sessionsKey(planID), next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist sessions: %w", err)
	}
	s.sessions[planID] = next
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(planID)
	}
	return nil
}

// MutateExercises applies a pure transformation to a plan's completion
// collection and persists the result before returning.
func (s *Store) MutateExercises(planID string, fn func([]models.ExerciseCompletion) []models.ExerciseCompletion) error {
	s.mu.Lock()
	cur := make([]models.ExerciseCompletion, len(s.exercises[planID]))
	copy(cur, s.exercises[planID])
	next := fn(cur)

	if err := s.setJSON(s.exercisesKey(planID), next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist exercises: %w", err)
	}
	s.exercises[planID] = next
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(planID)
	}
	return nil
}

// RemovePlan drops a plan's sessions and completions from the store. Used
// only when the owning plan leaves the user's plan set.
func (s *Store) RemovePlan(planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(s.sessionsKey(planID))); err != nil {
			return err
		}
		return txn.Delete([]byte(s.exercisesKey(planID)))
	})
	if err != nil {
		return fmt.Errorf("remove plan: %w", err)
	}
	delete(s.sessions, planID)
	delete(s.exercises, planID)
	return nil
}

// LastSync returns the time of the last successful reconciliation, or the
// zero time when none is recorded.
func (s *Store) LastSync() (time.Time, error) {
	s.mu.RLock()
	key := s.key("last-sync")
	s.mu.RUnlock()

	var ts time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return ts.UnmarshalText(val)
		})
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("read last sync: %w", err)
	}
	return ts, nil
}

// SetLastSync records the time of a successful reconciliation.
func (s *Store) SetLastSync(t time.Time) error {
	s.mu.RLock()
	key := s.key("last-sync")
	s.mu.RUnlock()

	val, err := t.MarshalText()
	if err != nil {
		return fmt.Errorf("encode last sync: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	if err != nil {
		return fmt.Errorf("write last sync: %w", err)
	}
	return nil
}

// SwitchUser clears in-memory state and reloads from the new identity's
// namespace. State persisted for other identities is untouched.
func (s *Store) SwitchUser(identity string) error {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	return s.load()
}

// ClearUser deletes all persisted state for an identity. Called on
// sign-out so data never leaks between accounts.
func (s *Store) ClearUser(identity string) error {
	if err := s.db.DropPrefix([]byte("user:" + identity + ":")); err != nil {
		return fmt.Errorf("clear user %s: %w", identity, err)
	}
	s.mu.Lock()
	if s.identity == identity {
		s.sessions = make(map[string][]models.SessionRecord)
		s.exercises = make(map[string][]models.ExerciseCompletion)
	}
	s.mu.Unlock()
	return nil
}

// load populates the in-memory cache from the current identity namespace.
func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make(map[string][]models.SessionRecord)
	exercises := make(map[string][]models.ExerciseCompletion)

	err := s.db.View(func(txn *badger.Txn) error {
		if err := loadPrefix(txn, s.key("sessions:"), func(planID string, val []byte) error {
			var recs []models.SessionRecord
			if err := json.Unmarshal(val, &recs); err != nil {
				return err
			}
			sessions[planID] = recs
			return nil
		}); err != nil {
			return err
		}
		return loadPrefix(txn, s.key("exercises:"), func(planID string, val []byte) error {
			var recs []models.ExerciseCompletion
			if err := json.Unmarshal(val, &recs); err != nil {
				return err
			}
			exercises[planID] = recs
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}

	s.sessions = sessions
	s.exercises = exercises
	s.logger.Debug("store loaded", "identity", s.identity, "plans", len(sessions))
	return nil
}

// loadPrefix walks keys under prefix and hands each (suffix, value) pair
// to fn. The suffix is the plan ID portion of the key.
func loadPrefix(txn *badger.Txn, prefix string, fn func(suffix string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		suffix := string(item.Key()[len(prefix):])
		if err := item.Value(func(val []byte) error {
			return fn(suffix, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

// setJSON marshals v and writes it under key in a single transaction.
func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) key(suffix string) string {
	return "user:" + s.identity + ":" + suffix
}

func (s *Store) sessionsKey(planID string) string {
	return s.key("sessions:" + planID)
}

func (s *Store) exercisesKey(planID string) string {
	return s.key("exercises:" + planID)
}
