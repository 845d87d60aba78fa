package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/consult-booking/internal/booking"
)

// MemoryStore is an in-process Store for local runs and tests. Records are
// stored as JSON so callers never share memory with the store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]memoryEntry
	locks   map[string]memoryLock
}

type memoryEntry struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

type memoryLock struct {
	token string
	until time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[string]memoryEntry),
		locks:   make(map[string]memoryLock),
	}
}

func (s *MemoryStore) Create(_ context.Context, snap booking.Snapshot) (*Record, error) {
	rec := newRecord(snap, s.now().UTC())
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putLocked(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(id)
	if !ok {
		return nil, ErrNotFound
	}
	var rec Record
	if err := json.Unmarshal(entry.data, &rec); err != nil {
		return nil, fmt.Errorf("sessions: unmarshal: %w", err)
	}
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(rec.ID)
	if !ok {
		return ErrNotFound
	}
	if entry.version != rec.Version {
		return ErrStale
	}
	next := *rec
	next.Version++
	next.UpdatedAt = s.now().UTC()
	if err := s.putLocked(&next); err != nil {
		return err
	}
	*rec = next
	return nil
}

func (s *MemoryStore) liveLocked(id string) (memoryEntry, bool) {
	entry, ok := s.records[id]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.records, id)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) putLocked(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sessions: marshal: %w", err)
	}
	s.records[rec.ID] = memoryEntry{data: data, version: rec.Version, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	delete(s.locks, id)
	return nil
}

func (s *MemoryStore) AcquireSubmit(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.lockLocked(id); held {
		return "", false, nil
	}
	token := uuid.NewString()
	s.locks[id] = memoryLock{token: token, until: s.now().Add(SubmitLockTTL)}
	return token, true, nil
}

func (s *MemoryStore) RefreshSubmit(_ context.Context, id, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, held := s.lockLocked(id)
	if !held || lock.token != token {
		return false, nil
	}
	lock.until = s.now().Add(SubmitLockTTL)
	s.locks[id] = lock
	return true, nil
}

func (s *MemoryStore) ReleaseSubmit(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, held := s.lockLocked(id); held && lock.token == token {
		delete(s.locks, id)
	}
	return nil
}

func (s *MemoryStore) Submitting(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.lockLocked(id)
	return held, nil
}

func (s *MemoryStore) lockLocked(id string) (memoryLock, bool) {
	lock, ok := s.locks[id]
	if !ok {
		return memoryLock{}, false
	}
	if s.now().After(lock.until) {
		delete(s.locks, id)
		return memoryLock{}, false
	}
	return lock, true
}
