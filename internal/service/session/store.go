package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/polaris/backend/internal/logging"
	"github.com/zhouzirui/polaris/backend/internal/metrics"
	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
)

var ErrSessionNotFound = errors.New("session not found")

// lockEntry is a per-session mutex with a reference count so idle entries can be freed.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Store owns every session record for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*discovery.Session

	locksMu sync.Mutex
	locks   map[string]*lockEntry

	now     func() time.Time
	newID   func() string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the identifier source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*discovery.Session),
		locks:    make(map[string]*lockEntry),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create allocates a fresh session and returns its stored record.
func (s *Store) Create(_ context.Context, clientID *string, metadata map[string]any) *discovery.Session {
	record := &discovery.Session{
		Metadata:  maps.Clone(metadata),
		Turns:     make([]discovery.Turn, 0, 16),
		Slots:     discovery.Slots{},
		CreatedAt: s.now(),
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	if clientID != nil {
		id := *clientID
		record.ClientID = &id
	}

	s.mu.Lock()
	for {
		id := s.newID()
		if _, taken := s.sessions[id]; !taken {
			record.ID = id
			break
		}
	}
	s.sessions[record.ID] = record
	s.mu.Unlock()

	s.metrics.SessionCreated()
	s.logger.Debug("session created", "session_id", record.ID)
	return record
}

// Get returns the shared record for id. Mutations must go through WithLock.
func (s *Store) Get(_ context.Context, id string) (*discovery.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return record, nil
}

// Snapshot returns a copy of the record taken under the session lock.
func (s *Store) Snapshot(ctx context.Context, id string) (discovery.Session, error) {
	var snap discovery.Session
	err := s.WithLock(ctx, id, func(record *discovery.Session) error {
		snap = record.Snapshot()
		return nil
	})
	return snap, err
}

// Len reports how many sessions are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Now exposes the store clock so turn timestamps share one time source.
func (s *Store) Now() time.Time {
	return s.now()
}

// WithLock runs fn with exclusive access to the session. At most one fn runs
// per session at a time; different sessions proceed in parallel.
func (s *Store) WithLock(ctx context.Context, id string, fn func(*discovery.Session) error) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	entry := s.acquire(id)
	defer s.release(id)

	if err := lockContext(ctx, &entry.mu); err != nil {
		return err
	}
	defer entry.mu.Unlock()

	return fn(record)
}

func (s *Store) acquire(id string) *lockEntry {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	entry, ok := s.locks[id]
	if !ok {
		entry = &lockEntry{}
		s.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (s *Store) release(id string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	entry, ok := s.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.locks, id)
	}
}

// lockContext waits for mu unless ctx ends first.
func lockContext(ctx context.Context, mu *sync.Mutex) error {
	if mu.TryLock() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Hand the lock back once the waiter eventually obtains it.
		go func() {
			<-done
			mu.Unlock()
		}()
		return ctx.Err()
	}
}
