package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/mentalbot-service/internal/domain/errors"
	"github.com/unifiedui/mentalbot-service/internal/domain/models"
)

// MemoryStoreConfig holds the configuration for the in-process session store.
type MemoryStoreConfig struct {
	Timeout       time.Duration
	Capacity      int
	SweepInterval time.Duration
	// Now overrides the clock, for tests.
	Now    func() time.Time
	Logger *zerolog.Logger
}

type memoryEntry struct {
	mu      sync.Mutex
	session *models.Session
}

// MemoryStore is a capacity-bounded, in-process Store. Least recently used
// sessions are evicted when the capacity is reached and expired sessions are
// removed on access and by a periodic sweep.
type MemoryStore struct {
	entries *lru.Cache[string, *memoryEntry]
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a memory store and starts its sweep loop when
// SweepInterval is positive.
func NewMemoryStore(cfg *MemoryStoreConfig) (*MemoryStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("component", "session_store").Logger()

	entries, err := lru.NewWithEvict(capacity, func(id string, _ *memoryEntry) {
		logger.Debug().Str("session_id", id).Msg("session evicted")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	s := &MemoryStore{
		entries: entries,
		timeout: timeout,
		now:     now,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go s.sweepLoop(cfg.SweepInterval)
	} else {
		close(s.done)
	}

	return s, nil
}

// ResolveOrCreate implements Store.
func (s *MemoryStore) ResolveOrCreate(ctx context.Context, id string) (*models.Session, bool) {
	now := s.now()

	if id != "" {
		if e, ok := s.entries.Get(id); ok {
			e.mu.Lock()
			if e.session.IsLive(now, s.timeout) {
				e.session.LastAccessedAt = now
				snapshot := e.session.Clone()
				e.mu.Unlock()
				return snapshot, false
			}
			e.mu.Unlock()
			s.entries.Remove(id)
			s.logger.Debug().Str("session_id", id).Msg("session expired")
		}
	}

	return s.create(now), true
}

func (s *MemoryStore) create(now time.Time) *models.Session {
	for {
		sess := models.NewSession(uuid.NewString(), now)
		if exists, _ := s.entries.ContainsOrAdd(sess.ID, &memoryEntry{session: sess}); !exists {
			return sess.Clone()
		}
	}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, id string, role models.MessageRole, content string) error {
	e, ok := s.entries.Peek(id)
	if !ok {
		return errors.NewNotFoundError("session", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.History = append(e.session.History, models.NewTurn(role, content))
	return nil
}

// History implements Store.
func (s *MemoryStore) History(ctx context.Context, id string) ([]models.Turn, error) {
	e, ok := s.entries.Peek(id)
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]models.Turn(nil), e.session.History...), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	e, ok := s.entries.Peek(id)
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.IsLive(s.now(), s.timeout) {
		return nil, errors.NewNotFoundError("session", id)
	}
	return e.session.Clone(), nil
}

// Len returns the number of sessions currently held, live or not yet swept.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

// Sweep removes every expired session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0

	for _, id := range s.entries.Keys() {
		e, ok := s.entries.Peek(id)
		if !ok {
			continue
		}
		e.mu.Lock()
		expired := !e.session.IsLive(now, s.timeout)
		e.mu.Unlock()

		if expired && s.entries.Remove(id) {
			removed++
		}
	}

	return removed
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Debug().Int("removed", removed).Int("remaining", s.Len()).Msg("expired sessions swept")
			}
		case <-s.stop:
			return
		}
	}
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the sweep loop.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	return nil
}
