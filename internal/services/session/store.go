// Package session provides conversation session storage with inactivity expiry.
package session

import (
	"context"
	"time"

	"github.com/unifiedui/mentalbot-service/internal/domain/models"
)

const (
	// DefaultTimeout is the inactivity window after which a session is no longer live.
	DefaultTimeout = 30 * time.Minute

	// DefaultCapacity bounds the number of sessions held by the memory store.
	DefaultCapacity = 10000
)

// Store resolves, creates and extends conversation sessions.
type Store interface {
	// ResolveOrCreate returns the live session named by id, refreshing its last
	// access time, or a brand-new session when id is empty, unknown or expired.
	// The boolean reports whether a new session was created. It never fails.
	ResolveOrCreate(ctx context.Context, id string) (*models.Session, bool)

	// Append adds a turn to the session's history. Liveness is not re-checked.
	Append(ctx context.Context, id string, role models.MessageRole, content string) error

	// History returns a copy of the session's ordered history.
	History(ctx context.Context, id string) ([]models.Turn, error)

	// Get returns a live session without refreshing it.
	Get(ctx context.Context, id string) (*models.Session, error)

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases background resources.
	Close() error
}
