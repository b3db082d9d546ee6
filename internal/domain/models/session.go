package models

import "time"

// Session represents one ongoing conversation.
type Session struct {
	ID             string                 `json:"id"`
	CreatedAt      time.Time              `json:"createdAt"`
	LastAccessedAt time.Time              `json:"lastAccessedAt"`
	History        []Turn                 `json:"history"`
	Context        map[string]interface{} `json:"context,omitempty"`
}

// NewSession creates an empty session with both timestamps set to now.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:             id,
		CreatedAt:      now,
		LastAccessedAt: now,
		History:        []Turn{},
		Context:        map[string]interface{}{},
	}
}

// IsLive reports whether the session was accessed less than timeout ago.
func (s *Session) IsLive(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastAccessedAt) < timeout
}

// Clone returns a copy whose history can be read without holding the owner's lock.
func (s *Session) Clone() *Session {
	clone := *s
	clone.History = append([]Turn(nil), s.History...)
	clone.Context = make(map[string]interface{}, len(s.Context))
	for k, v := range s.Context {
		clone.Context[k] = v
	}
	return &clone
}

// SessionKey generates a cache key for the session.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}
