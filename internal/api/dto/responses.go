package dto

import "time"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// SendMessageResponse represents the reply to a sent message.
type SendMessageResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
	Source    string `json:"source"`
}

// MessageResponse represents one turn of a conversation.
type MessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetMessagesResponse represents the history of a session.
type GetMessagesResponse struct {
	SessionID string             `json:"sessionId"`
	Messages  []*MessageResponse `json:"messages"`
}
