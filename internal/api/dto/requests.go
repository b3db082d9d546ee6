// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// MaxMessageLength bounds the size of a single user message.
const MaxMessageLength = 4000

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Message   string `json:"message" binding:"required,min=1,max=4000"`
	SessionID string `json:"sessionId,omitempty"`
}
