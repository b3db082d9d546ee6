// Package models contains domain models for the mental health companion service.
package models

import "time"

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	// RoleUser represents a message from the user.
	RoleUser MessageRole = "user"
	// RoleAssistant represents a reply from the service.
	RoleAssistant MessageRole = "assistant"
)

// Turn is one entry of a conversation history. Turns are immutable once appended.
type Turn struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role MessageRole, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Source identifies which path produced a reply.
type Source string

const (
	// SourceIntentService marks a reply taken directly from the intent classifier.
	SourceIntentService Source = "intent_service"
	// SourceGenerationService marks a reply produced by the text generator.
	SourceGenerationService Source = "generation_service"
	// SourceFallback marks the fixed apology reply.
	SourceFallback Source = "fallback"
)

// FallbackResponse is returned when neither upstream service produced a reply.
const FallbackResponse = "I apologize, but I'm having trouble generating a response."

// OrchestrationResult is the unified reply of a message exchange.
type OrchestrationResult struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
	Source    Source `json:"source"`
}
