package testutils

import (
	"time"

	"github.com/unifiedui/mentalbot-service/internal/domain/models"
)

// Test constants
const (
	TestSessionID   = "9b2f6a4e-1c1d-4f0e-9d7e-3a5c2b1f0e11"
	TestUserText    = "I can't sleep and feel anxious all the time"
	TestReplyText   = "It sounds exhausting. A short wind-down routine before bed might help."
	TestIntentReply = "Hello! How are you feeling today?"
)

// NewTestSession creates a live session holding one exchange.
func NewTestSession() *models.Session {
	now := time.Now().UTC()
	sess := models.NewSession(TestSessionID, now)
	sess.History = []models.Turn{
		{Role: models.RoleUser, Content: TestUserText, CreatedAt: now},
		{Role: models.RoleAssistant, Content: TestReplyText, CreatedAt: now},
	}
	return sess
}

// NewTestResult creates an orchestration result for TestSessionID.
func NewTestResult(source models.Source) *models.OrchestrationResult {
	return &models.OrchestrationResult{
		Response:  TestReplyText,
		SessionID: TestSessionID,
		Source:    source,
	}
}
