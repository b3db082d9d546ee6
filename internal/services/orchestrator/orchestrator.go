// Package orchestrator routes each user message through the intent classifier
// and, when needed, the text generator, keeping per-session history.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/mentalbot-service/internal/domain/models"
	"github.com/unifiedui/mentalbot-service/internal/services/assistant"
	"github.com/unifiedui/mentalbot-service/internal/services/session"
)

// DefaultTimeout bounds the upstream calls of one message exchange.
const DefaultTimeout = 60 * time.Second

// Classifier classifies user text. An error means no classification is
// available for this turn.
type Classifier interface {
	Classify(ctx context.Context, text string) (*assistant.Classification, error)
}

// Generator produces a reply from the user text and the session history.
type Generator interface {
	Generate(ctx context.Context, text string, history []models.Turn) (string, error)
}

// Config holds the dependencies of an Orchestrator.
type Config struct {
	Store      session.Store
	Classifier Classifier
	Generator  Generator
	Locker     *session.Locker
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

// Orchestrator runs the per-message decision flow.
type Orchestrator struct {
	store      session.Store
	classifier Classifier
	generator  Generator
	locker     *session.Locker
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a new Orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	locker := cfg.Locker
	if locker == nil {
		locker = session.NewLocker()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Orchestrator{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		generator:  cfg.Generator,
		locker:     locker,
		timeout:    timeout,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// SendMessage answers text within the session named by sessionID, creating a
// new session when it is empty, unknown or expired. Upstream failures are
// absorbed; the worst outcome is the fallback reply. Exactly one user turn and
// one assistant turn are appended per call.
func (o *Orchestrator) SendMessage(ctx context.Context, text, sessionID string) *models.OrchestrationResult {
	// History writes must land even if the caller goes away mid-exchange.
	storeCtx := context.WithoutCancel(ctx)

	// Resolving refreshes and may rewrite the stored session, so it runs under
	// the requested id's lock like every other write to that session.
	if sessionID != "" {
		unlock := o.locker.Lock(sessionID)
		defer unlock()
	}

	sess, created := o.store.ResolveOrCreate(storeCtx, sessionID)
	logger := o.logger.With().Str("session_id", sess.ID).Logger()
	if created && sessionID != "" {
		logger.Info().Str("requested_session_id", sessionID).Msg("session expired or unknown, started a new one")
	}

	if sess.ID != sessionID {
		unlock := o.locker.Lock(sess.ID)
		defer unlock()
	}

	if err := o.store.Append(storeCtx, sess.ID, models.RoleUser, text); err != nil {
		logger.Error().Err(err).Msg("failed to append user turn")
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	classification, err := o.classifier.Classify(callCtx, text)
	if err != nil {
		logger.Warn().Err(err).Msg("intent classification failed, using generation")
		classification = nil
	}

	var reply string
	var source models.Source

	switch {
	case classification == nil || classification.NeedsGeneration:
		reply, source = o.generate(callCtx, storeCtx, logger, sess.ID, text)
	case classification.HasText():
		reply, source = classification.Text, models.SourceIntentService
	default:
		logger.Debug().Msg("classification has no usable reply, using generation")
		reply, source = o.generate(callCtx, storeCtx, logger, sess.ID, text)
	}

	if err := o.store.Append(storeCtx, sess.ID, models.RoleAssistant, reply); err != nil {
		logger.Error().Err(err).Msg("failed to append assistant turn")
	}

	logger.Info().Str("source", string(source)).Msg("message answered")

	return &models.OrchestrationResult{
		Response:  reply,
		SessionID: sess.ID,
		Source:    source,
	}
}

// generate returns the generated reply, or the fallback when none is available.
func (o *Orchestrator) generate(callCtx, storeCtx context.Context, logger zerolog.Logger, sessionID, text string) (string, models.Source) {
	history, err := o.store.History(storeCtx, sessionID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read history, generating without context")
		history = nil
	}

	reply, err := o.generator.Generate(callCtx, text, history)
	if err != nil {
		logger.Warn().Err(err).Msg("generation failed, using fallback reply")
		return models.FallbackResponse, models.SourceFallback
	}
	if reply == "" {
		logger.Warn().Msg("generation returned no text, using fallback reply")
		return models.FallbackResponse, models.SourceFallback
	}

	return reply, models.SourceGenerationService
}

// Session returns the live session named by id without refreshing it.
func (o *Orchestrator) Session(ctx context.Context, id string) (*models.Session, error) {
	return o.store.Get(ctx, id)
}

// Ping checks the session store.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.store.Ping(ctx)
}
