package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/mentalbot-service/internal/core/cache"
	"github.com/unifiedui/mentalbot-service/internal/domain/errors"
	"github.com/unifiedui/mentalbot-service/internal/domain/models"
	"github.com/unifiedui/mentalbot-service/internal/pkg/encryption"
)

// RedisStoreConfig holds the configuration for the cache-backed session store.
type RedisStoreConfig struct {
	Cache     cache.Cache
	Encryptor encryption.Encryptor
	Timeout   time.Duration
	Now       func() time.Time
	Logger    *zerolog.Logger
}

// RedisStore keeps encrypted session documents in a cache. Each write resets
// the key TTL to the session timeout, so abandoned sessions expire in the
// cache itself. Read-modify-write cycles are not atomic; callers serialize
// work on one session with a Locker.
type RedisStore struct {
	cache     cache.Cache
	encryptor encryption.Encryptor
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewRedisStore creates a new cache-backed session store.
func NewRedisStore(cfg *RedisStoreConfig) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &RedisStore{
		cache:     cfg.Cache,
		encryptor: cfg.Encryptor,
		timeout:   timeout,
		now:       now,
		logger:    logger.With().Str("component", "session_store").Logger(),
	}, nil
}

// ResolveOrCreate implements Store. Cache failures degrade to a new session.
func (s *RedisStore) ResolveOrCreate(ctx context.Context, id string) (*models.Session, bool) {
	now := s.now()

	if id != "" {
		sess, err := s.load(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("session lookup failed, starting a new session")
		} else if sess != nil && sess.IsLive(now, s.timeout) {
			sess.LastAccessedAt = now
			if err := s.save(ctx, sess); err != nil {
				s.logger.Error().Err(err).Str("session_id", id).Msg("failed to refresh session")
			}
			return sess, false
		}
	}

	sess := models.NewSession(uuid.NewString(), now)
	if err := s.save(ctx, sess); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("failed to store new session")
	}
	return sess, true
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, id string, role models.MessageRole, content string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return errors.NewNotFoundError("session", id)
	}

	sess.History = append(sess.History, models.NewTurn(role, content))
	return s.save(ctx, sess)
}

// History implements Store.
func (s *RedisStore) History(ctx context.Context, id string) ([]models.Turn, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.NewNotFoundError("session", id)
	}
	return sess.History, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.IsLive(s.now(), s.timeout) {
		return nil, errors.NewNotFoundError("session", id)
	}
	return sess, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// Close implements Store. The cache is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}

// load returns nil (not an error) when the key is absent or unreadable.
func (s *RedisStore) load(ctx context.Context, id string) (*models.Session, error) {
	key := models.SessionKey(id)

	encrypted, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get session from cache: %w", err)
	}
	if encrypted == nil {
		return nil, nil
	}

	// Key rotation or corruption: drop the entry and treat the session as unknown.
	decrypted, err := s.encryptor.Decrypt(string(encrypted))
	if err != nil {
		_, _ = s.cache.Delete(ctx, key)
		return nil, nil
	}

	var sess models.Session
	if err := json.Unmarshal(decrypted, &sess); err != nil {
		_, _ = s.cache.Delete(ctx, key)
		return nil, nil
	}

	return &sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	if err := s.cache.Set(ctx, models.SessionKey(sess.ID), []byte(encrypted), s.timeout); err != nil {
		return fmt.Errorf("failed to store session in cache: %w", err)
	}
	return nil
}
