// Package auth exchanges a long-lived IAM API key for the bearer token used by
// the text generation service.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/unifiedui/mentalbot-service/internal/domain/errors"
)

// Defaults for the public IBM Cloud identity endpoint.
const (
	DefaultURL       = "https://iam.cloud.ibm.com/identity/token"
	DefaultGrantType = "urn:ibm:params:oauth:grant-type:apikey"
)

// TokenManagerConfig holds the configuration for the token manager.
type TokenManagerConfig struct {
	URL        string
	GrantType  string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// TokenManager caches a bearer token and re-exchanges it on demand.
// The token expiry is not tracked; callers refresh after a 401.
type TokenManager struct {
	url        string
	grantType  string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger

	mu    sync.RWMutex
	token string
	group singleflight.Group
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// NewTokenManager creates a token manager and performs the initial exchange.
// A failed exchange is returned as an auth error and is not retried.
func NewTokenManager(ctx context.Context, cfg *TokenManagerConfig) (*TokenManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.NewAuthError("API key is required", nil)
	}

	tokenURL := cfg.URL
	if tokenURL == "" {
		tokenURL = DefaultURL
	}
	grantType := cfg.GrantType
	if grantType == "" {
		grantType = DefaultGrantType
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	m := &TokenManager{
		url:        tokenURL,
		grantType:  grantType,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "token_manager").Logger(),
	}

	token, err := m.exchange(ctx)
	if err != nil {
		return nil, err
	}
	m.token = token

	return m, nil
}

// Token returns the cached bearer token.
func (m *TokenManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Refresh forces a new exchange and caches the result. Concurrent callers
// share a single in-flight exchange.
func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	// Waiters share this exchange, so it must not die with the first caller's
	// context. The HTTP client timeout bounds it.
	exchangeCtx := context.WithoutCancel(ctx)

	v, err, shared := m.group.Do("refresh", func() (interface{}, error) {
		token, err := m.exchange(exchangeCtx)
		if err != nil {
			return "", err
		}

		m.mu.Lock()
		m.token = token
		m.mu.Unlock()

		return token, nil
	})
	if err != nil {
		m.logger.Error().Err(err).Msg("token refresh failed")
		return "", err
	}

	m.logger.Debug().Bool("shared", shared).Msg("token refreshed")
	return v.(string), nil
}

func (m *TokenManager) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", m.grantType)
	form.Set("apikey", m.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.NewAuthError("failed to create token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", errors.NewAuthError("failed to get IAM token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.NewAuthError("failed to get IAM token",
			fmt.Errorf("status=%d, body=%s", resp.StatusCode, string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", errors.NewAuthError("failed to decode IAM token response", err)
	}
	if tr.AccessToken == "" {
		return "", errors.NewAuthError("IAM token response has no access_token", nil)
	}

	return tr.AccessToken, nil
}
