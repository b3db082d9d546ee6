// Package generation provides the text generation client used when the
// intent classifier cannot answer a message directly.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/mentalbot-service/internal/domain/errors"
	"github.com/unifiedui/mentalbot-service/internal/domain/models"
)

const serviceName = "watsonx"

// Request defaults.
const (
	DefaultURL                 = "https://us-south.ml.cloud.ibm.com/ml/v1/text/generation?version=2023-05-29"
	DefaultModelID             = "meta-llama/llama-3-1-8b-instruct"
	DefaultMaxNewTokens        = 200
	DefaultRepetitionPenalty   = 1.2
	DefaultModerationThreshold = 0.5
)

// StopSequences end generation at the next turn boundary or closing quote.
var StopSequences = []string{"\n\n", "Input:", "Output:", "\""}

// TokenSource supplies bearer tokens for the generation service.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// ClientConfig holds the configuration for the generation client.
type ClientConfig struct {
	URL                 string
	ModelID             string
	ProjectID           string
	MaxNewTokens        int
	RepetitionPenalty   float64
	ModerationThreshold float64
	Tokens              TokenSource
	HTTPClient          *http.Client
	Logger              *zerolog.Logger
}

// Client calls the text generation endpoint.
type Client struct {
	url          string
	modelID      string
	projectID    string
	maxNewTokens int
	penalty      float64
	moderations  Moderations
	tokens       TokenSource
	httpClient   *http.Client
	logger       zerolog.Logger
}

// statusError is a non-200 response from the generation endpoint.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status=%d, body=%s", e.StatusCode, e.Body)
}

// NewClient creates a new generation client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}
	maxNewTokens := cfg.MaxNewTokens
	if maxNewTokens <= 0 {
		maxNewTokens = DefaultMaxNewTokens
	}
	penalty := cfg.RepetitionPenalty
	if penalty <= 0 {
		penalty = DefaultRepetitionPenalty
	}
	threshold := cfg.ModerationThreshold
	if threshold <= 0 {
		threshold = DefaultModerationThreshold
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		url:          url,
		modelID:      modelID,
		projectID:    cfg.ProjectID,
		maxNewTokens: maxNewTokens,
		penalty:      penalty,
		moderations: Moderations{
			HAP: newModerationPolicy(threshold),
			PII: newModerationPolicy(threshold),
		},
		tokens:     cfg.Tokens,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "generation_client").Logger(),
	}, nil
}

// NewRequest builds the request body for userText and history.
func (c *Client) NewRequest(userText string, history []models.Turn) *Request {
	return &Request{
		Input: BuildPrompt(userText, history),
		Parameters: Parameters{
			DecodingMethod:    "greedy",
			MaxNewTokens:      c.maxNewTokens,
			StopSequences:     StopSequences,
			RepetitionPenalty: c.penalty,
		},
		ModelID:     c.modelID,
		ProjectID:   c.projectID,
		Moderations: c.moderations,
	}
}

// Generate produces a reply for userText. A 401 triggers exactly one token
// refresh and one resend of the same body; whatever the resend returns is
// final. Other statuses and network failures are not retried.
func (c *Client) Generate(ctx context.Context, userText string, history []models.Turn) (string, error) {
	body, err := json.Marshal(c.NewRequest(userText, history))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	attempt := 0
	text, err := retry.DoWithData(
		func() (string, error) {
			token := c.tokens.Token()
			if attempt > 0 {
				c.logger.Info().Msg("generation returned 401, refreshing token")
				refreshed, err := c.tokens.Refresh(ctx)
				if err != nil {
					return "", retry.Unrecoverable(err)
				}
				token = refreshed
			}
			attempt++
			return c.send(ctx, body, token)
		},
		retry.Attempts(2),
		retry.RetryIf(isUnauthorized),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		var se *statusError
		if stderrors.As(err, &se) {
			return "", errors.NewUpstreamUnavailableError(serviceName, err)
		}
		return "", err
	}

	return text, nil
}

func (c *Client) send(ctx context.Context, body []byte, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewUpstreamUnavailableError(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var genResp Response
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", errors.NewMalformedResponseError(serviceName, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(genResp.Results) == 0 {
		return "", errors.NewMalformedResponseError(serviceName, fmt.Errorf("response has no results"))
	}

	text := strings.TrimSpace(genResp.Results[0].GeneratedText)
	if text == "" {
		return "", errors.NewMalformedResponseError(serviceName, fmt.Errorf("generated text is empty"))
	}
	return text, nil
}

func isUnauthorized(err error) bool {
	var se *statusError
	return stderrors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
