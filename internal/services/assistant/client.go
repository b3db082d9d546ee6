// Package assistant provides the intent classification client for a
// Watson Assistant v2 instance.
package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/unifiedui/mentalbot-service/internal/domain/errors"
)

const (
	serviceName = "assistant"

	// DefaultVersion is the API version date sent with every call.
	DefaultVersion = "2023-05-29"
	// DefaultMarkerIntent is the intent that routes a turn to the generator.
	DefaultMarkerIntent = "action_3200_intent_45093-2"
)

// ClientConfig holds the configuration for the assistant client.
type ClientConfig struct {
	URL          string
	AssistantID  string
	Version      string
	APIKey       string
	MarkerIntent string
	HTTPClient   *http.Client
}

// Client calls the assistant message endpoint.
type Client struct {
	url          string
	assistantID  string
	version      string
	authHeader   string
	markerIntent string
	httpClient   *http.Client
}

// NewClient creates a new assistant client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("assistant URL is required")
	}
	if cfg.AssistantID == "" {
		return nil, fmt.Errorf("assistant ID is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}
	marker := cfg.MarkerIntent
	if marker == "" {
		marker = DefaultMarkerIntent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		url:          strings.TrimSuffix(cfg.URL, "/"),
		assistantID:  cfg.AssistantID,
		version:      version,
		authHeader:   "Basic " + base64.StdEncoding.EncodeToString([]byte("apikey:"+cfg.APIKey)),
		markerIntent: marker,
		httpClient:   httpClient,
	}, nil
}

// Classify sends the user text to the assistant. Network failures and
// non-200 statuses return an upstream unavailable error; a body that is not
// JSON returns a malformed response error.
func (c *Client) Classify(ctx context.Context, text string) (*Classification, error) {
	url := fmt.Sprintf("%s/v2/assistants/%s/message?version=%s", c.url, c.assistantID, c.version)

	body, err := json.Marshal(&messageRequest{Input: messageInput{Text: text}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError(serviceName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError(serviceName, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUpstreamUnavailableError(serviceName,
			fmt.Errorf("status=%d, body=%s", resp.StatusCode, truncate(data, 512)))
	}

	return c.normalize(data)
}

// normalize turns the raw message response into a Classification.
func (c *Client) normalize(data []byte) (*Classification, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.NewMalformedResponseError(serviceName, fmt.Errorf("invalid JSON body"))
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.NewMalformedResponseError(serviceName, fmt.Errorf("expected a JSON object"))
	}

	result := &Classification{
		Text: strings.TrimSpace(root.Get("output.generic.0.text").String()),
		Raw:  json.RawMessage(data),
	}

	for _, path := range []string{"output.intents", "intents"} {
		root.Get(path).ForEach(func(_, v gjson.Result) bool {
			intent := Intent{
				Intent:     v.Get("intent").String(),
				Confidence: v.Get("confidence").Float(),
			}
			result.Intents = append(result.Intents, intent)
			if intent.Intent == c.markerIntent {
				result.NeedsGeneration = true
			}
			return true
		})
	}

	// Actions-based skills report the matched step as an action, not an intent.
	root.Get("output.actions").ForEach(func(_, v gjson.Result) bool {
		if v.Get("action").String() == c.markerIntent || v.Get("title").String() == c.markerIntent {
			result.NeedsGeneration = true
			return false
		}
		return true
	})

	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
