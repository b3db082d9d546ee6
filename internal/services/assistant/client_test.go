package assistant_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/unifiedui/mentalbot-service/internal/domain/errors"
	"github.com/unifiedui/mentalbot-service/internal/services/assistant"
)

func newClient(t *testing.T, handler http.HandlerFunc) *assistant.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := assistant.NewClient(&assistant.ClientConfig{
		URL:         server.URL + "/",
		AssistantID: "asst-1",
		APIKey:      "key-1",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *assistant.ClientConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "config is required"},
		{name: "missing url", cfg: &assistant.ClientConfig{AssistantID: "a", APIKey: "k"}, wantErr: "assistant URL is required"},
		{name: "missing id", cfg: &assistant.ClientConfig{URL: "http://x", APIKey: "k"}, wantErr: "assistant ID is required"},
		{name: "missing key", cfg: &assistant.ClientConfig{URL: "http://x", AssistantID: "a"}, wantErr: "API key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := assistant.NewClient(tt.cfg)
			assert.Nil(t, client)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClassify_SendsRequest(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/assistants/asst-1/message", r.URL.Path)
		assert.Equal(t, assistant.DefaultVersion, r.URL.Query().Get("version"))
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("apikey:key-1")), r.Header.Get("Authorization"))

		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["input"]["text"])

		fmt.Fprint(w, `{"output":{"generic":[{"response_type":"text","text":" Hi there! "}],"intents":[{"intent":"greeting","confidence":0.98}]}}`)
	})

	result, err := client.Classify(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "Hi there!", result.Text)
	assert.True(t, result.HasText())
	assert.False(t, result.NeedsGeneration)
	require.Len(t, result.Intents, 1)
	assert.Equal(t, "greeting", result.Intents[0].Intent)
	assert.InDelta(t, 0.98, result.Intents[0].Confidence, 1e-9)
	assert.NotEmpty(t, result.Raw)
}

func TestClassify_MarkerDetection(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "output intent",
			body: `{"output":{"intents":[{"intent":"action_3200_intent_45093-2","confidence":0.9}],"generic":[{"text":"ok"}]}}`,
			want: true,
		},
		{
			name: "top-level intent",
			body: `{"intents":[{"intent":"action_3200_intent_45093-2"}]}`,
			want: true,
		},
		{
			name: "action step",
			body: `{"output":{"actions":[{"action":"action_3200_intent_45093-2","title":"Talk it through"}]}}`,
			want: true,
		},
		{
			name: "marker only inside reply text",
			body: `{"output":{"generic":[{"text":"see action_3200_intent_45093-2"}]}}`,
			want: false,
		},
		{
			name: "no intents",
			body: `{"output":{"generic":[]}}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})

			result, err := client.Classify(context.Background(), "I feel low")

			require.NoError(t, err)
			assert.Equal(t, tt.want, result.NeedsGeneration)
		})
	}
}

func TestClassify_NoUsableText(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output":{"generic":[{"response_type":"option","title":"Pick one"}]}}`)
	})

	result, err := client.Classify(context.Background(), "hmm")

	require.NoError(t, err)
	assert.False(t, result.HasText())
}

func TestClassify_Failures(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		malformed bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"output":`)
			},
			malformed: true,
		},
		{
			name: "json array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `[]`)
			},
			malformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, tt.handler)

			result, err := client.Classify(context.Background(), "hello")

			assert.Nil(t, result)
			if tt.malformed {
				assert.True(t, domainerrors.IsMalformedResponse(err))
			} else {
				assert.True(t, domainerrors.IsUpstreamUnavailable(err))
			}
		})
	}
}

func TestClassify_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := assistant.NewClient(&assistant.ClientConfig{
		URL:         server.URL,
		AssistantID: "asst-1",
		APIKey:      "key-1",
	})
	require.NoError(t, err)

	_, err = client.Classify(context.Background(), "hello")

	assert.True(t, domainerrors.IsUpstreamUnavailable(err))
}

func TestClassification_HasTextNil(t *testing.T) {
	var c *assistant.Classification
	assert.False(t, c.HasText())
}
