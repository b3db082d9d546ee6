package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/unifiedui/mentalbot-service/internal/domain/errors"
	"github.com/unifiedui/mentalbot-service/internal/services/auth"
)

func newIAMServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNewTokenManager_ExchangesKey(t *testing.T) {
	server := newIAMServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, auth.DefaultGrantType, r.PostForm.Get("grant_type"))
		assert.Equal(t, "secret-key", r.PostForm.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600}`)
	})

	m, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{
		URL:    server.URL,
		APIKey: "secret-key",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok-1", m.Token())
}

func TestNewTokenManager_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"errorMessage":"Provided API key could not be found"}`)
			},
		},
		{
			name: "invalid body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `not json`)
			},
		},
		{
			name: "missing token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := newIAMServer(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				tt.handler(w, r)
			})

			m, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{
				URL:    server.URL,
				APIKey: "secret-key",
			})

			assert.Nil(t, m)
			assert.True(t, domainerrors.IsAuthError(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exchange must not be retried")
		})
	}
}

func TestNewTokenManager_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{
		URL:    server.URL,
		APIKey: "secret-key",
	})

	assert.True(t, domainerrors.IsAuthError(err))
}

func TestNewTokenManager_MissingKey(t *testing.T) {
	_, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{})
	assert.True(t, domainerrors.IsAuthError(err))

	_, err = auth.NewTokenManager(context.Background(), nil)
	assert.Error(t, err)
}

func TestTokenManager_Refresh(t *testing.T) {
	var calls int32
	server := newIAMServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		fmt.Fprintf(w, `{"access_token":"tok-%d"}`, n)
	})

	m, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{
		URL:    server.URL,
		APIKey: "secret-key",
	})
	require.NoError(t, err)

	token, err := m.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, "tok-2", m.Token())
}

func TestTokenManager_RefreshOutlivesCanceledCaller(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := newIAMServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n > 1 {
			<-release
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d"}`, n)
	})

	m, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{
		URL:    server.URL,
		APIKey: "secret-key",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Refresh(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, "tok-2", m.Token())
}

func TestTokenManager_RefreshFailureKeepsOldToken(t *testing.T) {
	var calls int32
	server := newIAMServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-1"}`)
	})

	m, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{
		URL:    server.URL,
		APIKey: "secret-key",
	})
	require.NoError(t, err)

	_, err = m.Refresh(context.Background())

	assert.True(t, domainerrors.IsAuthError(err))
	assert.Equal(t, "tok-1", m.Token())
}

func TestTokenManager_ConcurrentRefreshIsCoalesced(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := newIAMServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n > 1 {
			<-release
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d"}`, n)
	})

	m, err := auth.NewTokenManager(context.Background(), &auth.TokenManagerConfig{
		URL:    server.URL,
		APIKey: "secret-key",
	})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	tokens := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = m.Refresh(context.Background())
		}(i)
	}

	// Let the refreshers pile up on the in-flight exchange before releasing it.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	for _, token := range tokens {
		assert.Equal(t, "tok-2", token)
	}
}
