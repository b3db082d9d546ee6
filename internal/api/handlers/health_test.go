package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/mentalbot-service/internal/api/dto"
	"github.com/unifiedui/mentalbot-service/internal/api/handlers"
	"github.com/unifiedui/mentalbot-service/internal/mocks"
	"github.com/unifiedui/mentalbot-service/internal/testutils"
)

func TestHealthHandler_Health_Healthy(t *testing.T) {
	store := &mocks.MockStore{}
	store.On("Ping", mock.Anything).Return(nil)

	router := testutils.SetupTestRouter()
	router.GET("/health", handlers.NewHealthHandler(store).Health)

	w := testutils.PerformRequest(router, http.MethodGet, "/health", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
	var response dto.HealthResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "healthy", response.Components["session_store"])
	store.AssertExpectations(t)
}

func TestHealthHandler_Health_Unhealthy(t *testing.T) {
	store := &mocks.MockStore{}
	store.On("Ping", mock.Anything).Return(assert.AnError)

	router := testutils.SetupTestRouter()
	router.GET("/health", handlers.NewHealthHandler(store).Health)

	w := testutils.PerformRequest(router, http.MethodGet, "/health", nil, nil)

	testutils.AssertStatusCode(t, http.StatusServiceUnavailable, w)
	var response dto.HealthResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "unhealthy", response.Components["session_store"])
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "ready", pingErr: nil, wantStatus: http.StatusOK, wantBody: "ready"},
		{name: "not ready", pingErr: assert.AnError, wantStatus: http.StatusServiceUnavailable, wantBody: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockStore{}
			store.On("Ping", mock.Anything).Return(tt.pingErr)

			router := testutils.SetupTestRouter()
			router.GET("/ready", handlers.NewHealthHandler(store).Ready)

			w := testutils.PerformRequest(router, http.MethodGet, "/ready", nil, nil)

			testutils.AssertStatusCode(t, tt.wantStatus, w)
			var response map[string]string
			testutils.ParseJSONResponse(t, w, &response)
			assert.Equal(t, tt.wantBody, response["status"])
		})
	}
}

func TestHealthHandler_Live(t *testing.T) {
	store := &mocks.MockStore{}

	router := testutils.SetupTestRouter()
	router.GET("/live", handlers.NewHealthHandler(store).Live)

	w := testutils.PerformRequest(router, http.MethodGet, "/live", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
	store.AssertNotCalled(t, "Ping", mock.Anything)
}
