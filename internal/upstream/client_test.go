package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshop-display-backend/config"
	"carshop-display-backend/internal/model"
)

func newTestClient(url string) *Client {
	return NewClient(&config.UpstreamConfig{
		BaseURL:        url + "/",
		Headers:        map[string]string{"X-Api-Key": "secret"},
		TimeoutSeconds: 5,
	})
}

func TestClient_ListScreens(t *testing.T) {
	finish := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/screens", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		json.NewEncoder(w).Encode([]model.ScreenPayload{
			{ID: "tv-1", ScreenID: "tv-1", CustomerName: "Budi", IsActive: true, EstimatedTime: &finish},
			{ID: "tv-2", ScreenID: "tv-2"},
		})
	}))
	defer server.Close()

	screens, err := newTestClient(server.URL).ListScreens(context.Background())
	require.NoError(t, err)
	require.Len(t, screens, 2)
	assert.Equal(t, "Budi", screens[0].CustomerName)
	assert.True(t, finish.Equal(*screens[0].EstimatedTime))
	assert.Nil(t, screens[1].Record())
}

func TestClient_AssignScreen(t *testing.T) {
	finish := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/screens/tv-1/assign", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := newTestClient(server.URL).AssignScreen(context.Background(), "tv-1", model.SlotRecord{
		CustomerName: "Budi", CarType: "Avanza", Service: "Carmat", EstimatedFinishAt: &finish,
	}, "admin")
	require.NoError(t, err)

	assert.Equal(t, "Budi", got["customerName"])
	assert.Equal(t, "Avanza", got["type"])
	assert.Equal(t, "2025-01-01T10:00:00Z", got["estimatedTime"])
	assert.Equal(t, "admin", got["assignedBy"])
}

func TestClient_ClearScreen(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/screens/tv-2/clear", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL).ClearScreen(context.Background(), "tv-2", "admin"))
	assert.True(t, called)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found is a data error", http.StatusNotFound, model.ErrData},
		{"bad request is a validation error", http.StatusBadRequest, model.ErrValidation},
		{"unprocessable is a validation error", http.StatusUnprocessableEntity, model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			err := newTestClient(server.URL).ClearScreen(context.Background(), "tv-1", "admin")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("server error is neither", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		err := newTestClient(server.URL).ClearScreen(context.Background(), "tv-1", "admin")
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrData)
		assert.NotErrorIs(t, err, model.ErrValidation)
	})

	t.Run("unreachable host", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newTestClient(url).ListScreens(context.Background())
		assert.Error(t, err)
	})
}

func TestNewClient_InvalidProxyFallsBack(t *testing.T) {
	c := NewClient(&config.UpstreamConfig{BaseURL: "http://example.com", HTTPProxy: "://bad", TimeoutSeconds: 1})
	assert.Equal(t, "http://example.com", c.baseURL)
	assert.Equal(t, time.Second, c.client.Timeout)
}
