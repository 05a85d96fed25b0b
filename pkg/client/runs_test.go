package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunsList(t *testing.T) {
	runs := []Run{
		{ID: "run-1", ApplicationID: "app-1", State: "running"},
		{ID: "run-2", ApplicationID: "app-1", State: "pending"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/runs", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		query := r.URL.Query()
		require.Equal(t, "app-1", query.Get("applicationId"))
		require.Equal(t, "running,pending", query.Get("state"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(runs)
	}))
	defer server.Close()

	client, err := New(WithServer(server.URL))
	require.NoError(t, err)

	result, err := client.Runs().List(context.Background(), RunListOptions{
		ApplicationID: "app-1",
		State:         []string{"running", "pending"},
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, "run-1", result[0].ID)
}

func TestRunsGet(t *testing.T) {
	run := Run{ID: "run-123", ApplicationID: "app-1", State: "succeeded", ItemCount: 12}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/runs/run-123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(run)
	}))
	defer server.Close()

	client, err := New(WithServer(server.URL))
	require.NoError(t, err)

	result, err := client.Runs().Get(context.Background(), "run-123")
	require.NoError(t, err)
	require.Equal(t, "succeeded", result.State)
	require.Equal(t, 12, result.ItemCount)
}

func TestRunsCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/runs", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req RunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "app-1", req.ApplicationID)
		require.Equal(t, []string{"slide-1", "slide-2"}, req.SlideIDs)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Run{ID: "run-new", ApplicationID: req.ApplicationID, State: "pending", ItemCount: len(req.SlideIDs)})
	}))
	defer server.Close()

	client, err := New(WithServer(server.URL))
	require.NoError(t, err)

	result, err := client.Runs().Create(context.Background(), RunRequest{
		ApplicationID: "app-1",
		SlideIDs:      []string{"slide-1", "slide-2"},
	})
	require.NoError(t, err)
	require.Equal(t, "run-new", result.ID)
	require.Equal(t, 2, result.ItemCount)
}

func TestRunsCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/runs/run-123/cancel", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Run{ID: "run-123", State: "cancelled"})
	}))
	defer server.Close()

	client, err := New(WithServer(server.URL))
	require.NoError(t, err)

	result, err := client.Runs().Cancel(context.Background(), "run-123")
	require.NoError(t, err)
	require.Equal(t, "cancelled", result.State)
}
