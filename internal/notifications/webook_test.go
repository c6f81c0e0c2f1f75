package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_Notify_Success(t *testing.T) {
	var received OperationFailure
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hook := Webhook{URL: server.URL}
	err := hook.Notify(OperationFailure{
		Service:      "coldsnap",
		ResourceKind: "instance",
		ResourceID:   "i-1",
		Region:       "us-east-1",
		Operation:    "pause",
		Message:      "failed to stop",
		SnapshotID:   "pause-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "i-1", received.ResourceID)
	assert.Equal(t, "pause-1", received.SnapshotID)
}

func TestWebhook_Notify_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "alice", user)
		require.Equal(t, "secret", pass)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hook := Webhook{URL: server.URL, Username: "alice", Password: "secret"}
	require.NoError(t, hook.Notify(OperationFailure{Service: "coldsnap"}))
}

func TestWebhook_Notify_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	hook := Webhook{URL: server.URL}
	err := hook.Notify(OperationFailure{Service: "coldsnap"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
