// internal/watcher/feed_test.go
package watcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFeedClient_ParsesListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":7,"contract_address":"0xabc","name":"Cat","symbol":"CAT","type":"clanker_v2","created_at":"2026-08-28T10:00:00Z"}]}`))
	}))
	defer server.Close()

	client, err := NewFeedClient(server.URL, "", zaptest.NewLogger(t))
	require.NoError(t, err)

	listings, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, int64(7), listings[0].ID)
	assert.Equal(t, "CAT", listings[0].Symbol)
	assert.Equal(t, "clanker_v2", listings[0].Type)
}

func TestFeedClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, err := NewFeedClient(server.URL, "", zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFeedClient_GivesUpAfterMaxTries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewFeedClient(server.URL, "", zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background())
	require.Error(t, err)
}

func TestFeedClient_RejectsBadProxyURL(t *testing.T) {
	_, err := NewFeedClient("https://example.com", "://bad", zaptest.NewLogger(t))
	require.Error(t, err)
}
