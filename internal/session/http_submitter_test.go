package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestfocus/internal/model"
	"forestfocus/internal/queue"
	"forestfocus/internal/session"
)

func submission() model.CompletionSubmission {
	return model.CompletionSubmission{
		SessionID:    "s1",
		Fingerprint:  "fp-1",
		StartedAt:    time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		FocusMinutes: 25,
	}
}

func TestHTTPSubmitterSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/focus/complete", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"pointsEarned":13,"newStreak":2,"treesGrown":[]}`))
	}))
	defer server.Close()

	sub := session.NewHTTPSubmitter(server.Client(), server.URL, "token-1")
	result, err := sub.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 13, result.PointsEarned)
	assert.Equal(t, 2, result.NewStreak)
}

func TestHTTPSubmitterServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "temporarily down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sub := session.NewHTTPSubmitter(server.Client(), server.URL, "")
	_, err := sub.Submit(context.Background(), submission())
	require.Error(t, err)

	var de *queue.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.True(t, de.Retryable)
}

func TestHTTPSubmitterClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"fingerprint_mismatch"}}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	sub := session.NewHTTPSubmitter(server.Client(), server.URL, "")
	_, err := sub.Submit(context.Background(), submission())
	require.Error(t, err)

	var de *queue.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.False(t, de.Retryable)
}

func TestHTTPSubmitterNetworkErrorIsRetryable(t *testing.T) {
	sub := session.NewHTTPSubmitter(&http.Client{Timeout: 200 * time.Millisecond}, "http://127.0.0.1:1", "")
	_, err := sub.Submit(context.Background(), submission())
	require.Error(t, err)

	var de *queue.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.True(t, de.Retryable)
}
