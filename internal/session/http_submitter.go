package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"forestfocus/internal/model"
	"forestfocus/internal/queue"
)

// HTTPSubmitter posts completions to the persistence collaborator.
// Transport failures and 5xx responses come back retryable so the
// reconciler keeps the mutation pending; 4xx responses are permanent.
type HTTPSubmitter struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewHTTPSubmitter(client *http.Client, baseURL, token string) *HTTPSubmitter {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSubmitter{client: client, baseURL: baseURL, token: token}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, sub model.CompletionSubmission) (*model.CompletionResult, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, queue.PermanentError(fmt.Errorf("marshal completion: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/focus/complete", bytes.NewReader(body))
	if err != nil {
		return nil, queue.PermanentError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, queue.RetryableError(fmt.Errorf("post completion: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, queue.RetryableError(fmt.Errorf("read completion response: %w", err))
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, queue.RetryableError(fmt.Errorf("server error %d: %s", resp.StatusCode, raw))
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, queue.PermanentError(fmt.Errorf("completion rejected %d: %s", resp.StatusCode, raw))
	}

	var result model.CompletionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, queue.PermanentError(fmt.Errorf("decode completion response: %w", err))
	}
	return &result, nil
}
