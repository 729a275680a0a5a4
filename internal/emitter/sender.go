package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSender posts events to the ingestion API.
type HTTPSender struct {
	baseURL   string
	authToken string
	client    *http.Client
}

func NewHTTPSender(baseURL, authToken string) *HTTPSender {
	return &HTTPSender{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) SendStart(ctx context.Context, e StartEvent) error {
	return s.post(ctx, "/api/v1/analytics/video-view", e)
}

func (s *HTTPSender) SendProgress(ctx context.Context, e ProgressEvent) error {
	return s.post(ctx, "/api/v1/analytics/video-progress", e)
}

func (s *HTTPSender) SendComplete(ctx context.Context, e CompleteEvent) error {
	return s.post(ctx, "/api/v1/analytics/video-complete", e)
}

func (s *HTTPSender) post(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ingestion endpoint returned %d for %s", resp.StatusCode, path)
	}
	return nil
}
