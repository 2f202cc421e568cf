// Package http posts payloads to a collector endpoint.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/output"
)

const maxBodyBytes = 4096

type HTTPOutput struct {
	client   *http.Client
	endpoint string
}

func NewHTTP(endpoint string, timeout time.Duration) *HTTPOutput {
	return &HTTPOutput{client: &http.Client{Timeout: timeout}, endpoint: endpoint}
}

// Submit POSTs the payload once. Any HTTP status counts as a completed
// exchange; only a failure to exchange at all is returned as an error.
func (h *HTTPOutput) Submit(ctx context.Context, payload []byte) (output.Response, error) {
	failed := output.Response{StatusCode: output.StatusConnectionFailed}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return failed, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return failed, fmt.Errorf("post %s: %w", h.endpoint, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// the status line arrived, so the exchange still counts
		return output.Response{StatusCode: resp.StatusCode}, nil
	}
	return output.Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (h *HTTPOutput) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
