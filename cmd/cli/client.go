package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iho/gosplit/internal/adapter/http/dto"
)

// apiClient talks to the gosplit HTTP API.
type apiClient struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
	log     *slog.Logger
}

func newAPIClient(baseURL, token, userID string, timeout time.Duration, log *slog.Logger) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  userID,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status int
	Body   dto.ErrorResponse
	Raw    string
}

func (e *apiError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("request failed (status %d): %s", e.Status, strings.TrimSpace(e.Raw))
	}
	msg := fmt.Sprintf("%s (status %d)", e.Body.Error, e.Status)
	if e.Body.Message != "" {
		msg += ": " + e.Body.Message
	}
	if e.Body.Delta != "" {
		msg += fmt.Sprintf(" [expected %s, actual %s, delta %s]", e.Body.Expected, e.Body.Actual, e.Body.Delta)
	}
	return msg
}

// do sends the request and returns the response body of a 2xx answer.
func (c *apiClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode, Raw: string(raw)}
		_ = json.Unmarshal(raw, &apiErr.Body)
		return nil, apiErr
	}
	return raw, nil
}

// printJSON re-indents a JSON document onto w.
func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return errors.New("unexpected non-JSON response")
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
