package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "geobus/pkg/errors"
)

// HttpClient is a thin JSON client for the geobus HTTP API.
type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// DecodeData unwraps the {"data": ...} envelope of a success response.
func (r *Response) DecodeData(target any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response envelope (%d): %w", r.StatusCode, err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data (%d): %w", r.StatusCode, err)
	}
	return nil
}

// ErrorBody decodes an error response body.
func (r *Response) ErrorBody() *apperrors.ErrorResponse {
	var errResp apperrors.ErrorResponse
	if err := r.DecodeJSON(&errResp); err != nil {
		return &apperrors.ErrorResponse{Message: fmt.Sprintf("undecodable error body: %s", string(r.Body))}
	}
	return &errResp
}

func (c *HttpClient) GET(ctx context.Context, path, token string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil, headers(token, ""))
}

func (c *HttpClient) POST(ctx context.Context, path, token string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body, headers(token, ""))
}

// POSTIdempotent sends body with an Idempotency-Key header.
func (c *HttpClient) POSTIdempotent(ctx context.Context, path, token, key string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body, headers(token, key))
}

func headers(token, idempotencyKey string) map[string]string {
	h := map[string]string{}
	if token != "" {
		h["Authorization"] = "Bearer " + token
	}
	if idempotencyKey != "" {
		h["Idempotency-Key"] = idempotencyKey
	}
	return h
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any, headers map[string]string) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

func (c *HttpClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		resp, err := c.GET(ctx, "/health", "")
		if err == nil && resp.StatusCode == http.StatusOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v", maxWait)
		case <-ticker.C:
		}
	}
}
