package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"livescore-client/pkg/common"
)

// DefaultTimeout is the default HTTP client timeout
const DefaultTimeout = 10 * time.Second

// APIError represents a non-2xx API response
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Body       string `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error %d", e.StatusCode)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// apiClient performs JSON calls against one base URL. Calls are never retried.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
}

func newAPIClient(baseURL string, httpClient *http.Client, token func() string) *apiClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
	}
}

// do sends body as JSON and decodes the response into out when out is non-nil.
// It returns the raw response body.
func (c *apiClient) do(ctx context.Context, method, endpoint string, body, out interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.NewAppError(common.CodeTransport, "failed to execute request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewAppError(common.CodeTransport, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, common.NewAppError(common.CodeDecode, "failed to decode response", err)
		}
	}
	return respBody, nil
}

func (c *apiClient) post(ctx context.Context, endpoint string, body, out interface{}) ([]byte, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *apiClient) put(ctx context.Context, endpoint string, body, out interface{}) ([]byte, error) {
	return c.do(ctx, http.MethodPut, endpoint, body, out)
}
