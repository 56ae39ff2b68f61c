package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/librarian/internal/core/domain"
)

const (
	restPathPrefix = "/rest/v1/"
	authPathPrefix = "/auth/v1/"

	preferReturnRepresentation = "return=representation"
	preferReturnMinimal        = "return=minimal"

	defaultRestTimeout = 10 * time.Second
	maxErrorBodyBytes  = 64 << 10
)

// APIError is a non-2xx answer of the hosted backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, msg)
}

// RestOption configures the hosted backend adapters.
type RestOption func(*restClient)

func WithHTTPClient(client *http.Client) RestOption {
	return func(c *restClient) {
		if client != nil {
			c.http = client
		}
	}
}

func WithRestLogger(logger *zap.Logger) RestOption {
	return func(c *restClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type restClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

func newRestClient(baseURL, apiKey string, opts ...RestOption) restClient {
	c := restClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultRestTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type restRequest struct {
	method string
	path   string
	query  url.Values
	body   any
	prefer string
	token  string // overrides the bearer token taken from the context
}

// do sends the request and decodes a 2xx JSON answer into out (when non-nil).
func (c restClient) do(ctx context.Context, req restRequest, out any) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.bearer(ctx, req.token))
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.prefer != "" {
		httpReq.Header.Set("Prefer", req.prefer)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c restClient) bearer(ctx context.Context, override string) string {
	if override != "" {
		return override
	}
	if s, ok := domain.SessionFromContext(ctx); ok && s.AccessToken != "" {
		return s.AccessToken
	}
	return c.apiKey
}

// decodeAPIError understands both the table API ({code,message,details,hint}) and the
// auth API ({error,error_description} or {code,error_code,msg}) error bodies.
func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	apiErr.Message = firstString(body, "message", "msg", "error_description", "error")
	apiErr.Code = firstString(body, "error_code", "code", "error")
	apiErr.Details = firstString(body, "details")
	apiErr.Hint = firstString(body, "hint")
	return apiErr
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%d", int64(v))
		}
	}
	return ""
}

func eq(v any) string {
	return fmt.Sprintf("eq.%v", v)
}
