// Package backend implements the HTTP client for the retail backend that
// owns sales, payments and tickets. All calls go through the standard
// {success, result} envelope and forward the caller's ambient session cookie.
package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vistaoptics/pos-api/internal/config"
	"github.com/vistaoptics/pos-api/pkg/apperror"
)

type sessionKeyType struct{}

var sessionKey sessionKeyType

// WithSession stores the raw Cookie header to forward on backend calls.
func WithSession(ctx context.Context, cookie string) context.Context {
	return context.WithValue(ctx, sessionKey, cookie)
}

// SessionFromContext returns the stored Cookie header, if any.
func SessionFromContext(ctx context.Context) string {
	cookie, _ := ctx.Value(sessionKey).(string)
	return cookie
}

// Client wraps a resty client configured for the retail backend.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message,omitempty"`
}

// NewClient creates a backend client from configuration.
func NewClient(cfg *config.BackendConfig, log *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http: httpClient,
		log:  log,
	}
}

// Get performs a GET and decodes the envelope result into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, resty.MethodGet, path, nil, out)
}

// Post performs a POST with a JSON body and decodes the result into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, resty.MethodPost, path, body, out)
}

// Put performs a PUT with a JSON body and decodes the result into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, resty.MethodPut, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)

	// Forward the ambient session cookie; the backend authenticates with it.
	if cookie := SessionFromContext(ctx); cookie != "" {
		req.SetHeader("Cookie", cookie)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return apperror.NewBackendError("")
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		c.log.Warn("backend response is not a valid envelope",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
		)
		return apperror.NewBackendError(fmt.Sprintf("unexpected backend response (status %d)", resp.StatusCode()))
	}

	// A thrown request error and success=false are treated identically.
	if !resp.IsSuccess() || !env.Success {
		c.log.Warn("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", env.Message),
		)
		return apperror.NewBackendError(env.Message)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return apperror.NewBackendError("malformed backend result")
		}
	}
	return nil
}
