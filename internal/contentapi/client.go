// Package contentapi talks to the remote content API that owns posts,
// categories, users and comments.
package contentapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"resty.dev/v3"

	"threadline/api/internal/session"
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected status from content api")
	ErrMalformedResponse = errors.New("malformed content api response")
	ErrUnavailable       = errors.New("content api unavailable")
)

// StatusError carries the upstream status and message of a failed call.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.Status)
	}
	return fmt.Sprintf("%s: %d %s", ErrUnexpectedStatus, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Envelope is the {data, meta} wrapper every endpoint answers with.
type Envelope struct {
	Data json.RawMessage `json:"data"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration

	TransportSettings   *resty.TransportSettings
	ResponseMiddlewares []resty.ResponseMiddleware
}

type Client struct {
	client *resty.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	var client *resty.Client
	if cfg.TransportSettings != nil {
		client = resty.NewWithTransportSettings(cfg.TransportSettings)
	} else {
		client = resty.New()
	}
	client.SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	for _, m := range cfg.ResponseMiddlewares {
		client.AddResponseMiddleware(m)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client: client,
		logger: logger.With("component", "contentapi"),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context, endpoint string) *resty.Request {
	return c.client.R().
		WithContext(withEndpoint(ctx, endpoint)).
		SetExpectResponseContentType("application/json").
		SetResult(&Envelope{}).
		SetError(&apiError{})
}

func authorize(req *resty.Request, creds *session.Credentials) *resty.Request {
	if creds != nil && creds.Token != "" {
		req.SetHeader("Authorization", creds.Header())
	}
	return req
}

// check maps transport failures and non-2xx answers to errors.
func (c *Client) check(endpoint string, res *resty.Response, err error) error {
	if res != nil && res.IsError() {
		statusErr := &StatusError{Status: res.StatusCode()}
		if body, ok := res.Error().(*apiError); ok && body != nil {
			statusErr.Message = body.Message
		}
		c.logger.Debug("content api rejected request", "endpoint", endpoint, "status", statusErr.Status)
		return fmt.Errorf("%s: %w", endpoint, statusErr)
	}
	if err != nil {
		c.logger.Warn("content api request failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%s: %w: %w", endpoint, ErrUnavailable, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%s: %w", endpoint, &StatusError{Status: res.StatusCode()})
	}
	return nil
}

// envelope is check plus the decoded {data, meta} result.
func (c *Client) envelope(endpoint string, res *resty.Response, err error) (*Envelope, error) {
	if err := c.check(endpoint, res, err); err != nil {
		return nil, err
	}
	env, ok := res.Result().(*Envelope)
	if !ok || env == nil {
		return nil, fmt.Errorf("%s: %w", endpoint, ErrMalformedResponse)
	}
	return env, nil
}

type endpointKey struct{}

func withEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

// Endpoint names the logical endpoint a request was made for. Response
// middlewares use it as a low-cardinality label.
func Endpoint(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if name, ok := ctx.Value(endpointKey{}).(string); ok {
		return name
	}
	return "unknown"
}
