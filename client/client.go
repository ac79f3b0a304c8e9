// Package client executes authenticated HTTP calls against the external
// messaging service with bounded retries and uniform error classification.
//
// Only connection-level failures (timeout, refused) are retried, with a
// fixed one second pause between attempts. HTTP error statuses are never
// retried. Retries after a timeout may duplicate a side effect the server
// already processed; this is a documented limitation, not an exactly-once
// guarantee.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vendormesh/wabridge/internal/config"
	"github.com/vendormesh/wabridge/token"
	"github.com/vendormesh/wabridge/usage"
	"github.com/vendormesh/wabridge/vendors"
)

// retryBackoff is the fixed pause between transient-failure retries. No
// exponential growth, no jitter: this is a low-volume integration and a
// caller needing smarter backoff must wrap this client.
const retryBackoff = time.Second

// uploadTimeoutMultiplier widens the per-attempt timeout for multipart
// uploads on the assumption uploads are slower.
const uploadTimeoutMultiplier = 2

// Client is the resilient API client. A fresh credential is minted per call;
// credentials are never cached across calls.
type Client struct {
	rest       *resty.Client
	uploadRest *resty.Client
	issuer     *token.Issuer
	sink       usage.Sink
	logger     zerolog.Logger
	maxRetries int
	debug      bool
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithUsageSink sets the accounting sink. Defaults to the no-op sink.
func WithUsageSink(sink usage.Sink) Option {
	return func(c *Client) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithClientLogger sets the logger used for debug request/retry logging.
func WithClientLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransport overrides the HTTP transport (primarily for testing).
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.rest.SetTransport(transport)
		c.uploadRest.SetTransport(transport)
	}
}

// New creates a Client against cfg.GetAPIBaseURL(). Per-attempt timeout and
// the retry ceiling come from configuration; total attempts per call is
// ceiling + 1.
func New(cfg config.APIConfig, issuer *token.Issuer, options ...Option) (*Client, error) {
	if issuer == nil {
		return nil, errors.New("[client.New] issuer is required")
	}

	timeout := time.Duration(cfg.GetConnectTimeoutSeconds()) * time.Second
	retries := cfg.GetMaxRetries()
	if retries < 0 {
		retries = 0
	}

	c := &Client{
		issuer:     issuer,
		sink:       usage.NopSink{},
		logger:     zerolog.Nop(),
		maxRetries: retries,
		debug:      cfg.GetDebug(),
	}
	c.rest = c.newRestClient(cfg.GetAPIBaseURL(), timeout, retries)
	// Uploads retry in SendMultipart, which rebuilds the multipart body per
	// attempt; the upload client itself must not re-run a consumed reader.
	c.uploadRest = c.newRestClient(cfg.GetAPIBaseURL(), uploadTimeoutMultiplier*timeout, 0)

	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) newRestClient(baseURL string, timeout time.Duration, retries int) *resty.Client {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(retryBackoff).
		SetRetryMaxWaitTime(retryBackoff).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry only when no response was received at all.
			return err != nil
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			if c.debug {
				c.logger.Debug().
					Str("method", r.Request.Method).
					Str("url", r.Request.URL).
					Err(err).
					Msg("retrying after transient failure")
			}
		})

	rest.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		if c.debug {
			c.logger.Debug().
				Str("method", r.Request.Method).
				Str("url", r.Request.URL).
				Int("status", r.StatusCode()).
				Dur("duration", r.Time()).
				Msg("api response")
		}
		return nil
	})
	return rest
}

// Send executes one logical API call as the given identity. For GET and
// DELETE the payload is serialized as query parameters; for POST and PUT as
// a JSON body. The decoded response object is returned on success.
func (c *Client) Send(ctx context.Context, identity vendors.Identity, vendor *vendors.VendorInfo, method, endpoint string, payload map[string]any) (map[string]any, error) {
	credential, err := c.issuer.IssueCredential(identity, vendor)
	if err != nil {
		return nil, &AuthenticationError{Err: err}
	}

	req := c.rest.R().SetContext(ctx).SetAuthToken(credential)

	switch method {
	case http.MethodGet, http.MethodDelete:
		req.SetQueryParams(toQueryParams(payload))
	case http.MethodPost, http.MethodPut:
		if payload == nil {
			payload = map[string]any{}
		}
		req.SetBody(payload)
	default:
		return nil, errors.Errorf("[Client.Send] unsupported method %q", method)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		// req.Attempt counts the attempts actually made, which is fewer
		// than the ceiling when the context is cancelled mid-backoff.
		return nil, &TransientError{Attempts: req.Attempt, Err: err}
	}
	return c.classify(resp)
}

// classify turns a received response into the caller-facing outcome and
// records the usage event for the completed attempt.
func (c *Client) classify(resp *resty.Response) (map[string]any, error) {
	c.sink.Record(usage.Event{
		ID:         uuid.New().String(),
		Endpoint:   resp.Request.URL,
		Method:     resp.Request.Method,
		StatusCode: resp.StatusCode(),
		Timestamp:  time.Now(),
	})

	body := resp.Body()
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &APIError{Status: resp.StatusCode(), Message: extractMessage(body, resp.StatusCode())}
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &ParseError{Status: resp.StatusCode(), Err: err}
	}
	return decoded, nil
}

// extractMessage pulls the most specific error message the response allows:
// a "message" field, then an "error" field, then a generic fallback.
func extractMessage(body []byte, status int) string {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if msg, ok := decoded["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := decoded["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func toQueryParams(payload map[string]any) map[string]string {
	params := make(map[string]string, len(payload))
	for key, value := range payload {
		params[key] = fmt.Sprint(value)
	}
	return params
}
