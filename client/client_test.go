package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/vendormesh/wabridge/client"
	"github.com/vendormesh/wabridge/token"
	"github.com/vendormesh/wabridge/token/secrets"
	"github.com/vendormesh/wabridge/usage"
	"github.com/vendormesh/wabridge/vendors"
)

const (
	testIssuerName = "com.testbridge"
	testVendorID   = "vendor-9"
)

var testAllowedRoles = []string{"administrator", "vendor"}

// testAPIConfig implements config.APIConfig for tests.
type testAPIConfig struct {
	baseURL        string
	timeoutSeconds int
	maxRetries     int
	debug          bool
	usageTracking  bool
}

func (c testAPIConfig) GetAPIBaseURL() string         { return c.baseURL }
func (c testAPIConfig) GetConnectTimeoutSeconds() int { return c.timeoutSeconds }
func (c testAPIConfig) GetMaxRetries() int            { return c.maxRetries }
func (c testAPIConfig) GetDebug() bool                { return c.debug }
func (c testAPIConfig) GetUsageTracking() bool        { return c.usageTracking }

// flakyTransport fails the first n round trips with a connection-level error
// and delegates the rest to the underlying transport.
type flakyTransport struct {
	failures int32
	calls    int32
	base     http.RoundTripper
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	call := atomic.AddInt32(&t.calls, 1)
	if call <= atomic.LoadInt32(&t.failures) {
		return nil, errors.New("dial tcp: connection refused")
	}
	return t.base.RoundTrip(req)
}

func (t *flakyTransport) callCount() int {
	return int(atomic.LoadInt32(&t.calls))
}

// captureSink collects usage events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []usage.Event
}

func (s *captureSink) Record(event usage.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) recorded() []usage.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]usage.Event{}, s.events...)
}

func newIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	store, err := secrets.NewMemoryStore("")
	require.NoError(t, err)
	issuer, err := token.NewIssuer(token.NewHMACSigner(store), testIssuerName, testAllowedRoles)
	require.NoError(t, err)
	return issuer
}

func newClient(t *testing.T, cfg testAPIConfig, options ...client.Option) *client.Client {
	t.Helper()
	c, err := client.New(cfg, newIssuer(t), options...)
	require.NoError(t, err)
	return c
}

func vendorIdentity() vendors.Identity {
	return vendors.Identity{ID: "user-1", Username: "jane.vendor", Email: "jane@example.com", Roles: []string{"vendor"}}
}

func vendorInfo() *vendors.VendorInfo {
	return &vendors.VendorInfo{VendorID: testVendorID, StoreName: "Jane's Store"}
}

func TestSendRetriesConnectionFailuresThenSucceeds(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	transport := &flakyTransport{failures: 2, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 3},
		client.WithTransport(transport),
	)

	start := time.Now()
	result, err := c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodPost, "/api/messages", map[string]any{"to": "123"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, true, result["ok"])
	require.Equal(t, 3, transport.callCount())
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	// Two retries with a fixed 1s pause between attempts.
	require.GreaterOrEqual(t, elapsed, 2*time.Second)
}

func TestSendExhaustsRetriesOnPersistentConnectionFailure(t *testing.T) {
	transport := &flakyTransport{failures: 100, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: "http://localhost:1", timeoutSeconds: 5, maxRetries: 2},
		client.WithTransport(transport),
	)

	_, err := c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodPost, "/api/messages", nil)

	var transientErr *client.TransientError
	require.ErrorAs(t, err, &transientErr)
	require.Equal(t, 3, transientErr.Attempts)
	require.Equal(t, 3, transport.callCount())
}

func TestSendReportsActualAttemptsOnEarlyCancellation(t *testing.T) {
	transport := &flakyTransport{failures: 100, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: "http://localhost:1", timeoutSeconds: 5, maxRetries: 3},
		client.WithTransport(transport),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := c.Send(ctx, vendorIdentity(), vendorInfo(), http.MethodPost, "/x", nil)

	var transientErr *client.TransientError
	require.ErrorAs(t, err, &transientErr)
	// The context expired during the first backoff, so only one attempt
	// was made; the ceiling of four must not be reported.
	require.Equal(t, 1, transientErr.Attempts)
	require.Equal(t, 1, transport.callCount())
}

func TestSendDoesNotRetryHTTPErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	defer ts.Close()

	c := newClient(t, testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 3})

	_, err := c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodGet, "/api/sessions/x/status", nil)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "not found", apiErr.Message)
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSendPrefersMessageThenErrorThenFallback(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		expected string
	}{
		{"message field", `{"message":"session expired","error":"ignored"}`, "session expired"},
		{"error field", `{"error":"bad session"}`, "bad session"},
		{"fallback", `{"detail":"nope"}`, "request failed with status 500"},
		{"unparseable error body", `<html>boom</html>`, "request failed with status 500"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			c := newClient(t, testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 0})
			_, err := c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodGet, "/x", nil)

			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.expected, apiErr.Message)
		})
	}
}

func TestSendReturnsParseErrorForUnparseableSuccessBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not json"))
	}))
	defer ts.Close()

	c := newClient(t, testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 3})
	_, err := c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodGet, "/x", nil)

	var parseErr *client.ParseError
	require.ErrorAs(t, err, &parseErr)
	var apiErr *client.APIError
	require.False(t, errors.As(err, &apiErr))
}

func TestSendSerializesPayloadAsQueryParamsForGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "vendor-9", r.URL.Query().Get("vendorId"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := newClient(t, testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 0})
	_, err := c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodGet, "/api/sessions", map[string]any{
		"vendorId": "vendor-9",
		"limit":    5,
	})
	require.NoError(t, err)
}

func TestSendAttachesFreshBearerCredential(t *testing.T) {
	issuer := newIssuer(t)

	var seen string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c, err := client.New(testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 0}, issuer)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodPost, "/x", nil)
	require.NoError(t, err)

	require.Contains(t, seen, "Bearer ")
	credential := issuer.Validate(seen[len("Bearer "):])
	require.True(t, credential.Active)
	require.Equal(t, testVendorID, *credential.VendorID)
}

func TestSendFailsWithAuthenticationErrorBeforeAnyNetworkActivity(t *testing.T) {
	transport := &flakyTransport{failures: 0, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: "http://localhost:1", timeoutSeconds: 5, maxRetries: 3},
		client.WithTransport(transport),
	)

	identity := vendorIdentity()
	identity.Roles = []string{"customer"}

	_, err := c.Send(context.Background(), identity, vendorInfo(), http.MethodPost, "/x", nil)

	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.ErrorIs(t, err, token.ErrUnauthorized)
	require.Equal(t, 0, transport.callCount())
}

func TestSendRecordsUsageEventPerCompletedAttempt(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	sink := &captureSink{}
	c := newClient(t,
		testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 0, usageTracking: true},
		client.WithUsageSink(sink),
	)

	_, err := c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodPost, "/ok", nil)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), vendorIdentity(), vendorInfo(), http.MethodGet, "/bad", nil)
	require.Error(t, err)

	events := sink.recorded()
	require.Len(t, events, 2)
	require.Equal(t, http.MethodPost, events[0].Method)
	require.Equal(t, http.StatusOK, events[0].StatusCode)
	require.Equal(t, http.MethodGet, events[1].Method)
	require.Equal(t, http.StatusBadRequest, events[1].StatusCode)
	require.NotEmpty(t, events[0].ID)
}
