package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vendormesh/wabridge/client"
)

func TestSendMultipartFailsFastWhenFileMissing(t *testing.T) {
	transport := &flakyTransport{failures: 0, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: "http://localhost:1", timeoutSeconds: 5, maxRetries: 3},
		client.WithTransport(transport),
	)

	_, err := c.SendMultipart(context.Background(), vendorIdentity(), vendorInfo(), "/api/media", "/does/not/exist.jpg", "")

	var notFoundErr *client.FileNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	require.Equal(t, "/does/not/exist.jpg", notFoundErr.Path)
	require.Equal(t, 0, transport.callCount())
}

func TestSendMultipartUploadsFileField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf-bytes"), 0o600))

	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		require.Equal(t, http.MethodPost, r.Method)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		require.Equal(t, "renamed.pdf", header.Filename)
		contents, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "pdf-bytes", string(contents))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mediaId":"m-1"}`))
	}))
	defer ts.Close()

	c := newClient(t, testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 2})

	result, err := c.SendMultipart(context.Background(), vendorIdentity(), vendorInfo(), "/api/media", path, "renamed.pdf")
	require.NoError(t, err)
	require.Equal(t, "m-1", result["mediaId"])
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSendMultipartDefaultsFilenameToBaseName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o600))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		require.Equal(t, "photo.jpg", header.Filename)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := newClient(t, testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 0})

	_, err := c.SendMultipart(context.Background(), vendorIdentity(), vendorInfo(), "/api/media", path, "")
	require.NoError(t, err)
}

func TestSendMultipartRetriesConnectionFailureWithFullBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf-bytes"), 0o600))

	var uploaded atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		contents, err := io.ReadAll(file)
		require.NoError(t, err)
		uploaded.Store(string(contents))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mediaId":"m-1"}`))
	}))
	defer ts.Close()

	transport := &flakyTransport{failures: 1, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 2},
		client.WithTransport(transport),
	)

	start := time.Now()
	result, err := c.SendMultipart(context.Background(), vendorIdentity(), vendorInfo(), "/api/media", path, "")

	require.NoError(t, err)
	require.Equal(t, "m-1", result["mediaId"])
	require.Equal(t, 2, transport.callCount())
	// The retried attempt must deliver the original file contents, not a
	// drained reader.
	require.Equal(t, "pdf-bytes", uploaded.Load())
	require.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestSendMultipartExhaustsRetriesOnPersistentConnectionFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o600))

	transport := &flakyTransport{failures: 100, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: "http://localhost:1", timeoutSeconds: 5, maxRetries: 2},
		client.WithTransport(transport),
	)

	_, err := c.SendMultipart(context.Background(), vendorIdentity(), vendorInfo(), "/api/media", path, "")

	var transientErr *client.TransientError
	require.ErrorAs(t, err, &transientErr)
	require.Equal(t, 3, transientErr.Attempts)
	require.Equal(t, 3, transport.callCount())
}

func TestSendMultipartReportsActualAttemptsOnEarlyCancellation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o600))

	transport := &flakyTransport{failures: 100, base: http.DefaultTransport}
	c := newClient(t,
		testAPIConfig{baseURL: "http://localhost:1", timeoutSeconds: 5, maxRetries: 3},
		client.WithTransport(transport),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := c.SendMultipart(ctx, vendorIdentity(), vendorInfo(), "/api/media", path, "")

	var transientErr *client.TransientError
	require.ErrorAs(t, err, &transientErr)
	// One attempt completed before the context expired during the backoff.
	require.Equal(t, 1, transientErr.Attempts)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendMultipartClassifiesHTTPErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"message":"file too large"}`))
	}))
	defer ts.Close()

	c := newClient(t, testAPIConfig{baseURL: ts.URL, timeoutSeconds: 5, maxRetries: 3})

	_, err := c.SendMultipart(context.Background(), vendorIdentity(), vendorInfo(), "/api/media", path, "")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusRequestEntityTooLarge, apiErr.Status)
	require.Equal(t, "file too large", apiErr.Message)
}
