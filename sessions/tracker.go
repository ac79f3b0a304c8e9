package sessions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vendormesh/wabridge/client"
	"github.com/vendormesh/wabridge/vendors"
)

// Tracker drives the vendor session lifecycle: create, status check,
// webhook updates, and disconnect. It enforces the one-session-per-vendor
// precondition before invoking session creation.
type Tracker struct {
	repo    Repo
	client  *client.Client
	logger  zerolog.Logger
	nowTime func() time.Time
}

// TrackerOption defines a function type to modify the Tracker instance.
type TrackerOption func(*Tracker)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.nowTime = nowFunc
	}
}

// WithTrackerLogger sets the tracker's logger.
func WithTrackerLogger(logger zerolog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker initializes a Tracker with required dependencies.
func NewTracker(repo Repo, apiClient *client.Client, options ...TrackerOption) (*Tracker, error) {
	if repo == nil {
		return nil, errors.New("[NewTracker] repo is required")
	}
	if apiClient == nil {
		return nil, errors.New("[NewTracker] apiClient is required")
	}

	t := &Tracker{
		repo:    repo,
		client:  apiClient,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// Current returns the vendor's session record, or a synthetic none-state
// record when no session exists.
func (t *Tracker) Current(ctx context.Context, vendorID string) (*VendorSession, error) {
	session, err := t.repo.Get(ctx, vendorID)
	if errors.Is(err, ErrNotFound) {
		return &VendorSession{VendorID: vendorID, Status: StatusNone}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Tracker.Current] repo.Get")
	}
	return session, nil
}

// Create starts a new session for the vendor. On success the record is
// persisted as qr_ready and the QR artifact is returned. A create response
// missing required fields persists the record as failed. Rejected with
// ErrSessionExists while any session record exists for the vendor.
func (t *Tracker) Create(ctx context.Context, identity vendors.Identity, vendor vendors.VendorInfo) (*VendorSession, string, error) {
	_, err := t.repo.Get(ctx, vendor.VendorID)
	if err == nil {
		return nil, "", ErrSessionExists
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, "", errors.Wrap(err, "[Tracker.Create] repo.Get")
	}

	name := sessionName(vendor)
	resp, err := t.client.Send(ctx, identity, &vendor, http.MethodPost, "/api/sessions", map[string]any{
		"vendorId": vendor.VendorID,
		"name":     name,
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "[Tracker.Create] create session call")
	}

	clientID, _ := resp["clientId"].(string)
	qr, _ := resp["qr"].(string)

	session := &VendorSession{
		VendorID:  vendor.VendorID,
		ClientID:  clientID,
		Name:      name,
		Status:    StatusQRReady,
		CreatedAt: t.nowTime(),
	}

	if clientID == "" || qr == "" {
		session.Status = StatusFailed
		if upsertErr := t.repo.Upsert(ctx, session); upsertErr != nil {
			t.logger.Error().Err(upsertErr).Str("vendor_id", vendor.VendorID).Msg("failed to persist failed session")
		}
		return nil, "", ErrIncompleteResponse
	}

	if err := t.repo.Upsert(ctx, session); err != nil {
		return nil, "", errors.Wrap(err, "[Tracker.Create] repo.Upsert")
	}
	return session, qr, nil
}

// CheckStatus queries the external service for the vendor's pairing state
// and applies the resulting transition to the local record.
func (t *Tracker) CheckStatus(ctx context.Context, identity vendors.Identity, vendor vendors.VendorInfo) (*VendorSession, error) {
	session, err := t.repo.Get(ctx, vendor.VendorID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Tracker.CheckStatus] repo.Get")
	}

	resp, err := t.client.Send(ctx, identity, &vendor, http.MethodGet, fmt.Sprintf("/api/sessions/%s/status", session.ClientID), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Tracker.CheckStatus] status call")
	}

	remoteStatus, _ := resp["status"].(string)
	if next, ok := statusFromRemote(remoteStatus); ok && next != session.Status {
		session.Status = next
		if err := t.repo.Upsert(ctx, session); err != nil {
			return nil, errors.Wrap(err, "[Tracker.CheckStatus] repo.Upsert")
		}
	}
	return session, nil
}

// Disconnect tears the session down: best-effort remote, guaranteed local.
// The local record is deleted unconditionally even when the remote
// disconnect call errors.
func (t *Tracker) Disconnect(ctx context.Context, identity vendors.Identity, vendor vendors.VendorInfo) error {
	session, err := t.repo.Get(ctx, vendor.VendorID)
	if errors.Is(err, ErrNotFound) {
		return ErrNoSession
	}
	if err != nil {
		return errors.Wrap(err, "[Tracker.Disconnect] repo.Get")
	}

	if _, err := t.client.Send(ctx, identity, &vendor, http.MethodDelete, fmt.Sprintf("/api/sessions/%s", session.ClientID), nil); err != nil {
		t.logger.Warn().
			Err(err).
			Str("vendor_id", vendor.VendorID).
			Str("client_id", session.ClientID).
			Msg("remote disconnect failed, removing local record anyway")
	}

	if err := t.repo.Delete(ctx, vendor.VendorID); err != nil {
		return errors.Wrap(err, "[Tracker.Disconnect] repo.Delete")
	}
	return nil
}

// ApplyWebhook applies a status reported by the external service via
// webhook. A disconnected status deletes the local record.
func (t *Tracker) ApplyWebhook(ctx context.Context, vendorID, remoteStatus string) (*VendorSession, error) {
	session, err := t.repo.Get(ctx, vendorID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Tracker.ApplyWebhook] repo.Get")
	}

	if strings.EqualFold(remoteStatus, string(StatusDisconnected)) {
		if err := t.repo.Delete(ctx, vendorID); err != nil {
			return nil, errors.Wrap(err, "[Tracker.ApplyWebhook] repo.Delete")
		}
		session.Status = StatusDisconnected
		return session, nil
	}

	if next, ok := statusFromRemote(remoteStatus); ok && next != session.Status {
		session.Status = next
		if err := t.repo.Upsert(ctx, session); err != nil {
			return nil, errors.Wrap(err, "[Tracker.ApplyWebhook] repo.Upsert")
		}
	}
	return session, nil
}

// statusFromRemote maps the external service's status vocabulary onto the
// local lifecycle. Unknown statuses leave the record untouched.
func statusFromRemote(remote string) (Status, bool) {
	switch strings.ToLower(remote) {
	case "authenticated", "connected", "inchat":
		return StatusAuthenticated, true
	case "failed", "error", "auth_failure":
		return StatusFailed, true
	case "qr", "qr_ready", "qrcode":
		return StatusQRReady, true
	default:
		return "", false
	}
}

func sessionName(vendor vendors.VendorInfo) string {
	store := strings.TrimSpace(vendor.StoreName)
	if store == "" {
		store = "vendor"
	}
	store = strings.ToLower(strings.ReplaceAll(store, " ", "-"))
	return fmt.Sprintf("%s-%s", store, uuid.New().String()[:8])
}
