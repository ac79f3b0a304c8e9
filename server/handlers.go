package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"

	"github.com/vendormesh/wabridge/sessions"
	"github.com/vendormesh/wabridge/token"
	"github.com/vendormesh/wabridge/vendors"
)

// HealthHandler reports liveness
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": s.config.GetAppName(),
		})
	}
}

// TokenRequest is the host platform's token-exchange payload.
type TokenRequest struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// TokenHandler exchanges the service secret plus a platform identity for a
// signed vendor credential.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req TokenRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		identity := vendors.Identity{
			ID:       req.UserID,
			Username: req.Username,
			Email:    req.Email,
			Roles:    req.Roles,
		}

		var vendor *vendors.VendorInfo
		if info, ok := s.resolver.Resolve(identity); ok {
			vendor = &info
		}

		signedToken, err := s.issuer.IssueCredential(identity, vendor)
		if errors.Is(err, token.ErrUnauthorized) {
			writeError(w, http.StatusForbidden, "identity not authorized")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("credential issuance failed")
			writeError(w, http.StatusInternalServerError, "credential issuance failed")
			return
		}

		response := map[string]any{
			"token":     signedToken,
			"is_vendor": vendor != nil,
		}
		if vendor != nil {
			response["vendor_id"] = vendor.VendorID
			response["vendor_name"] = vendor.StoreName
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// RotateSecretHandler replaces the signing secret. All outstanding
// credentials become unverifiable immediately; there is no grace period.
func (s *Server) RotateSecretHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		secret, err := s.secretStore.Rotate()
		if err != nil {
			s.logger.Error().Err(err).Msg("secret rotation failed")
			writeError(w, http.StatusInternalServerError, "secret rotation failed")
			return
		}

		s.logger.Info().Msg("signing secret rotated, outstanding credentials invalidated")
		writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
	}
}

// SessionHandler creates (POST), reports (GET), or disconnects (DELETE) the
// calling vendor's session.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, vendor, ok := s.vendorCaller(w, r)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			session, err := s.tracker.Current(r.Context(), vendor.VendorID)
			if err != nil {
				s.logger.Error().Err(err).Msg("session lookup failed")
				writeError(w, http.StatusInternalServerError, "session lookup failed")
				return
			}
			writeJSON(w, http.StatusOK, session)

		case http.MethodPost:
			session, qr, err := s.tracker.Create(r.Context(), identity, vendor)
			switch {
			case errors.Is(err, sessions.ErrSessionExists):
				writeError(w, http.StatusConflict, "vendor already has an active session")
			case errors.Is(err, sessions.ErrIncompleteResponse):
				writeError(w, http.StatusBadGateway, "messaging service returned an incomplete session")
			case err != nil:
				s.writeClientError(w, err)
			default:
				writeJSON(w, http.StatusCreated, map[string]any{"session": session, "qr": qr})
			}

		case http.MethodDelete:
			err := s.tracker.Disconnect(r.Context(), identity, vendor)
			if errors.Is(err, sessions.ErrNoSession) {
				writeError(w, http.StatusNotFound, "vendor has no session")
				return
			}
			if err != nil {
				s.logger.Error().Err(err).Msg("disconnect failed")
				writeError(w, http.StatusInternalServerError, "disconnect failed")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": string(sessions.StatusDisconnected)})

		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// SessionStatusHandler performs a remote status check and applies the
// resulting transition.
func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		identity, vendor, ok := s.vendorCaller(w, r)
		if !ok {
			return
		}

		session, err := s.tracker.CheckStatus(r.Context(), identity, vendor)
		if errors.Is(err, sessions.ErrNoSession) {
			writeError(w, http.StatusNotFound, "vendor has no session")
			return
		}
		if err != nil {
			s.writeClientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

// MessageRequest is a vendor's outbound message payload.
type MessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendMessageHandler forwards a text message through the vendor's
// authenticated session.
func (s *Server) SendMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		identity, vendor, ok := s.vendorCaller(w, r)
		if !ok {
			return
		}

		var req MessageRequest
		if err := decodeJSON(r, &req); err != nil || req.To == "" || req.Message == "" {
			writeError(w, http.StatusBadRequest, "to and message are required")
			return
		}

		session, ok := s.connectedSession(w, r, vendor)
		if !ok {
			return
		}

		result, err := s.apiClient.Send(r.Context(), identity, &vendor, http.MethodPost, "/api/messages", map[string]any{
			"clientId": session.ClientID,
			"to":       req.To,
			"message":  req.Message,
		})
		if err != nil {
			s.writeClientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// UploadMediaHandler forwards a media file through the vendor's
// authenticated session as a multipart upload.
func (s *Server) UploadMediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		identity, vendor, ok := s.vendorCaller(w, r)
		if !ok {
			return
		}

		session, ok := s.connectedSession(w, r, vendor)
		if !ok {
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		tmpPath, err := spoolToTempFile(file)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to spool upload")
			writeError(w, http.StatusInternalServerError, "failed to read upload")
			return
		}
		defer os.Remove(tmpPath)

		endpoint := fmt.Sprintf("/api/sessions/%s/media", session.ClientID)
		result, err := s.apiClient.SendMultipart(r.Context(), identity, &vendor, endpoint, tmpPath, header.Filename)
		if err != nil {
			s.writeClientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// WebhookRequest is the external service's session status notification.
type WebhookRequest struct {
	VendorID string `json:"vendor_id"`
	Status   string `json:"status"`
}

// SessionWebhookHandler applies a session status pushed by the external
// service.
func (s *Server) SessionWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req WebhookRequest
		if err := decodeJSON(r, &req); err != nil || req.VendorID == "" || req.Status == "" {
			writeError(w, http.StatusBadRequest, "vendor_id and status are required")
			return
		}

		session, err := s.tracker.ApplyWebhook(r.Context(), req.VendorID, req.Status)
		if errors.Is(err, sessions.ErrNoSession) {
			writeError(w, http.StatusNotFound, "vendor has no session")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("vendor_id", req.VendorID).Msg("webhook apply failed")
			writeError(w, http.StatusInternalServerError, "failed to apply status")
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

// vendorCaller extracts the validated credential and requires a vendor
// affiliation.
func (s *Server) vendorCaller(w http.ResponseWriter, r *http.Request) (vendors.Identity, vendors.VendorInfo, bool) {
	credential := credentialFromContext(r.Context())
	if credential == nil {
		writeError(w, http.StatusUnauthorized, "missing credential")
		return vendors.Identity{}, vendors.VendorInfo{}, false
	}
	vendor := credential.Vendor()
	if vendor == nil {
		writeError(w, http.StatusForbidden, "caller is not a vendor")
		return vendors.Identity{}, vendors.VendorInfo{}, false
	}
	return credential.Identity(), *vendor, true
}

// connectedSession requires an authenticated session for the vendor.
func (s *Server) connectedSession(w http.ResponseWriter, r *http.Request, vendor vendors.VendorInfo) (*sessions.VendorSession, bool) {
	session, err := s.tracker.Current(r.Context(), vendor.VendorID)
	if err != nil {
		s.logger.Error().Err(err).Msg("session lookup failed")
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return nil, false
	}
	if session.Status != sessions.StatusAuthenticated {
		writeError(w, http.StatusConflict, "vendor session is not connected")
		return nil, false
	}
	return session, true
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func spoolToTempFile(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "wabridge-upload-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
