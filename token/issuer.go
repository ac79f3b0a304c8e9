// Package token issues and validates the short-lived signed credentials that
// authenticate every outbound call to the messaging service.
package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vendormesh/wabridge/vendors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// CredentialLifetime is the fixed credential validity window. Expiry is
// always exactly issue-time plus this duration.
const CredentialLifetime = time.Hour

// Issuer mints signed credentials for marketplace identities and validates
// credentials presented back to the system.
type Issuer struct {
	signer       Signer
	issuer       string
	allowedRoles []string
	logger       zerolog.Logger
}

// IssuerOption defines a function type to modify the Issuer instance.
type IssuerOption func(*Issuer)

// WithLogger sets the audit logger used for refused issuance attempts.
func WithLogger(logger zerolog.Logger) IssuerOption {
	return func(i *Issuer) {
		i.logger = logger
	}
}

// NewIssuer creates an Issuer. issuer is the site identity placed in the iss
// claim; allowedRoles is the role allow-list checked on every issuance.
func NewIssuer(signer Signer, issuer string, allowedRoles []string, options ...IssuerOption) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("[NewIssuer] signer is required")
	}
	if len(allowedRoles) == 0 {
		return nil, errors.New("[NewIssuer] allowedRoles is required")
	}

	i := &Issuer{
		signer:       signer,
		issuer:       issuer,
		allowedRoles: allowedRoles,
		logger:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// IssueCredential mints a signed credential for the identity. vendor may be
// nil for non-vendor callers. Fails with ErrUnauthorized when the identity's
// roles have no intersection with the allow-list, and with ErrSigningFailed
// when the signing primitive fails.
func (i *Issuer) IssueCredential(identity vendors.Identity, vendor *vendors.VendorInfo) (string, error) {
	if !identity.HasAnyRole(i.allowedRoles) {
		i.logger.Warn().
			Str("user_id", identity.ID).
			Str("username", identity.Username).
			Strs("roles", identity.Roles).
			Msg("credential issuance refused")
		return "", ErrUnauthorized
	}

	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":       i.issuer,
		"sub":       identity.ID,
		"username":  identity.Username,
		"email":     identity.Email,
		"roles":     identity.Roles,
		"is_vendor": vendor != nil,
		"iat":       now.Unix(),
		"exp":       now.Add(CredentialLifetime).Unix(),
		"jti":       uuid.New().String(),
	}
	if vendor != nil {
		claims["vendor_id"] = vendor.VendorID
		claims["vendor_name"] = vendor.StoreName
	}

	signedToken, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(ErrSigningFailed, err.Error())
	}
	return signedToken, nil
}
