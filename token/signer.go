package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/vendormesh/wabridge/token/secrets"
)

// Signer is an interface for signing and verifying credential tokens
type Signer interface {
	// Sign creates a signed token from claims
	Sign(claims jwt.MapClaims) (string, error)

	// GetVerificationKey returns the signing key for verification
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

var _ Signer = (*HMACSigner)(nil)

// HMACSigner implements Signer using symmetric HMAC-SHA256. The secret is
// read from the store on every operation so a rotation takes effect for the
// next signature or verification without re-wiring.
type HMACSigner struct {
	store secrets.Store
}

// NewHMACSigner creates a new HMAC signer backed by the given secret store
func NewHMACSigner(store secrets.Store) *HMACSigner {
	return &HMACSigner{store: store}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	secret := h.store.Current()
	if secret == "" {
		return "", errors.New("no signing secret configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(h.store.Current()), nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
