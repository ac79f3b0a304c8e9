package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/vendormesh/wabridge/internal/utils"
	"github.com/vendormesh/wabridge/vendors"
)

// Credential is the decoded payload of a validated token. The 'active' field
// indicates whether the token is valid - if it's false, other fields are not
// populated. Malformed, expired, and badly-signed tokens all collapse to
// Active=false; callers only need the boolean decision.
type Credential struct {
	Active     bool     `json:"active"`
	Subject    *string  `json:"sub,omitempty"`         // User's unique ID
	Username   *string  `json:"username,omitempty"`    // Platform username
	Email      *string  `json:"email,omitempty"`       // User's email address
	Roles      []string `json:"roles,omitempty"`       // Roles assigned to the user
	IsVendor   bool     `json:"is_vendor,omitempty"`   // Whether the caller is a vendor
	VendorID   *string  `json:"vendor_id,omitempty"`   // Vendor ID, when a vendor
	VendorName *string  `json:"vendor_name,omitempty"` // Store display name, when a vendor
	Iss        *string  `json:"iss,omitempty"`         // Issuer of the token
	Iat        *int64   `json:"iat,omitempty"`         // Issued at time
	Exp        *int64   `json:"exp,omitempty"`         // Expiration
}

// Identity reconstructs the caller identity from a validated credential.
func (c *Credential) Identity() vendors.Identity {
	return vendors.Identity{
		ID:       utils.Value(c.Subject),
		Username: utils.Value(c.Username),
		Email:    utils.Value(c.Email),
		Roles:    c.Roles,
	}
}

// Vendor returns the vendor affiliation carried by the credential, or nil
// for non-vendor callers.
func (c *Credential) Vendor() *vendors.VendorInfo {
	if !c.IsVendor {
		return nil
	}
	return &vendors.VendorInfo{
		VendorID:  utils.Value(c.VendorID),
		StoreName: utils.Value(c.VendorName),
	}
}

// Validate verifies a token string against the active signing secret.
// Validation is synchronous and local, has no side effects and no retry
// semantics. Any failure returns Active=false.
func (i *Issuer) Validate(rawToken string) *Credential {
	if strings.TrimSpace(rawToken) == "" {
		return &Credential{Active: false}
	}

	parsed, err := jwtlib.ParseWithClaims(
		rawToken,
		jwtlib.MapClaims{},
		i.signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
	)
	if err != nil || !parsed.Valid {
		return &Credential{Active: false}
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return &Credential{Active: false}
	}

	iss, _ := claims["iss"].(string)
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)
	isVendor, _ := claims["is_vendor"].(bool)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	iatInt := int64(iat)
	expInt := int64(exp)

	// Expiry is categorically enforced regardless of signature validity.
	if expInt == 0 || NowTimeFunc().Unix() > expInt {
		return &Credential{Active: false}
	}

	var roles []string
	if claimRoles, ok := claims["roles"].([]any); ok {
		roles = utils.ToStringSlice(claimRoles)
	}

	credential := &Credential{
		Active:   true,
		Subject:  &sub,
		Username: &username,
		Email:    &email,
		Roles:    roles,
		IsVendor: isVendor,
		Iss:      &iss,
		Iat:      &iatInt,
		Exp:      &expInt,
	}
	if isVendor {
		vendorID, _ := claims["vendor_id"].(string)
		vendorName, _ := claims["vendor_name"].(string)
		credential.VendorID = &vendorID
		credential.VendorName = &vendorName
	}
	return credential
}
