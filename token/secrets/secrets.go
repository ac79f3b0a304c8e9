// Package secrets holds the signing secret used for credential issuance and
// verification, and supports rotating it.
package secrets

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"

	"github.com/pkg/errors"
)

const secretLength = 64

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}<>?"
)

// Store provides access to the active signing secret.
//
// Rotation replaces the secret atomically. Tokens signed with the previous
// secret become unverifiable immediately; there is no grace period. Issuance
// racing with rotation may sign with either secret, both of which were valid
// at the instant of signing.
type Store interface {
	// Current returns the active signing secret.
	Current() string

	// Rotate generates a new secret, installs it, and returns it.
	Rotate() (string, error)
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the secret in process memory behind an atomic swap.
type MemoryStore struct {
	secret atomic.Value // string
}

// NewMemoryStore creates a store seeded with the given secret. If the secret
// is empty a new one is generated.
func NewMemoryStore(secret string) (*MemoryStore, error) {
	if secret == "" {
		generated, err := Generate()
		if err != nil {
			return nil, errors.Wrap(err, "[NewMemoryStore] failed to generate initial secret")
		}
		secret = generated
	}
	s := &MemoryStore{}
	s.secret.Store(secret)
	return s, nil
}

func (s *MemoryStore) Current() string {
	return s.secret.Load().(string)
}

func (s *MemoryStore) Rotate() (string, error) {
	generated, err := Generate()
	if err != nil {
		return "", errors.Wrap(err, "[MemoryStore.Rotate] failed to generate secret")
	}
	s.secret.Store(generated)
	return generated, nil
}

// Generate produces a 64 character secret containing uppercase, lowercase,
// digit and symbol characters.
func Generate() (string, error) {
	charset := upperChars + lowerChars + digitChars + symbolChars

	// One character from each class guarantees mixed content, the remainder
	// is drawn from the full charset.
	chars := make([]byte, 0, secretLength)
	for _, class := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < secretLength {
		c, err := randomChar(charset)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	if err := shuffle(chars); err != nil {
		return "", err
	}
	return string(chars), nil
}

func randomChar(charset string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, errors.Wrap(err, "rand.Int")
	}
	return charset[idx.Int64()], nil
}

func shuffle(chars []byte) error {
	for i := len(chars) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return errors.Wrap(err, "rand.Int")
		}
		chars[i], chars[int(j.Int64())] = chars[int(j.Int64())], chars[i]
	}
	return nil
}
