package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"pos-provisioning/internal/domain/ports/adapter"
)

var _ adapter.CredentialIssuer = (*BcryptIssuer)(nil)

// Ambiguous glyphs (0/O, 1/l/I) are left out.
const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// BcryptIssuer generates random temporary passwords and stores them as bcrypt hashes.
type BcryptIssuer struct {
	cost   int
	length int
}

func NewBcryptIssuer(cost, length int) *BcryptIssuer {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if length < 8 {
		length = 12
	}
	return &BcryptIssuer{cost: cost, length: length}
}

func (b *BcryptIssuer) TemporaryPassword() (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, b.length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

func (b *BcryptIssuer) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether password matches hash.
func Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
