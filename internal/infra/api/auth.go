package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pos-provisioning/internal/config"
)

const roleAdmin = "admin"

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager mints and verifies HS256 admin bearer tokens.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthManager(cfg config.AdminConfig) *AuthManager {
	return &AuthManager{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL, now: time.Now}
}

func (a *AuthManager) Mint(subject string) (string, error) {
	now := a.now()
	claims := AdminClaims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   subject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errMissingToken
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}
