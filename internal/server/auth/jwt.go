// Package auth holds the credential primitives of the server: password
// hashing and signed, scoped, time-bounded JWTs.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token payload: registered claims plus the scope tag.
// Confirmation tokens carry no scope.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// TokenManager issues and decodes tokens signed with one shared secret.
type TokenManager struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	now        func() time.Time
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case config.AlgorithmHS256:
		return jwt.SigningMethodHS256, nil
	case config.AlgorithmHS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

// NewTokenManager builds a TokenManager from the server configuration.
func NewTokenManager(cfg *config.Config) (*TokenManager, error) {
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("empty secret key")
	}
	return &TokenManager{
		secret:     []byte(cfg.SecretKey),
		method:     method,
		accessTTL:  cfg.AccessTokenValidityDuration,
		refreshTTL: cfg.RefreshTokenValidityDuration,
		emailTTL:   cfg.EmailTokenValidityDuration,
		now:        time.Now,
	}, nil
}

// SetClock replaces the time source used for iat/exp and for expiry checks.
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
}

// Issue signs a token for subject with the given scope and lifetime.
// An empty scope produces an unscoped token. Every token gets a random jti,
// so two tokens issued within the same second still differ.
func (m *TokenManager) Issue(subject, scope string, ttl time.Duration) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(m.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scope,
	})

	s, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return s, nil
}

func (m *TokenManager) AccessToken(email string) (string, error) {
	return m.Issue(email, common.ScopeAccessToken, m.accessTTL)
}

func (m *TokenManager) RefreshToken(email string) (string, error) {
	return m.Issue(email, common.ScopeRefreshToken, m.refreshTTL)
}

// EmailToken issues the unscoped token sent in confirmation links.
func (m *TokenManager) EmailToken(email string) (string, error) {
	return m.Issue(email, "", m.emailTTL)
}

func (m *TokenManager) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// Decode validates tokenString and returns its subject. Bad signature,
// expiry, scope mismatch and a missing subject all yield ErrInvalidToken.
func (m *TokenManager) Decode(tokenString, scope string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if claims.Scope != scope || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}

// DecodeUnscoped validates a confirmation token and returns its subject.
// Failures yield ErrInvalidConfirmationToken.
func (m *TokenManager) DecodeUnscoped(tokenString string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil || claims.Subject == "" {
		return "", common.ErrInvalidConfirmationToken
	}
	return claims.Subject, nil
}
