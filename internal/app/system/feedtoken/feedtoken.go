// Package feedtoken issues and verifies the signed tokens embedded in
// calendar feed URLs. A token names a user; it grants nothing on its own.
// Feed requests still go through authz.Gate for that user, so deactivating
// the account or deleting it revokes every feed URL it was given.
package feedtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	issuer   = "eventhub"
	audience = "calendar-feed"
)

var (
	ErrMissingSecret = errors.New("feed token secret is required")
	ErrInvalidToken  = errors.New("feed token is invalid or expired")
)

// Claims carries the subject user id in the registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs with HS256 and a shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager returns a Manager. A ttl of 0 issues tokens that never expire.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl < 0 {
		return nil, fmt.Errorf("feed token ttl must not be negative, got %v", ttl)
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a token for userID and its expiry (zero when it has none).
func (m *Manager) Issue(userID primitive.ObjectID) (string, time.Time, error) {
	now := m.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  userID.Hex(),
		Issuer:   issuer,
		Audience: jwt.ClaimStrings{audience},
		IssuedAt: jwt.NewNumericDate(now),
	}}
	var exp time.Time
	if m.ttl > 0 {
		exp = now.Add(m.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies token and returns the user it was issued for. Every
// failure is reported as ErrInvalidToken wrapping the parser's reason.
func (m *Manager) Parse(token string) (primitive.ObjectID, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.now),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return primitive.NilObjectID, ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
