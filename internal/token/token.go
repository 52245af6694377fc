// Package token issues and verifies single-use account tokens for email
// verification and password reset.
//
// Nothing is persisted. A token is a signed JWT whose claims carry an HMAC
// fingerprint of the user fields the token guards, so changing any of those
// fields (activating the account, setting a new password, logging in)
// invalidates every token issued before the change.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"expense_tracker/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose separates token families so an activation token can never be
// used as a reset token and vice versa.
type Purpose string

const (
	Activation    Purpose = "activation"
	PasswordReset Purpose = "password_reset"
)

var (
	ErrMalformed = errors.New("token malformed")
	ErrExpired   = errors.New("token expired")
	ErrMismatch  = errors.New("token does not match user state")
)

type claims struct {
	State string `json:"st"`
	jwt.RegisteredClaims
}

// Service signs and checks tokens with a shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService returns a Service whose tokens stay valid for ttl.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue returns a token for u.
func (s *Service) Issue(p Purpose, u *domain.User) (string, error) {
	now := s.now()
	c := claims{
		State: s.fingerprint(p, u),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			Audience:  jwt.ClaimStrings{string(p)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", p, err)
	}
	return signed, nil
}

// Check reports why tok is not acceptable for u, or nil when it is.
func (s *Service) Check(p Purpose, u *domain.User, tok string) error {
	var c claims
	_, err := jwt.ParseWithClaims(tok, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(p)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case err != nil:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.Subject != strconv.FormatUint(uint64(u.ID), 10) {
		return ErrMismatch
	}
	if !hmac.Equal([]byte(c.State), []byte(s.fingerprint(p, u))) {
		return ErrMismatch
	}
	return nil
}

// Verify is Check reduced to a yes/no answer.
func (s *Service) Verify(p Purpose, u *domain.User, tok string) bool {
	return s.Check(p, u, tok) == nil
}

// fingerprint hashes the fields a token of purpose p depends on.
func (s *Service) fingerprint(p Purpose, u *domain.User) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d|%s|", p, u.ID, u.Password)
	switch p {
	case Activation:
		fmt.Fprintf(mac, "%t", u.IsActive)
	case PasswordReset:
		var last int64
		if u.LastLogin != nil {
			last = u.LastLogin.Unix()
		}
		fmt.Fprintf(mac, "%d|%s", last, u.Email)
	}
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// EncodeUID encodes a user id for use in a link.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(s string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("decode uid: %w", err)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("decode uid: invalid id %q", raw)
	}
	return uint(id), nil
}
