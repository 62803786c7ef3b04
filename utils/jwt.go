package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "quillpost"

// ErrInvalidToken covers malformed, tampered, expired and wrong-kind tokens alike.
var ErrInvalidToken = errors.New("invalid token")

// TokenKind tags which claim variant a token carries.
type TokenKind string

const (
	KindSession       TokenKind = "session"
	KindVerification  TokenKind = "verification"
	KindPasswordReset TokenKind = "password_reset"
)

// Claim is the closed set of payloads a token can carry:
// SessionClaim, VerificationClaim and ResetClaim.
type Claim interface {
	Kind() TokenKind
	Subject() uint
}

// SessionClaim authenticates a signed-in user.
type SessionClaim struct {
	UserID uint
}

// VerificationClaim binds a user to the one-time code mailed to them.
type VerificationClaim struct {
	UserID uint
	Code   string
}

// ResetClaim authorizes a password reset for a user.
type ResetClaim struct {
	UserID uint
}

func (c SessionClaim) Kind() TokenKind      { return KindSession }
func (c SessionClaim) Subject() uint        { return c.UserID }
func (c VerificationClaim) Kind() TokenKind { return KindVerification }
func (c VerificationClaim) Subject() uint   { return c.UserID }
func (c ResetClaim) Kind() TokenKind        { return KindPasswordReset }
func (c ResetClaim) Subject() uint          { return c.UserID }

// wireClaims is the JWT payload shared by every claim variant.
type wireClaims struct {
	Kind   TokenKind `json:"kind"`
	UserID uint      `json:"uid"`
	Code   string    `json:"code,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens with a single secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService. The secret must be at least 16 bytes.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt: secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs claim with an absolute expiry of now+ttl.
func (s *TokenService) Issue(claim Claim, ttl time.Duration) (string, error) {
	now := s.now()
	wc := wireClaims{
		Kind:   claim.Kind(),
		UserID: claim.Subject(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if vc, ok := claim.(VerificationClaim); ok {
		wc.Code = vc.Code
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claim.
func (s *TokenService) Verify(tokenStr string) (Claim, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(tokenStr, &wc, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if wc.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	switch wc.Kind {
	case KindSession:
		return SessionClaim{UserID: wc.UserID}, nil
	case KindVerification:
		if wc.Code == "" {
			return nil, fmt.Errorf("%w: missing code", ErrInvalidToken)
		}
		return VerificationClaim{UserID: wc.UserID, Code: wc.Code}, nil
	case KindPasswordReset:
		return ResetClaim{UserID: wc.UserID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, wc.Kind)
	}
}

// VerifySession accepts only session tokens.
func (s *TokenService) VerifySession(tokenStr string) (SessionClaim, error) {
	c, err := s.Verify(tokenStr)
	if err != nil {
		return SessionClaim{}, err
	}
	sc, ok := c.(SessionClaim)
	if !ok {
		return SessionClaim{}, fmt.Errorf("%w: expected %s token, got %s", ErrInvalidToken, KindSession, c.Kind())
	}
	return sc, nil
}

// VerifyVerification accepts only email-verification tokens.
func (s *TokenService) VerifyVerification(tokenStr string) (VerificationClaim, error) {
	c, err := s.Verify(tokenStr)
	if err != nil {
		return VerificationClaim{}, err
	}
	vc, ok := c.(VerificationClaim)
	if !ok {
		return VerificationClaim{}, fmt.Errorf("%w: expected %s token, got %s", ErrInvalidToken, KindVerification, c.Kind())
	}
	return vc, nil
}

// VerifyReset accepts only password-reset tokens.
func (s *TokenService) VerifyReset(tokenStr string) (ResetClaim, error) {
	c, err := s.Verify(tokenStr)
	if err != nil {
		return ResetClaim{}, err
	}
	rc, ok := c.(ResetClaim)
	if !ok {
		return ResetClaim{}, fmt.Errorf("%w: expected %s token, got %s", ErrInvalidToken, KindPasswordReset, c.Kind())
	}
	return rc, nil
}

// SetClock replaces the time source; tests use it to move past expiry.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}
