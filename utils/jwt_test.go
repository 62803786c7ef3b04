package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func newTestTokens(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	assert.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	s := newTestTokens(t)

	tok, err := s.Issue(SessionClaim{UserID: 7}, time.Hour)
	require.NoError(t, err)
	sc, err := s.VerifySession(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), sc.UserID)

	tok, err = s.Issue(VerificationClaim{UserID: 9, Code: "AB12CD34"}, time.Minute)
	require.NoError(t, err)
	vc, err := s.VerifyVerification(tok)
	require.NoError(t, err)
	assert.Equal(t, VerificationClaim{UserID: 9, Code: "AB12CD34"}, vc)

	tok, err = s.Issue(ResetClaim{UserID: 3}, time.Minute)
	require.NoError(t, err)
	c, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, ResetClaim{UserID: 3}, c)
}

func TestTokenService_Expired(t *testing.T) {
	s := newTestTokens(t)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return issued })

	tok, err := s.Issue(ResetClaim{UserID: 1}, 10*time.Minute)
	require.NoError(t, err)

	s.SetClock(func() time.Time { return issued.Add(9 * time.Minute) })
	_, err = s.VerifyReset(tok)
	require.NoError(t, err)

	s.SetClock(func() time.Time { return issued.Add(11 * time.Minute) })
	_, err = s.VerifyReset(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_WrongKind(t *testing.T) {
	s := newTestTokens(t)
	tok, err := s.Issue(SessionClaim{UserID: 1}, time.Hour)
	require.NoError(t, err)

	_, err = s.VerifyReset(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = s.VerifyVerification(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Tampered(t *testing.T) {
	s := newTestTokens(t)
	tok, err := s.Issue(SessionClaim{UserID: 1}, time.Hour)
	require.NoError(t, err)

	other, err := NewTokenService("another-secret-of-length")
	require.NoError(t, err)
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify(tok[:len(tok)-2] + "xx")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
