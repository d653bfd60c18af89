package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitmap/internal/auth"
	"github.com/sakif/gitmap/internal/model"
)

const testSecret = "test-secret-0123456789abcdef"

func testUser() *model.User {
	return &model.User{ID: 42, Username: "al", Email: "al@example.com"}
}

func TestGenerateAndValidate(t *testing.T) {
	svc, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := svc.Generate(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "al", claims.Username)
	assert.Equal(t, "al@example.com", claims.Email)
}

func TestTokenCarriesSevenDayExpiry(t *testing.T) {
	svc, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := svc.Generate(testUser())
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	expected := time.Now().Add(auth.TokenTTL)
	assert.WithinDuration(t, expected, claims.ExpiresAt.Time, time.Minute)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := svc.GenerateWithDuration(testUser(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestWrongSecretRejected(t *testing.T) {
	issue, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)
	verify, err := auth.NewTokenService("another-secret-0123456789")
	require.NoError(t, err)

	token, err := issue.Generate(testUser())
	require.NoError(t, err)

	_, err = verify.Validate(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Validate(tok)
		assert.Error(t, err, tok)
	}
}

func TestShortSecretRejected(t *testing.T) {
	_, err := auth.NewTokenService("short")
	assert.Error(t, err)
}
