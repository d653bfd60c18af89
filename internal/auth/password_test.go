package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/gitmap/internal/auth"
)

func TestHashAndVerify(t *testing.T) {
	svc := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	hash, err := svc.Hash("demo123")
	require.NoError(t, err)
	assert.NotEqual(t, "demo123", hash)

	assert.NoError(t, svc.Verify(hash, "demo123"))
	assert.Error(t, svc.Verify(hash, "wrong"))
}

func TestHashesAreSalted(t *testing.T) {
	svc := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	a, err := svc.Hash("demo123")
	require.NoError(t, err)
	b, err := svc.Hash("demo123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOverlongPasswordRejected(t *testing.T) {
	svc := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	_, err := svc.Hash(strings.Repeat("x", 73))
	assert.Error(t, err)
}

func TestVerifyGarbageHash(t *testing.T) {
	svc := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	assert.Error(t, svc.Verify("not-a-bcrypt-hash", "demo123"))
}
