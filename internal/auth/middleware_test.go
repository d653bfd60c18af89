package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitmap/internal/auth"
	"github.com/sakif/gitmap/internal/model"
)

// stubVerifier accepts exactly one token.
type stubVerifier struct {
	token string
	user  *model.User
}

func (s *stubVerifier) VerifyToken(_ context.Context, token string) (*model.User, error) {
	if token == s.token {
		return s.user, nil
	}
	return nil, errors.New("invalid token")
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"BEARER abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		assert.Equal(t, tc.want, auth.BearerToken(r), "header %q", tc.header)
	}
}

func TestRequireAuth(t *testing.T) {
	verifier := &stubVerifier{
		token: "good-token",
		user:  &model.User{ID: 7, Username: "al"},
	}

	var seen *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		require.True(t, ok)
		seen = user
		w.WriteHeader(http.StatusOK)
	})
	protected := auth.RequireAuth(verifier)(next)

	t.Run("valid token passes and stores user", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer good-token")
		rr := httptest.NewRecorder()

		protected.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(7), seen.ID)
	})

	t.Run("missing token is 401", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		protected.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "No token provided")
	})

	t.Run("bad token is 401", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer forged")
		rr := httptest.NewRecorder()

		protected.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestUserFromContextWithoutMiddleware(t *testing.T) {
	_, ok := auth.UserFromContext(context.Background())
	assert.False(t, ok)
}
