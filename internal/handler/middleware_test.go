package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpost/event-registration/internal/model"
)

const jwtSecret = "jwt-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func authProbe() (http.Handler, *[]*model.Actor) {
	var seen []*model.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, ActorFrom(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	return Auth(jwtSecret)(next), &seen
}

func TestAuthResolvesActor(t *testing.T) {
	h, seen := authProbe()
	token := signToken(t, jwtSecret, jwt.MapClaims{
		"sub":   "user-1",
		"admin": true,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *seen, 1)
	actor := (*seen)[0]
	require.NotNil(t, actor)
	assert.Equal(t, "user-1", actor.ID)
	assert.True(t, actor.Privileged)
}

func TestAuthAllowsAnonymous(t *testing.T) {
	h, seen := authProbe()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0], "no token means anonymous, not rejected")
}

func TestAuthRejectsBadTokens(t *testing.T) {
	expired := signToken(t, jwtSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signToken(t, jwtSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := map[string]string{
		"malformed header": "Token abc",
		"garbage token":    "Bearer not.a.jwt",
		"expired":          "Bearer " + expired,
		"wrong key":        "Bearer " + wrongKey,
		"missing subject":  "Bearer " + noSubject,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			h, seen := authProbe()
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, *seen, "handler must not run")
		})
	}
}
