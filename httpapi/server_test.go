package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestServerRejectsUnauthenticatedRequests(t *testing.T) {
	e := NewServer(Deps{JWTSecret: "test-secret"})

	req := httptest.NewRequest(http.MethodGet, "/api/collections/acme/tables", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerAcceptsValidBearerToken(t *testing.T) {
	secret := "test-secret"
	e := NewServer(Deps{JWTSecret: secret})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "test"})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/collections/acme/tables", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// A nil RowStore panics once the (authenticated) handler runs, but
	// middleware.Recover turns that into a 500 rather than propagating —
	// what this test verifies is that the request got past JWT auth at all.
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
