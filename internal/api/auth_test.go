package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/jobs", AuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusCreated, CurrentOperator(c))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	valid, err := GenerateToken("alice", secret, time.Now().Add(time.Hour))
	require.NoError(t, err)
	expired, err := GenerateToken("alice", secret, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	foreign, err := GenerateToken("alice", "other-secret", time.Now().Add(time.Hour))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, OperatorClaims{Operator: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusCreated, "alice"},
		{"lowercase scheme", "bearer " + valid, http.StatusCreated, "alice"},
		{"missing", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "INVALID_AUTH_HEADER"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"alg none", "Bearer " + none, http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	r := protectedRouter(secret)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.True(t, strings.Contains(rec.Body.String(), tc.body), rec.Body.String())
		})
	}
}

func TestJobRoutesRequireTokenWhenConfigured(t *testing.T) {
	f := newFixture(t, portfolioZero())
	f.server = NewServer(withSecret(f, "s3cret"))

	code, body := f.do(t, http.MethodPost, "/api/jobs/once", gin.H{"delay_minutes": 1, "description": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
	assert.Empty(t, f.sink.entries)

	code, _ = f.do(t, http.MethodGet, "/api/portfolio", nil)
	assert.Equal(t, http.StatusOK, code, "read endpoints stay open")
}
