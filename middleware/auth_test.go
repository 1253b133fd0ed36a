package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"hazard-service/models"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func authRouter() (*gin.Engine, *models.AuthenticatedUser) {
	gin.SetMode(gin.TestMode)
	captured := &models.AuthenticatedUser{}
	router := gin.New()
	router.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		if u := GetUser(c); u != nil {
			*captured = *u
		}
		c.Status(http.StatusOK)
	})
	return router, captured
}

func doAuth(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", ""},
		{"no scheme", "abc123", ""},
		{"empty", "", ""},
		{"scheme only", "Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractToken(tt.header); got != tt.want {
				t.Errorf("extractToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	router, _ := authRouter()
	if w := doAuth(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	router, _ := authRouter()
	if w := doAuth(router, "Token abc"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	router, captured := authRouter()
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-123",
		"email":   "reporter@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	w := doAuth(router, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if captured.ID != "user-123" || captured.Email != "reporter@example.com" {
		t.Errorf("unexpected user in context: %+v", captured)
	}
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	router, _ := authRouter()
	token := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	if w := doAuth(router, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad signature, got %d", w.Code)
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	router, _ := authRouter()
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	if w := doAuth(router, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	router, _ := authRouter()
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-123",
		"type":    "refresh",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	if w := doAuth(router, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for refresh token, got %d", w.Code)
	}
}

func TestAuthMiddlewareMissingUserID(t *testing.T) {
	router, _ := authRouter()
	token := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if w := doAuth(router, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for token without user id, got %d", w.Code)
	}
}
