package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ecoh-backend/internal/ctxkeys"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"userId": "42",
		"role":   "analista",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	var gotUserID, gotRole string
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(ctxkeys.UserID).(string)
		gotRole, _ = r.Context().Value(ctxkeys.UserRole).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/causas", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "42" {
		t.Errorf("userId in context = %q, want %q", gotUserID, "42")
	}
	if gotRole != "analista" {
		t.Errorf("role in context = %q, want %q", gotRole, "analista")
	}
}

func TestAuthRejections(t *testing.T) {
	expired := signToken(t, jwt.MapClaims{
		"userId": "42",
		"role":   "viewer",
		"exp":    time.Now().Add(-time.Hour).Unix(),
	})
	noUser := signToken(t, jwt.MapClaims{
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"missing user id claim", "Bearer " + noUser},
	}

	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/causas", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthRejectsWrongSigningMethod(t *testing.T) {
	// An unsigned token must never pass, regardless of claims
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "1",
		"role":   "super_admin",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireMinRole(t *testing.T) {
	tests := []struct {
		name     string
		userRole string
		minRole  string
		want     int
	}{
		{"viewer blocked from analista routes", "viewer", "analista", http.StatusForbidden},
		{"analista allowed on analista routes", "analista", "analista", http.StatusOK},
		{"analista blocked from admin routes", "analista", "admin", http.StatusForbidden},
		{"admin allowed on admin routes", "admin", "admin", http.StatusOK},
		{"super_admin allowed everywhere", "super_admin", "admin", http.StatusOK},
		{"unknown role blocked", "ghost", "analista", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, jwt.MapClaims{
				"userId": "7",
				"role":   tt.userRole,
				"exp":    time.Now().Add(time.Hour).Unix(),
			})

			handler := Auth(testSecret)(
				RequireMinRole(tt.minRole)(
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
				),
			)

			req := httptest.NewRequest(http.MethodPost, "/api/causas", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
