package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/models"
)

func testIdentity() models.Identity {
	return models.Identity{UserID: uuid.New(), Email: "player@example.com"}
}

func TestNewVerifier_DefaultAudience(t *testing.T) {
	v := NewVerifier("secret", "", "")
	if v.audience != DefaultAudience {
		t.Errorf("expected audience %q, got %q", DefaultAudience, v.audience)
	}
}

func TestSignAndVerify(t *testing.T) {
	v := NewVerifier("secret", "", "basta")
	id := testIdentity()

	token, err := v.Sign(id, time.Hour)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got != id {
		t.Errorf("expected %+v, got %+v", id, got)
	}
}

func TestVerify_Rejections(t *testing.T) {
	v := NewVerifier("secret", "", "")
	id := testIdentity()

	other := NewVerifier("other-secret", "", "")
	wrongSecret, _ := other.Sign(id, time.Hour)

	wrongAud := NewVerifier("secret", "anon", "")
	wrongAudience, _ := wrongAud.Sign(id, time.Hour)

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Audience:  jwt.ClaimStrings{DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.UserID.String(),
			Audience: jwt.ClaimStrings{DefaultAudience},
		},
	}).SignedString([]byte("secret"))

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			Audience:  jwt.ClaimStrings{DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", wrongSecret},
		{"wrong audience", wrongAudience},
		{"bad subject", badSubject},
		{"no expiry", noExpiry},
		{"none algorithm", noneAlg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); err != ErrTokenInvalid {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	v := NewVerifier("secret", "", "")
	token, err := v.Sign(testIdentity(), time.Minute)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := v.Verify(token); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_Issuer(t *testing.T) {
	signer := NewVerifier("secret", "", "someone-else")
	token, _ := signer.Sign(testIdentity(), time.Hour)

	if _, err := NewVerifier("secret", "", "basta").Verify(token); err != ErrTokenInvalid {
		t.Errorf("expected issuer mismatch to fail, got %v", err)
	}
	if _, err := NewVerifier("secret", "", "").Verify(token); err != nil {
		t.Errorf("empty issuer should accept any issuer, got %v", err)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"bearer", "Bearer abc", "", "abc"},
		{"lowercase bearer", "bearer abc ", "", "abc"},
		{"cookie fallback", "", "xyz", "xyz"},
		{"header wins", "Bearer abc", "xyz", "abc"},
		{"basic auth ignored", "Basic abc", "", ""},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if got := TokenFromRequest(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	v := NewVerifier("secret", "", "")
	id := testIdentity()
	token, _ := v.Sign(id, time.Hour)

	var seen models.Identity
	handler := v.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if seen != id {
		t.Errorf("expected identity %+v in context, got %+v", id, seen)
	}
}

func TestRequireIdentity_Unauthorized(t *testing.T) {
	v := NewVerifier("secret", "", "")
	handler := v.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	for _, header := range []string{"", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "UNAUTHORIZED") {
			t.Errorf("expected UNAUTHORIZED code, got %s", rr.Body.String())
		}
	}
}

func TestIdentityFrom_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := IdentityFrom(req.Context()); ok {
		t.Error("expected no identity")
	}
}
