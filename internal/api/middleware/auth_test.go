package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/forecastingteller/auth-api/internal/core/domain"
	"github.com/forecastingteller/auth-api/internal/infrastructure/auth"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func newIssuer(t *testing.T) *auth.JWTIssuer {
	t.Helper()
	issuer, err := auth.NewJWTIssuer(auth.JWTConfig{
		Secret:        testSecret,
		Issuer:        "forecasting-teller",
		Audience:      "forecasting-teller-clients",
		ExpiryMinutes: 60,
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func runAuth(t *testing.T, parser SessionParser, header string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Auth(parser)(next)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func unreachable(t *testing.T) echo.HandlerFunc {
	return func(echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	issuer := newIssuer(t)
	sess, err := issuer.Issue(&domain.Identity{ID: "id-1", Username: "alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	called := false
	rec := runAuth(t, issuer, "Bearer "+sess.Token, func(c echo.Context) error {
		called = true
		if c.Get(CtxIdentityID) != "id-1" {
			t.Fatalf("identity_id not set")
		}
		if c.Get(CtxEmail) != "a@x.com" {
			t.Fatalf("email not set")
		}
		if c.Get(CtxName) != "alice" {
			t.Fatalf("name not set")
		}
		if c.Get(CtxRole) != domain.RoleUser {
			t.Fatalf("role not set")
		}
		if c.Get(CtxTokenID) != sess.TokenID {
			t.Fatalf("jti not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	rec := runAuth(t, newIssuer(t), "", unreachable(t))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	for _, header := range []string{"Token abc", "Bearer", "Bearer "} {
		rec := runAuth(t, newIssuer(t), header, unreachable(t))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	rec := runAuth(t, newIssuer(t), "Bearer not-a-token", unreachable(t))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "segment") {
		t.Fatalf("parser details leaked: %s", rec.Body.String())
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	old := newIssuer(t).WithClock(func() time.Time { return past })
	sess, err := old.Issue(&domain.Identity{ID: "id-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := runAuth(t, newIssuer(t), "Bearer "+sess.Token, unreachable(t))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
