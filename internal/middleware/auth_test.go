package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/repository"
)

const testJWTSecret = "jwt-secret"

type stubSessions struct {
	sessions map[string]model.Session
}

func (s stubSessions) FindActive(_ context.Context, token string) (model.Session, error) {
	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	return model.Session{}, repository.ErrSessionNotFound
}

// runAuth sends a request through the Authenticate middleware and
// reports the principal the downstream handler observed, if any.
func runAuth(t *testing.T, sessions SessionFinder, mutate func(*http.Request)) (*httptest.ResponseRecorder, *model.Principal) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/registrations", nil)
	mutate(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *model.Principal
	handler := Authenticate(sessions, testJWTSecret)(func(c echo.Context) error {
		if p, ok := CurrentPrincipal(c); ok {
			seen = &p
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, seen
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	sessions := stubSessions{sessions: map[string]model.Session{
		"tok-1": {SessionToken: "tok-1", UserID: "user-1", Email: "asha@example.com", ExpiresAt: time.Now().Add(time.Hour)},
	}}

	t.Run("resolves the session cookie", func(t *testing.T) {
		rec, p := runAuth(t, sessions, func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "next-auth.session-token", Value: "tok-1"})
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if p == nil || p.UserID != "user-1" || p.Email != "asha@example.com" {
			t.Fatalf("unexpected principal: %+v", p)
		}
	})

	t.Run("resolves the secure cookie variant", func(t *testing.T) {
		rec, p := runAuth(t, sessions, func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "__Secure-next-auth.session-token", Value: "tok-1"})
		})
		if rec.Code != http.StatusOK || p == nil {
			t.Fatalf("secure cookie rejected: %d", rec.Code)
		}
	})

	t.Run("unknown session is rejected, not passed to the bearer path", func(t *testing.T) {
		rec, p := runAuth(t, sessions, func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "next-auth.session-token", Value: "tok-stale"})
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if p != nil {
			t.Fatalf("handler ran with principal %+v", p)
		}
	})

	t.Run("resolves a bearer JWT", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"sub":   "user-2",
			"email": "ravi@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		rec, p := runAuth(t, sessions, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if p == nil || p.UserID != "user-2" || p.Email != "ravi@example.com" {
			t.Fatalf("unexpected principal: %+v", p)
		}
	})

	t.Run("rejects a tampered bearer token", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "user-2", "exp": time.Now().Add(time.Hour).Unix()})
		rec, _ := runAuth(t, sessions, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token+"x")
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects requests with no credential", func(t *testing.T) {
		rec, _ := runAuth(t, sessions, func(*http.Request) {})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
