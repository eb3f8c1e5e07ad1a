// Package middleware contains reusable HTTP middleware: the dual-path
// credential resolver and the Redis token-bucket rate limiter.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing bearer tokens
	"github.com/labstack/echo/v4"  // Echo framework for middleware and handlers

	"github.com/iliyamo/event-registration/internal/model"
)

// principalKey is the Echo context key under which the resolved
// Principal is stored.
const principalKey = "principal"

// Session cookie names written by the auth frontend, checked in order.
// The __Secure- variant is what production issues over HTTPS; the bare
// name appears in local development.
var sessionCookieNames = []string{
	"__Secure-next-auth.session-token",
	"next-auth.session-token",
}

// SessionFinder validates a session token against the sessions table.
// Implemented by repository.SessionRepo.
type SessionFinder interface {
	FindActive(ctx context.Context, token string) (model.Session, error)
}

// credentialResolver is one way of turning a request into a Principal.
// Resolvers are tried in order; the first one whose credential is
// present decides the outcome, so an invalid session is rejected rather
// than silently falling through to the bearer path.
type credentialResolver interface {
	// resolve returns (principal, true, nil) on success, (_, false, nil)
	// when the credential is absent, and an error when the credential is
	// present but invalid.
	resolve(c echo.Context) (model.Principal, bool, error)
}

// sessionResolver authenticates via the session cookie issued by the
// auth frontend and stored server-side in the sessions table.
type sessionResolver struct {
	sessions SessionFinder
}

func (r sessionResolver) resolve(c echo.Context) (model.Principal, bool, error) {
	var token string
	for _, name := range sessionCookieNames {
		if cookie, err := c.Cookie(name); err == nil && cookie.Value != "" {
			token = cookie.Value
			break
		}
	}
	if token == "" {
		return model.Principal{}, false, nil
	}
	session, err := r.sessions.FindActive(c.Request().Context(), token)
	if err != nil {
		return model.Principal{}, false, echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}
	return model.Principal{UserID: session.UserID, Email: session.Email}, true, nil
}

// bearerResolver authenticates via a legacy HS256 bearer JWT.  Older
// clients still send these; both paths produce the same Principal.
type bearerResolver struct {
	secret string
}

func (r bearerResolver) resolve(c echo.Context) (model.Principal, bool, error) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Principal{}, false, nil
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Type assert the signing method to HMAC; reject others.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(r.secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Principal{}, false, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Principal{}, false, echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
	}
	p := model.Principal{}
	if v, ok := claims["sub"].(string); ok {
		p.UserID = v
	}
	if p.UserID == "" {
		if v, ok := claims["id"].(string); ok {
			p.UserID = v
		}
	}
	if v, ok := claims["email"].(string); ok {
		p.Email = v
	}
	if p.UserID == "" {
		return model.Principal{}, false, echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
	}
	return p, true, nil
}

// Authenticate returns an Echo middleware that resolves the caller's
// identity from either a session cookie or a bearer JWT and injects the
// resulting Principal into the request context.  Requests carrying
// neither credential are rejected with 401.
func Authenticate(sessions SessionFinder, jwtSecret string) echo.MiddlewareFunc {
	resolvers := []credentialResolver{
		sessionResolver{sessions: sessions},
		bearerResolver{secret: jwtSecret},
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, r := range resolvers {
				principal, found, err := r.resolve(c)
				if err != nil {
					if he, ok := err.(*echo.HTTPError); ok {
						return c.JSON(he.Code, echo.Map{"success": false, "message": he.Message})
					}
					return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
				}
				if found {
					c.Set(principalKey, principal)
					return next(c)
				}
			}
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
		}
	}
}

// CurrentPrincipal extracts the authenticated Principal placed in the
// context by Authenticate.  The second return is false when the route
// was not protected.
func CurrentPrincipal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}
