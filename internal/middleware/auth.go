package middleware

import (
	"net/http"
	"strings"

	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/labstack/echo/v4"
)

const sessionKey = "session"

type TokenVerifier interface {
	Verify(raw string) (*auth.Session, error)
}

func bearer(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return raw, raw != ""
}

// JWTAuth rejects requests without a valid bearer token and stores the
// verified session for handlers.
func JWTAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			session, err := verifier.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.Set(sessionKey, session)
			return next(c)
		}
	}
}

// OptionalJWTAuth stores the session when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalJWTAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if session, err := verifier.Verify(raw); err == nil {
					c.Set(sessionKey, session)
				}
			}
			return next(c)
		}
	}
}

// RequireRole must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := SessionFrom(c)
			for _, r := range roles {
				if session.HasRole(r) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}
}

// SessionFrom returns the verified session, or nil for anonymous requests.
func SessionFrom(c echo.Context) *auth.Session {
	s, _ := c.Get(sessionKey).(*auth.Session)
	return s
}
