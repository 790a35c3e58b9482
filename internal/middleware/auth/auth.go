package auth

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	"github.com/daryakhm/flower_shop/internal/models"
	"github.com/daryakhm/flower_shop/internal/service/token"
)

const (
	CtxUserID  = "userID"
	CtxIsAdmin = "isAdmin"
)

type Middleware struct {
	DB     *gorm.DB
	Tokens *token.Service
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// RequireLogin rejects requests without a valid Bearer token.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := bearerToken(c)
		if !ok {
			return respond.Err(c, apperr.Auth("authorization token required"))
		}
		claims, err := m.Tokens.Parse(raw)
		if err != nil {
			return respond.Err(c, apperr.Auth("invalid token"))
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxIsAdmin, claims.IsAdmin)
		return next(c)
	}
}

// OptionalLogin attaches the user identity when a valid token is
// present and lets the request through either way. Order placement
// works for anonymous customers.
func (m *Middleware) OptionalLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if raw, ok := bearerToken(c); ok {
			if claims, err := m.Tokens.Parse(raw); err == nil {
				c.Set(CtxUserID, claims.UserID)
				c.Set(CtxIsAdmin, claims.IsAdmin)
			}
		}
		return next(c)
	}
}

// AdminOnly re-checks the admin flag against the users table rather
// than trusting the token claim alone.
func (m *Middleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := UserID(c)
		if !ok {
			return respond.Err(c, apperr.Auth("authorization token required"))
		}

		var user models.User
		if err := m.DB.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respond.Err(c, apperr.Forbidden("admin rights required"))
			}
			return respond.Err(c, err)
		}
		if !user.IsAdmin || !user.IsActive {
			return respond.Err(c, apperr.Forbidden("admin rights required"))
		}
		return next(c)
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(CtxUserID).(uint)
	return id, ok
}

func IsAdmin(c echo.Context) bool {
	adm, _ := c.Get(CtxIsAdmin).(bool)
	return adm
}
