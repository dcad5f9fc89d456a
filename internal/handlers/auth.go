package handlers

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.agora/internal/model"
)

const currentUserKey = "currentUser"

type TokenVerifier interface {
	UserFromToken(ctx context.Context, token string) (*model.User, error)
}

// Authenticate loads the user named by a bearer token. Requests without a
// token pass through anonymously; requests with a bad token are refused.
func Authenticate(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return model.ErrorNotPermitted
			}
			user, err := verifier.UserFromToken(c.Request().Context(), strings.TrimSpace(token))
			if err != nil {
				return err
			}
			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

// CurrentUser is nil for anonymous requests.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(currentUserKey).(*model.User)
	return user
}
