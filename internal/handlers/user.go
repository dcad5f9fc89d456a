package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.agora/internal/model"
)

type UserService interface {
	Create(ctx context.Context, params *model.CreateUserParams) (*model.User, error)
	Authenticate(ctx context.Context, email, password, ip string) (string, error)
}

type tokenParams struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

func CreateUser(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.CreateUserParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		user, err := userService.Create(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, user)
	}
}

func CreateToken(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &tokenParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		token, err := userService.Authenticate(c.Request().Context(), params.Email, params.Password, c.RealIP())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer"})
	}
}
