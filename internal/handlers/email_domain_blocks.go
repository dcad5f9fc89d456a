package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.agora/internal/model"
	"uk.co.dudmesh.agora/internal/policy"
)

type EmailDomainBlockService interface {
	Create(ctx context.Context, domain string) (*model.EmailDomainBlock, error)
	List(ctx context.Context) ([]*model.EmailDomainBlock, error)
	Delete(ctx context.Context, id model.EmailDomainBlockID) error
}

type createEmailDomainBlockParams struct {
	Domain string `json:"domain" form:"domain"`
}

func requireStaff(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return model.ErrorNotPermitted
	}
	return policy.Staff(user)
}

func ListEmailDomainBlocks(blocks EmailDomainBlockService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := requireStaff(c); err != nil {
			return err
		}
		list, err := blocks.List(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}
}

func CreateEmailDomainBlock(blocks EmailDomainBlockService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := requireStaff(c); err != nil {
			return err
		}
		params := &createEmailDomainBlockParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		block, err := blocks.Create(c.Request().Context(), params.Domain)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, block)
	}
}

func DeleteEmailDomainBlock(blocks EmailDomainBlockService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := requireStaff(c); err != nil {
			return err
		}
		if err := blocks.Delete(c.Request().Context(), model.EmailDomainBlockID(c.Param("id"))); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
