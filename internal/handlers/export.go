package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.agora/internal/model"
)

type ExportService interface {
	Create(ctx context.Context, user *model.User) (*model.ExportHandle, error)
	List(ctx context.Context, user *model.User) ([]*model.Backup, error)
}

func ShowExport(exports ExportService) echo.HandlerFunc {
	return func(c echo.Context) error {
		backups, err := exports.List(c.Request().Context(), CurrentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, backups)
	}
}

// CreateExport requests a new backup and redirects back to the export page.
func CreateExport(exports ExportService) echo.HandlerFunc {
	return func(c echo.Context) error {
		handle, err := exports.Create(c.Request().Context(), CurrentUser(c))
		if err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, handle.RedirectURL)
	}
}
