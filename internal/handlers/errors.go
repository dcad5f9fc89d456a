package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.agora/internal/model"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{model.ErrorNotPermitted, http.StatusUnauthorized},
	{model.ErrorInvalidEmailOrPassword, http.StatusUnauthorized},
	{model.ErrorNotAuthorized, http.StatusForbidden},
	{model.ErrorRaceCondition, http.StatusConflict},
	{model.ErrorDuplicateEmailDomainBlock, http.StatusConflict},
	{model.ErrorUsernameTaken, http.StatusConflict},
	{model.ErrorEmailTaken, http.StatusConflict},
	{model.ErrorUserNotFound, http.StatusNotFound},
	{model.ErrorAccountNotFound, http.StatusNotFound},
	{model.ErrorBackupNotFound, http.StatusNotFound},
	{model.ErrorEmailDomainBlockNotFound, http.StatusNotFound},
	{model.ErrorEmailDomainBlocked, http.StatusUnprocessableEntity},
	{model.ErrorInvalidDomain, http.StatusUnprocessableEntity},
}

// StatusFor maps domain errors onto HTTP errors. Errors it does not know
// are returned unchanged.
func StatusFor(err error) error {
	var unknownKey *model.UnknownFilterKeyError
	if errors.As(err, &unknownKey) {
		return echo.NewHTTPError(http.StatusBadRequest, unknownKey.Error()).SetInternal(err)
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return echo.NewHTTPError(s.status, s.err.Error()).SetInternal(err)
		}
	}
	return err
}

// ErrorHandler wraps echo's default handler with StatusFor.
func ErrorHandler(server *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		server.DefaultHTTPErrorHandler(StatusFor(err), c)
	}
}
