package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.agora/internal/filter"
	"uk.co.dudmesh.agora/internal/model"
)

type AccountFinder interface {
	FilterAccounts(ctx context.Context, scope filter.Scope, page filter.Page) ([]*model.AccountWithUser, error)
}

type accountsResponse struct {
	Accounts []*model.AccountWithUser `json:"accounts"`
	Filters  map[string]string        `json:"filters"`
	Page     int                      `json:"page"`
}

// ListAccounts is the moderator account listing. Every query parameter other
// than page and limit is a filter.
func ListAccounts(accounts AccountFinder) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := requireStaff(c); err != nil {
			return err
		}

		params := map[string]string{}
		for key, values := range c.QueryParams() {
			if key == "page" || key == "limit" || len(values) == 0 {
				continue
			}
			params[key] = values[0]
		}

		accountFilter := filter.NewAccountFilter(params)
		scope, err := accountFilter.Scope()
		if err != nil {
			return err
		}

		pageNumber := queryInt(c, "page", 1)
		if pageNumber < 1 {
			pageNumber = 1
		}
		limit := queryInt(c, "limit", filter.DefaultPageSize)
		if limit < 1 || limit > 200 {
			limit = filter.DefaultPageSize
		}

		results, err := accounts.FilterAccounts(c.Request().Context(), scope, filter.Page{
			Limit:  limit,
			Offset: (pageNumber - 1) * limit,
		})
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, accountsResponse{
			Accounts: results,
			Filters:  accountFilter.Params(),
			Page:     pageNumber,
		})
	}
}

func queryInt(c echo.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return value
}
