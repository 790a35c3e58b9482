package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	"github.com/daryakhm/flower_shop/internal/service/search"
	"github.com/daryakhm/flower_shop/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	if h.ES == nil {
		return respond.Err(c, apperr.Internal("search is not configured"))
	}

	q := c.QueryParam("q")
	if q == "" {
		return respond.Err(c, apperr.Validation("query parameter q is required"))
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	limit := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	from, limit, page := util.Calculate(page, limit)

	total, flowers, err := search.Search(c.Request().Context(), h.ES, h.Index, q, from, limit)
	if err != nil {
		return respond.Err(c, err)
	}

	return respond.Data(c, http.StatusOK, map[string]any{
		"flowers":    flowers,
		"pagination": util.Paginate(total, page, limit),
	})
}
