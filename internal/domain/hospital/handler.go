package hospital

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/careplan/careplan/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/hospitals", h.ListHospitals)
	api.GET("/hospitals/:id", h.GetHospital)
}

func (h *Handler) ListHospitals(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"type", "budget_category", "city"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.List(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetHospital(c echo.Context) error {
	hosp, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "hospital not found")
	}
	return c.JSON(http.StatusOK, hosp)
}
