package patient

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/intake/intake/internal/platform/apierr"
	"github.com/intake/intake/internal/platform/auth"
	"github.com/intake/intake/pkg/pagination"
)

// Handler provides HTTP handlers for patient visits.
type Handler struct {
	svc *Service
}

// NewHandler creates a patient visit handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the visit routes. Nurses record and read visits;
// physicians read visits and statistics.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	write := api.Group("/visits", auth.RequireRole(auth.RoleNurse))
	write.POST("", h.Submit)
	write.POST("/preview", h.Preview)

	read := api.Group("/visits", auth.RequireRole(auth.RoleNurse, auth.RolePhysician))
	read.GET("", h.List)
	read.GET("/:id", h.Get)

	analytics := api.Group("/visits/stats", auth.RequireRole(auth.RolePhysician))
	analytics.GET("/overview", h.Overview)
	analytics.GET("/variables", h.ListVariables)
	analytics.GET("/summary", h.Summary)
	analytics.GET("/correlation", h.Correlation)
}

func filterFrom(c echo.Context) Filter {
	return Filter{Sex: c.QueryParam("sexe")}
}

func (h *Handler) Submit(c echo.Context) error {
	var in VisitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Submit(c.Request().Context(), in)
	if err != nil {
		return apierr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Preview(c echo.Context) error {
	var in VisitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Preview(in)
	if err != nil {
		return apierr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filterFrom(c), pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err)
	}
	if items == nil {
		items = []*Visit{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}

func (h *Handler) Overview(c echo.Context) error {
	o, err := h.svc.Overview(c.Request().Context(), filterFrom(c))
	if err != nil {
		return apierr.HTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListVariables(c echo.Context) error {
	return c.JSON(http.StatusOK, Variables)
}

func (h *Handler) Summary(c echo.Context) error {
	d, err := h.svc.Summarize(c.Request().Context(), c.QueryParam("var"), filterFrom(c))
	if err != nil {
		return apierr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Correlation(c echo.Context) error {
	rel, err := h.svc.Correlate(c.Request().Context(), c.QueryParam("x"), c.QueryParam("y"), filterFrom(c))
	if err != nil {
		return apierr.HTTP(err)
	}
	return c.JSON(http.StatusOK, rel)
}
