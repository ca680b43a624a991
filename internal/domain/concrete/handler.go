package concrete

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/intake/intake/internal/platform/apierr"
	"github.com/intake/intake/internal/platform/auth"
	"github.com/intake/intake/pkg/pagination"
)

// Handler provides HTTP handlers for concrete projects.
type Handler struct {
	svc *Service
}

// NewHandler creates a concrete project handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the project routes. Engineers design projects,
// analysts run the statistics and both consult recorded projects.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	write := api.Group("/projects", auth.RequireRole(auth.RoleEngineer))
	write.POST("", h.Submit)
	write.POST("/preview", h.Preview)

	read := api.Group("/projects", auth.RequireRole(auth.RoleEngineer, auth.RoleAnalyst))
	read.GET("", h.List)
	read.GET("/options", h.Options)
	read.GET("/:key", h.Get)

	analytics := api.Group("/projects/stats", auth.RequireRole(auth.RoleAnalyst))
	analytics.GET("/overview", h.Overview)
	analytics.GET("/variables", h.ListVariables)
	analytics.GET("/summary", h.Summary)
	analytics.GET("/correlation", h.Correlation)
}

func filterFrom(c echo.Context) Filter {
	return Filter{StructureType: c.QueryParam("type_structure")}
}

func (h *Handler) Submit(c echo.Context) error {
	var in ProjectInput
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
	var in ProjectInput
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
	p, err := h.svc.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		return apierr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filterFrom(c), pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err)
	}
	if items == nil {
		items = []*Summary{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}

// Options lists the accepted values of the enumerated form fields.
func (h *Handler) Options(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"type_structure":  StructureTypes,
		"forme_structure": Shapes,
		"type_beton":      ConcreteTypes,
	})
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
