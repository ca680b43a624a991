// Package reporting serves predefined aggregate SQL measures over the visit
// and project tables.
package reporting

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"

	"github.com/intake/intake/internal/platform/apierr"
	"github.com/intake/intake/internal/platform/auth"
	"github.com/intake/intake/internal/platform/db"
)

// Parameter is a query-string parameter bound positionally into a measure's
// SQL. Integer parameters are parsed before binding.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     string `json:"default"`
	Integer     bool   `json:"integer"`
}

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	SQL         string      `json:"sql"`
	Parameters  []Parameter `json:"parameters"`
	// Roles may evaluate the measure.
	Roles []string `json:"roles"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "visits-by-sex",
		Name:        "Visits by Sex",
		Description: "Number of visits and mean BMI per recorded sex",
		SQL: `SELECT COALESCE(sexe, 'inconnu') AS sexe, COUNT(*) AS total, ROUND(AVG(imc), 2) AS imc_moyen
			FROM dossiers_patients GROUP BY 1 ORDER BY total DESC`,
		Parameters: []Parameter{},
		Roles:      []string{auth.RolePhysician},
	},
	{
		ID:          "visit-volume-by-day",
		Name:        "Visit Volume by Day",
		Description: "Visits recorded per day over the last N days",
		SQL: `SELECT created_at::date AS jour, COUNT(*) AS total FROM dossiers_patients
			WHERE created_at >= NOW() - make_interval(days => $1) GROUP BY 1 ORDER BY 1`,
		Parameters: []Parameter{{Name: "days", Description: "look-back window in days", Default: "30", Integer: true}},
		Roles:      []string{auth.RolePhysician, auth.RoleNurse},
	},
	{
		ID:          "projects-by-structure-type",
		Name:        "Projects by Structure Type",
		Description: "Number of projects and concrete volume per structure type",
		SQL: `SELECT COALESCE(type_structure, 'inconnu') AS type_structure, COUNT(*) AS total,
			ROUND(SUM(volume_beton_m3), 3) AS volume_total_m3
			FROM projets_beton GROUP BY 1 ORDER BY total DESC`,
		Parameters: []Parameter{},
		Roles:      []string{auth.RoleAnalyst, auth.RoleEngineer},
	},
	{
		ID:          "project-cost-by-concrete-type",
		Name:        "Project Cost by Concrete Type",
		Description: "Mean and total project cost per concrete type",
		SQL: `SELECT COALESCE(type_beton, 'inconnu') AS type_beton, COUNT(*) AS total,
			ROUND(AVG(cout_total_eur), 2) AS cout_moyen_eur, ROUND(SUM(cout_total_eur), 2) AS cout_total_eur
			FROM projets_beton GROUP BY 1 ORDER BY cout_total_eur DESC NULLS LAST`,
		Parameters: []Parameter{},
		Roles:      []string{auth.RoleAnalyst},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	q       db.Querier
	timeout time.Duration
	now     func() time.Time
}

// NewHandler creates a new reporting handler. Each evaluation is bounded by
// timeout.
func NewHandler(q db.Querier, timeout time.Duration) *Handler {
	return &Handler{q: q, timeout: timeout, now: time.Now}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports",
		auth.RequireRole(auth.RolePhysician, auth.RoleNurse, auth.RoleAnalyst, auth.RoleEngineer))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns the measure definitions the caller may evaluate.
func (h *Handler) ListMeasures(c echo.Context) error {
	roles := auth.RolesFromContext(c.Request().Context())
	out := []MeasureDefinition{}
	for _, m := range PredefinedMeasures {
		if auth.HasRole(roles, m.Roles...) {
			out = append(out, m)
		}
	}
	return c.JSON(http.StatusOK, out)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, apierr.Body{Error: "measure not found"})
	}
	if !auth.HasRole(auth.RolesFromContext(c.Request().Context()), measure.Roles...) {
		return echo.NewHTTPError(http.StatusForbidden, apierr.Body{Error: "measure not available for this role"})
	}

	params, args, err := bind(measure, c.QueryParam)
	if err != nil {
		return apierr.HTTP(err)
	}

	results, err := h.Evaluate(c.Request().Context(), measure, args...)
	if err != nil {
		return apierr.HTTP(err)
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: h.now(),
		Results:     results,
		Parameters:  params,
	})
}

// bind resolves a measure's parameters from lookup, falling back to their
// defaults, into the reported values and the positional SQL arguments.
func bind(m *MeasureDefinition, lookup func(string) string) (map[string]string, []any, error) {
	params := map[string]string{}
	args := make([]any, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		v := lookup(p.Name)
		if v == "" {
			v = p.Default
		}
		params[p.Name] = v
		if !p.Integer {
			args = append(args, v)
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, nil, apierr.Invalid(p.Name, "must be a non-negative integer")
		}
		args = append(args, n)
	}
	return params, args, nil
}

// Evaluate runs a measure's SQL and returns its rows keyed by column name.
// Numeric columns are returned as float64.
func (h *Handler) Evaluate(ctx context.Context, m *MeasureDefinition, args ...any) ([]map[string]interface{}, error) {
	ctx, cancel := db.WithTimeout(ctx, h.timeout)
	defer cancel()

	op := "measure " + m.ID
	rows, err := h.q.Query(ctx, m.SQL, args...)
	if err != nil {
		return nil, db.Fail(op, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, db.Fail(op, err)
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = plain(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Fail(op, err)
	}
	return results, nil
}

// plain converts pgx numeric values to float64 (nil when NULL).
func plain(v interface{}) interface{} {
	n, ok := v.(pgtype.Numeric)
	if !ok {
		return v
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
