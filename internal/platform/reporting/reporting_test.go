package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"

	"github.com/intake/intake/internal/platform/auth"
	"github.com/intake/intake/internal/platform/db"
)

// =========== Fake store ===========

type fakeRows struct {
	cols []string
	data [][]any
	i    int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) Scan(...any) error             { return errors.New("not supported") }
func (r *fakeRows) Values() ([]any, error)        { return r.data[r.i-1], nil }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

type fakeQuerier struct {
	rows    *fakeRows
	err     error
	gotSQL  string
	gotArgs []any
}

func (q *fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.gotSQL, q.gotArgs = sql, args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func (q *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func numeric(v int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(v), Exp: exp, Valid: true}
}

// =========== Definitions ===========

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{
		"visits-by-sex",
		"visit-volume-by-day",
		"projects-by-structure-type",
		"project-cost-by-concrete-type",
	}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, expectedID := range expectedIDs {
		if PredefinedMeasures[i].ID != expectedID {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, expectedID, PredefinedMeasures[i].ID)
		}
	}
}

func TestPredefinedMeasures_AreComplete(t *testing.T) {
	for _, m := range PredefinedMeasures {
		if m.SQL == "" || m.Name == "" || m.Description == "" {
			t.Errorf("measure %s is incomplete", m.ID)
		}
		if len(m.Roles) == 0 {
			t.Errorf("measure %s is not available to any role", m.ID)
		}
		if !strings.Contains(m.SQL, "dossiers_patients") && !strings.Contains(m.SQL, "projets_beton") {
			t.Errorf("measure %s does not read a known table", m.ID)
		}
	}
}

func TestFindMeasure(t *testing.T) {
	if m := FindMeasure("visits-by-sex"); m == nil || m.Name != "Visits by Sex" {
		t.Errorf("unexpected measure %+v", m)
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestBind(t *testing.T) {
	m := FindMeasure("visit-volume-by-day")

	params, args, err := bind(m, func(string) string { return "" })
	if err != nil {
		t.Fatal(err)
	}
	if params["days"] != "30" || len(args) != 1 || args[0] != 30 {
		t.Errorf("expected default of 30 days, got %v %v", params, args)
	}

	_, args, _ = bind(m, func(string) string { return "7" })
	if args[0] != 7 {
		t.Errorf("expected 7, got %v", args[0])
	}

	if _, _, err := bind(m, func(string) string { return "a week" }); err == nil {
		t.Error("expected an error for a non-integer parameter")
	}
}

// =========== Evaluation ===========

func TestEvaluate_ConvertsNumerics(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		cols: []string{"sexe", "total", "imc_moyen"},
		data: [][]any{
			{"Homme", int64(2), numeric(2286, -2)},
			{"Autre", int64(1), pgtype.Numeric{}},
		},
	}}
	h := NewHandler(q, time.Second)

	res, err := h.Evaluate(context.Background(), FindMeasure("visits-by-sex"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res))
	}
	if res[0]["imc_moyen"] != 22.86 || res[0]["total"] != int64(2) {
		t.Errorf("unexpected first row %v", res[0])
	}
	if res[1]["imc_moyen"] != nil {
		t.Errorf("expected NULL mean, got %v", res[1]["imc_moyen"])
	}
}

func TestEvaluate_StoreFailure(t *testing.T) {
	q := &fakeQuerier{err: &pgconn.PgError{Code: "42P01", Message: `relation "projets_beton" does not exist`}}
	h := NewHandler(q, time.Second)

	_, err := h.Evaluate(context.Background(), FindMeasure("projects-by-structure-type"))
	var f *db.IOFailure
	if !errors.As(err, &f) || f.Kind != db.KindSchema {
		t.Fatalf("expected schema IOFailure, got %v", err)
	}
	if f.Op != "measure projects-by-structure-type" {
		t.Errorf("unexpected op %q", f.Op)
	}
}

// =========== HTTP ===========

func serve(t *testing.T, h *Handler, path, roles string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	api := e.Group("/api/v1", auth.DevAuthMiddleware())
	h.RegisterRoutes(api)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(auth.DevRolesHeader, roles)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListMeasures_FilteredByRole(t *testing.T) {
	h := NewHandler(&fakeQuerier{}, time.Second)
	rec := serve(t, h, "/api/v1/reports/measures", "analyst")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var defs []MeasureDefinition
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatal(err)
	}
	if len(defs) != 2 {
		t.Errorf("expected the 2 project measures, got %d", len(defs))
	}
}

func TestEvaluateMeasure(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	q := &fakeQuerier{rows: &fakeRows{cols: []string{"jour", "total"}, data: [][]any{{day, int64(4)}}}}
	h := NewHandler(q, time.Second)

	rec := serve(t, h, "/api/v1/reports/measures/visit-volume-by-day/evaluate?days=7", "nurse")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(q.gotArgs) != 1 || q.gotArgs[0] != 7 {
		t.Errorf("expected days bound as 7, got %v", q.gotArgs)
	}
	var report MeasureReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.MeasureID != "visit-volume-by-day" || len(report.Results) != 1 || report.Parameters["days"] != "7" {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestEvaluateMeasure_Errors(t *testing.T) {
	tests := []struct {
		name  string
		q     *fakeQuerier
		path  string
		roles string
		want  int
	}{
		{"unknown", &fakeQuerier{}, "/api/v1/reports/measures/nope/evaluate", "admin", http.StatusNotFound},
		{"wrong role", &fakeQuerier{}, "/api/v1/reports/measures/project-cost-by-concrete-type/evaluate", "physician", http.StatusForbidden},
		{"no report role", &fakeQuerier{}, "/api/v1/reports/measures", "guest", http.StatusForbidden},
		{"bad parameter", &fakeQuerier{}, "/api/v1/reports/measures/visit-volume-by-day/evaluate?days=-1", "physician", http.StatusBadRequest},
		{"store down", &fakeQuerier{err: context.DeadlineExceeded}, "/api/v1/reports/measures/visits-by-sex/evaluate", "physician", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, NewHandler(tt.q, time.Second), tt.path, tt.roles)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
