package patient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/intake/intake/internal/platform/auth"
	"github.com/intake/intake/internal/platform/db"
	"github.com/intake/intake/pkg/pagination"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTP error %d, got %v", code, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

const validBody = `{"patient_ref_id":"PAT-001","date_naissance":"1990-01-01","sexe":"Femme",
"poids_kg":70,"taille_cm":175,"tension_systolique":120,"tension_diastolique":80,"temperature_celsius":37}`

// ── REST Handlers ──

func TestHandler_Submit(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(validBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var res struct {
		Visit Visit   `json:"visit"`
		BMI   float64 `json:"imc"`
		Label string  `json:"interpretation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.BMI != 22.86 || res.Label != "Poids normal" || res.Visit.ID != 1 {
		t.Errorf("unexpected response %+v", res)
	}
}

func TestHandler_Submit_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_ref_id":"","sexe":"Femme","tension_systolique":120,"tension_diastolique":80,"temperature_celsius":37}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	expectHTTPError(t, h.Submit(c), http.StatusBadRequest)
}

func TestHandler_Submit_MalformedJSON(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"poids_kg":"heavy"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	expectHTTPError(t, h.Submit(c), http.StatusBadRequest)
}

func TestHandler_Submit_StoreUnavailable(t *testing.T) {
	repo := newMockVisitRepo()
	repo.err = db.Fail("insert visit", context.DeadlineExceeded)
	h := NewHandler(NewService(repo, zerolog.Nop()))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(validBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	expectHTTPError(t, h.Submit(c), http.StatusServiceUnavailable)
}

func TestHandler_Preview(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(validBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Preview(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"imc":22.86`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Get(t *testing.T) {
	h, e := newTestHandler()
	res, err := h.svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if res.Visit.ID != 1 {
		t.Errorf("expected id 1, got %d", res.Visit.ID)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	expectHTTPError(t, h.Get(c), http.StatusNotFound)
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	expectHTTPError(t, h.Get(c), http.StatusBadRequest)
}

func TestHandler_List(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h.svc)

	req := httptest.NewRequest(http.MethodGet, "/?sexe=Homme&limit=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Limit != 1 || !page.HasMore {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestHandler_List_Empty(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected an empty array, got %s", rec.Body.String())
	}
}

func TestHandler_Summary(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h.svc)

	req := httptest.NewRequest(http.MethodGet, "/?var=poids_kg", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Summary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"mean":70`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Summary_UnknownVariable(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?var=glycemie", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	expectHTTPError(t, h.Summary(c), http.StatusBadRequest)
}

func TestHandler_Correlation(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h.svc)

	req := httptest.NewRequest(http.MethodGet, "/?x=poids_kg&y=taille_cm", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Correlation(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status":"ok"`) || !strings.Contains(body, `"regression_line"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestHandler_Overview(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h.svc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Overview(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var o Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatal(err)
	}
	if o.Total != 3 || o.Men != 2 || o.Women != 1 {
		t.Errorf("unexpected overview %+v", o)
	}
}

// ── Routes ──

func TestRoutes_RoleGating(t *testing.T) {
	h, e := newTestHandler()
	api := e.Group("/api/v1", auth.DevAuthMiddleware())
	h.RegisterRoutes(api)

	tests := []struct {
		method string
		path   string
		roles  string
		want   int
	}{
		{http.MethodPost, "/api/v1/visits", "nurse", http.StatusCreated},
		{http.MethodPost, "/api/v1/visits", "physician", http.StatusForbidden},
		{http.MethodGet, "/api/v1/visits", "physician", http.StatusOK},
		{http.MethodGet, "/api/v1/visits/stats/overview", "physician", http.StatusOK},
		{http.MethodGet, "/api/v1/visits/stats/overview", "nurse", http.StatusForbidden},
		{http.MethodGet, "/api/v1/visits/stats/variables", "admin", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" as "+tt.roles, func(t *testing.T) {
			var body *strings.Reader
			if tt.method == http.MethodPost {
				body = strings.NewReader(validBody)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(auth.DevRolesHeader, tt.roles)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
