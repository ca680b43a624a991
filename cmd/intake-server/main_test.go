package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/intake/intake/internal/calc"
	"github.com/intake/intake/internal/config"
	"github.com/intake/intake/internal/platform/auth"
	"github.com/intake/intake/internal/platform/db"
	"github.com/intake/intake/internal/stats"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func testConfig(mode string) *config.Config {
	return &config.Config{
		Port:           "8000",
		Env:            "production",
		AuthMode:       mode,
		AuthSigningKey: testSigningKey,
		DBTimeout:      time.Second,
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"https://intake.example"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	e, err := newServer(cfg, zerolog.Nop(), nil, calc.DefaultConstants(), nil)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e
}

func do(h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signedToken(t *testing.T, roles ...string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	})
	s, err := tok.SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// ---------------------------------------------------------------------------
// HTTP assembly
// ---------------------------------------------------------------------------

func TestServer_HealthIsPublic(t *testing.T) {
	h := newTestServer(t, testConfig(config.AuthModeShared))
	rec := do(h, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on every response")
	}
}

func TestServer_SharedAuth(t *testing.T) {
	h := newTestServer(t, testConfig(config.AuthModeShared))

	if rec := do(h, "/api/v1/reports/measures", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}

	header := http.Header{"Authorization": {"Bearer " + signedToken(t, auth.RoleAnalyst)}}
	rec := do(h, "/api/v1/reports/measures", header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "projects-by-structure-type") {
		t.Errorf("expected project measures, got %s", rec.Body.String())
	}
}

func TestServer_DevAuthRoleGating(t *testing.T) {
	cfg := testConfig(config.AuthModeDevelopment)
	cfg.Env = "development"
	h := newTestServer(t, cfg)

	tests := []struct {
		path  string
		roles string
	}{
		{"/api/v1/visits", auth.RoleEngineer},
		{"/api/v1/projects", auth.RoleNurse},
		{"/api/v1/visits/stats/overview", auth.RoleNurse},
		{"/api/v1/projects/stats/overview", auth.RoleEngineer},
	}
	for _, tt := range tests {
		rec := do(h, tt.path, http.Header{auth.DevRolesHeader: {tt.roles}})
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s as %s: expected 403, got %d", tt.path, tt.roles, rec.Code)
		}
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	h := newTestServer(t, testConfig(config.AuthModeShared))
	rec := do(h, "/health", nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected X-Content-Type-Options: nosniff")
	}
}

func TestAuthMiddleware_Modes(t *testing.T) {
	for _, mode := range []string{config.AuthModeDevelopment, config.AuthModeShared} {
		if _, err := authMiddleware(testConfig(mode)); err != nil {
			t.Errorf("mode %s: unexpected error %v", mode, err)
		}
	}

	cfg := testConfig(config.AuthModeShared)
	cfg.AuthSigningKey = ""
	if _, err := authMiddleware(cfg); err == nil {
		t.Error("expected an error for shared mode without a key")
	}
	if _, err := authMiddleware(testConfig("kerberos")); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

// ---------------------------------------------------------------------------
// CLI
// ---------------------------------------------------------------------------

func runCalc(t *testing.T, args ...string) string {
	t.Helper()
	cmd := calcCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("calc %v: %v", args, err)
	}
	return buf.String()
}

func TestCalcBMI(t *testing.T) {
	out := runCalc(t, "bmi", "--poids", "70", "--taille", "175")
	if !strings.Contains(out, "IMC: 22.86 (Poids normal)") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestCalcBMI_ZeroHeight(t *testing.T) {
	out := runCalc(t, "bmi", "--poids", "70", "--taille", "0")
	if !strings.Contains(out, "taille_cm") || !strings.Contains(out, "IMC: 0.00") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestCalcProject_Defaults(t *testing.T) {
	out := runCalc(t, "project")
	if !strings.Contains(out, "10.000 m³") {
		t.Errorf("expected a 10 m³ volume, got %q", out)
	}
	if !strings.Contains(out, "acceptable") {
		t.Errorf("expected an acceptable verdict, got %q", out)
	}
}

func TestLoadConstants_Default(t *testing.T) {
	k, err := loadConstants("")
	if err != nil {
		t.Fatal(err)
	}
	if k != calc.DefaultConstants() {
		t.Error("expected the default constants")
	}
}

func TestDescribeCorrelation(t *testing.T) {
	tests := []struct {
		c    stats.Correlation
		want string
	}{
		{stats.Correlation{Status: stats.StatusInsufficientData, N: 1, Needed: 2}, "2 more needed"},
		{stats.Correlation{Status: stats.StatusConstantInput, N: 5}, "constant"},
		{stats.Correlation{Status: stats.StatusOK, N: 10, PearsonR: 0.91, Strength: stats.StrengthStrong, Direction: stats.DirectionPositive, Significant: true}, "strong positive, significant"},
	}
	for _, tt := range tests {
		if got := describeCorrelation(tt.c); !strings.Contains(got, tt.want) {
			t.Errorf("describeCorrelation(%s) = %q, want it to contain %q", tt.c.Status, got, tt.want)
		}
	}
}

func TestDescribeSummary_Insufficient(t *testing.T) {
	if got := describeSummary(stats.Summary{Insufficient: true}); got != "no data" {
		t.Errorf("expected no data, got %q", got)
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "001_dossiers_patients.sql", Applied: true, AppliedAt: &at},
		{Version: 3, Name: "003_projets_beton.sql"},
	})
	out := buf.String()
	if !strings.Contains(out, "applied    2024-06-01 12:00:00") {
		t.Errorf("missing applied row in %q", out)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("missing pending row in %q", out)
	}
}
