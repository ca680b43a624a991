package concrete

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/intake/intake/internal/calc"
	"github.com/intake/intake/internal/platform/apierr"
	"github.com/intake/intake/internal/stats"
)

// Form limits of the design screen.
const (
	minDimension   = 0.1
	maxDimension   = 1000
	maxHeight      = 500
	minThickness   = 0.05
	maxThickness   = 5
	maxLoadKN      = 100000
	maxLightLoadKN = 10000
	minStrength    = 10
	maxStrength    = 150
	minCoefficient = 1
	maxCoefficient = 3
	maxNameLength  = 255
)

type bound struct {
	field    string
	value    float64
	min, max float64
}

// Service records concrete projects and computes the analyst's statistics.
type Service struct {
	projects  ProjectRepository
	constants calc.Constants
	logger    zerolog.Logger
}

// NewService creates a concrete project service using the given engineering
// constants.
func NewService(projects ProjectRepository, constants calc.Constants, logger zerolog.Logger) *Service {
	return &Service{
		projects:  projects,
		constants: constants,
		logger:    logger.With().Str("component", "concrete").Logger(),
	}
}

func validate(in *ProjectInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Name == "" {
		return apierr.Invalid("nom_projet", "is required")
	}
	if len(in.Name) > maxNameLength {
		return apierr.Invalid("nom_projet", "must be at most %d characters", maxNameLength)
	}
	if !lo.Contains(StructureTypes, in.StructureType) {
		return apierr.Invalid("type_structure", "must be one of %s", strings.Join(StructureTypes, ", "))
	}
	if !lo.Contains(Shapes, calc.Shape(in.Shape)) {
		return apierr.Invalid("forme_structure", "must be one of %s",
			strings.Join(lo.Map(Shapes, func(s calc.Shape, _ int) string { return string(s) }), ", "))
	}
	if !lo.Contains(ConcreteTypes, in.ConcreteType) {
		return apierr.Invalid("type_beton", "must be one of %s", strings.Join(ConcreteTypes, ", "))
	}

	bounds := []bound{
		{"longueur_m", in.Length, minDimension, maxDimension},
		{"largeur_m", in.Width, minDimension, maxDimension},
		{"hauteur_m", in.Height, minDimension, maxHeight},
		{"epaisseur_m", in.Thickness, minThickness, maxThickness},
		{"charge_statique_kn", in.StaticLoad, 0, maxLoadKN},
		{"charge_dynamique_kn", in.DynamicLoad, 0, maxLoadKN},
		{"charge_vent_kn", in.WindLoad, 0, maxLightLoadKN},
		{"charge_neige_kn", in.SnowLoad, 0, maxLightLoadKN},
		{"charge_seisme_kn", in.SeismicLoad, 0, maxLightLoadKN},
		{"resistance_mpa", in.StrengthMPa, minStrength, maxStrength},
		{"coefficient_securite", in.SafetyCoefficient, minCoefficient, maxCoefficient},
		{"dosage_ciment_kg_m3", in.CementDosage, 200, 600},
		{"dosage_eau_kg_m3", in.WaterDosage, 100, 300},
		{"dosage_sable_kg_m3", in.SandDosage, 400, 1200},
		{"dosage_gravier_kg_m3", in.GravelDosage, 800, 1800},
	}
	for _, b := range bounds {
		if b.value < b.min || b.value > b.max {
			return apierr.Invalid(b.field, "must be between %g and %g", b.min, b.max)
		}
	}
	return nil
}

func (s *Service) assess(in ProjectInput) Assessment {
	d, issues := calc.ComputeProject(in.toCalc(), s.constants)
	return Assessment{
		Derived: d,
		Verdict: calc.SafetyVerdict(d.SafetyMargin, in.SafetyCoefficient),
		Issues:  issues,
	}
}

// Preview validates the form and computes the design without recording it.
func (s *Service) Preview(in ProjectInput) (*Assessment, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	a := s.assess(in)
	return &a, nil
}

// Submit validates the form, derives every computed column and appends the
// project with status "En conception".
func (s *Service) Submit(ctx context.Context, in ProjectInput) (*Submission, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	a := s.assess(in)

	p := &Project{
		Name:              in.Name,
		StructureType:     &in.StructureType,
		Shape:             &in.Shape,
		Length:            f64(in.Length),
		Width:             f64(in.Width),
		Height:            f64(in.Height),
		Thickness:         f64(in.Thickness),
		StaticLoad:        f64(in.StaticLoad),
		DynamicLoad:       f64(in.DynamicLoad),
		WindLoad:          f64(in.WindLoad),
		SnowLoad:          f64(in.SnowLoad),
		SeismicLoad:       f64(in.SeismicLoad),
		ConcreteType:      &in.ConcreteType,
		StrengthMPa:       f64(in.StrengthMPa),
		CementDosage:      f64(in.CementDosage),
		WaterDosage:       f64(in.WaterDosage),
		SandDosage:        f64(in.SandDosage),
		GravelDosage:      f64(in.GravelDosage),
		SafetyCoefficient: f64(in.SafetyCoefficient),
		Derived:           derivedFrom(a.Derived),
		Status:            StatusDesign,
		Verdict:           a.Verdict,
	}
	if in.Notes != "" {
		p.Notes = &in.Notes
	}

	if err := s.projects.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("nom_projet", p.Name).Msg("project not recorded")
		return nil, err
	}
	s.logger.Info().Int64("project_id", p.ID).Str("nom_projet", p.Name).
		Float64("volume_beton_m3", a.Derived.VolumeM3).Float64("cout_total_eur", a.Derived.TotalCost).
		Str("verdict", string(a.Verdict)).Msg("project recorded")
	return &Submission{Project: p, Assessment: a}, nil
}

// Get returns one project with its safety verdict.
func (s *Service) Get(ctx context.Context, key string) (*Project, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apierr.Invalid("id", "is required")
	}
	p, err := s.projects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	p.Verdict = p.verdict()
	return p, nil
}

func checkFilter(f Filter) error {
	if f.StructureType != "" && !lo.Contains(StructureTypes, f.StructureType) {
		return apierr.Invalid("type_structure", "must be one of %s", strings.Join(StructureTypes, ", "))
	}
	return nil
}

// List returns the consultation summaries, newest first.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Summary, int, error) {
	if err := checkFilter(f); err != nil {
		return nil, 0, err
	}
	return s.projects.List(ctx, f, limit, offset)
}

func (s *Service) load(ctx context.Context, f Filter) ([]*Project, error) {
	if err := checkFilter(f); err != nil {
		return nil, err
	}
	projects, err := s.projects.LoadAll(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Msg("load projects")
		return nil, err
	}
	return projects, nil
}

// Overview totals the volume and cost of the matching projects and averages
// their compressive strength. Null values are skipped.
func (s *Service) Overview(ctx context.Context, f Filter) (*Overview, error) {
	projects, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	column := func(key string) stats.Summary {
		v, _ := Variables.Lookup(key)
		return stats.Summarize(stats.Values(v.Column(projects)))
	}
	o := &Overview{
		Count:         len(projects),
		TotalVolumeM3: calc.Round(column("volume_beton_m3").Sum, 3),
		TotalCostEUR:  calc.Round(column("cout_total_eur").Sum, 2),
	}
	if strength := column("resistance_mpa"); !strength.Insufficient {
		o.MeanStrengthMPa = f64(calc.Round(strength.Mean, 2))
	}
	return o, nil
}

func lookup(field, key string) (stats.Variable[*Project], error) {
	v, ok := Variables.Lookup(key)
	if !ok {
		return v, apierr.Invalid(field, "unknown variable %q (expected one of %s)", key, strings.Join(Variables.Keys(), ", "))
	}
	return v, nil
}

// Summarize describes the distribution of one project attribute.
func (s *Service) Summarize(ctx context.Context, variable string, f Filter) (*stats.Distribution, error) {
	v, err := lookup("var", variable)
	if err != nil {
		return nil, err
	}
	projects, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	d := stats.Describe(v.Key, v.Label, v.Column(projects))
	return &d, nil
}

// Correlate relates two project attributes.
func (s *Service) Correlate(ctx context.Context, x, y string, f Filter) (*stats.Relationship, error) {
	xv, err := lookup("x", x)
	if err != nil {
		return nil, err
	}
	yv, err := lookup("y", y)
	if err != nil {
		return nil, err
	}
	projects, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	rel := stats.Relate(xv.Key, yv.Key, xv.Column(projects), yv.Column(projects))
	return &rel, nil
}
