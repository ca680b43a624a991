package patient

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/intake/intake/internal/calc"
	"github.com/intake/intake/internal/platform/apierr"
	"github.com/intake/intake/internal/stats"
)

// Form limits of the intake screen.
const (
	maxWeightKg     = 300
	maxHeightCm     = 250
	minSystolic     = 50
	maxSystolic     = 250
	minDiastolic    = 30
	maxDiastolic    = 150
	minTemperatureC = 32
	maxTemperatureC = 45
	maxRefLength    = 100
)

// Service records visits and computes the physician's statistics. Every
// statistics call reloads the table.
type Service struct {
	visits VisitRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a patient visit service.
func NewService(visits VisitRepository, logger zerolog.Logger) *Service {
	return &Service{
		visits: visits,
		logger: logger.With().Str("component", "patient").Logger(),
		now:    time.Now,
	}
}

func (s *Service) validate(in *VisitInput) (*time.Time, error) {
	in.PatientRefID = strings.TrimSpace(in.PatientRefID)
	if in.PatientRefID == "" {
		return nil, apierr.Invalid("patient_ref_id", "is required")
	}
	if len(in.PatientRefID) > maxRefLength {
		return nil, apierr.Invalid("patient_ref_id", "must be at most %d characters", maxRefLength)
	}
	if !validSexes[Sex(in.Sex)] {
		return nil, apierr.Invalid("sexe", "must be one of Homme, Femme, Autre")
	}

	var birth *time.Time
	if in.BirthDate != "" {
		d, err := time.Parse(time.DateOnly, in.BirthDate)
		if err != nil {
			return nil, apierr.Invalid("date_naissance", "must be a YYYY-MM-DD date")
		}
		if d.After(s.now()) {
			return nil, apierr.Invalid("date_naissance", "must not be in the future")
		}
		birth = &d
	}

	switch {
	case in.WeightKg < 0 || in.WeightKg > maxWeightKg:
		return nil, apierr.Invalid("poids_kg", "must be between 0 and %d", maxWeightKg)
	case in.HeightCm < 0 || in.HeightCm > maxHeightCm:
		return nil, apierr.Invalid("taille_cm", "must be between 0 and %d", maxHeightCm)
	case in.Systolic < minSystolic || in.Systolic > maxSystolic:
		return nil, apierr.Invalid("tension_systolique", "must be between %d and %d", minSystolic, maxSystolic)
	case in.Diastolic < minDiastolic || in.Diastolic > maxDiastolic:
		return nil, apierr.Invalid("tension_diastolique", "must be between %d and %d", minDiastolic, maxDiastolic)
	case in.TemperatureC < minTemperatureC || in.TemperatureC > maxTemperatureC:
		return nil, apierr.Invalid("temperature_celsius", "must be between %d and %d", minTemperatureC, maxTemperatureC)
	}
	return birth, nil
}

func assess(in VisitInput) Assessment {
	bmi, issues := calc.BMI(in.WeightKg, in.HeightCm)
	cat := calc.BMICategory(bmi)
	return Assessment{BMI: bmi, Category: cat, Interpretation: cat.Label(), Issues: issues}
}

// Preview validates the form and computes its BMI without recording it.
func (s *Service) Preview(in VisitInput) (*Assessment, error) {
	if _, err := s.validate(&in); err != nil {
		return nil, err
	}
	a := assess(in)
	return &a, nil
}

// Submit validates the form, derives the BMI and appends the visit. A BMI
// that fell back because of a zero weight or height is reported but stored
// as null.
func (s *Service) Submit(ctx context.Context, in VisitInput) (*Submission, error) {
	birth, err := s.validate(&in)
	if err != nil {
		return nil, err
	}
	a := assess(in)

	sex := in.Sex
	v := &Visit{
		PatientRefID: in.PatientRefID,
		BirthDate:    birth,
		Sex:          &sex,
		WeightKg:     f64(in.WeightKg),
		HeightCm:     f64(in.HeightCm),
		Systolic:     &in.Systolic,
		Diastolic:    &in.Diastolic,
		TemperatureC: f64(in.TemperatureC),
	}
	if len(a.Issues) == 0 {
		v.BMI = f64(a.BMI)
	}

	if err := s.visits.Create(ctx, v); err != nil {
		s.logger.Error().Err(err).Str("patient_ref_id", v.PatientRefID).Msg("visit not recorded")
		return nil, err
	}
	s.logger.Info().Int64("visit_id", v.ID).Str("patient_ref_id", v.PatientRefID).
		Float64("imc", a.BMI).Int("issues", len(a.Issues)).Msg("visit recorded")
	return &Submission{Visit: v, Assessment: a}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Visit, error) {
	return s.visits.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error) {
	if err := checkFilter(f); err != nil {
		return nil, 0, err
	}
	return s.visits.List(ctx, f, limit, offset)
}

func checkFilter(f Filter) error {
	if f.Sex != "" && !validSexes[Sex(f.Sex)] {
		return apierr.Invalid("sexe", "must be one of Homme, Femme, Autre")
	}
	return nil
}

func (s *Service) load(ctx context.Context, f Filter) ([]*Visit, error) {
	if err := checkFilter(f); err != nil {
		return nil, err
	}
	visits, err := s.visits.LoadAll(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Msg("load visits")
		return nil, err
	}
	return visits, nil
}

// Overview counts the visits per sex.
func (s *Service) Overview(ctx context.Context, f Filter) (*Overview, error) {
	visits, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	bySex := lo.CountValuesBy(visits, func(v *Visit) string {
		if v.Sex == nil {
			return ""
		}
		return *v.Sex
	})
	delete(bySex, "")
	return &Overview{
		Total: len(visits),
		Men:   bySex[string(SexMale)],
		Women: bySex[string(SexFemale)],
		BySex: bySex,
	}, nil
}

func lookup(field, key string) (stats.Variable[*Visit], error) {
	v, ok := Variables.Lookup(key)
	if !ok {
		return v, apierr.Invalid(field, "unknown variable %q (expected one of %s)", key, strings.Join(Variables.Keys(), ", "))
	}
	return v, nil
}

// Summarize describes the distribution of one measurement.
func (s *Service) Summarize(ctx context.Context, variable string, f Filter) (*stats.Distribution, error) {
	v, err := lookup("var", variable)
	if err != nil {
		return nil, err
	}
	visits, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	d := stats.Describe(v.Key, v.Label, v.Column(visits))
	return &d, nil
}

// Correlate relates two measurements.
func (s *Service) Correlate(ctx context.Context, x, y string, f Filter) (*stats.Relationship, error) {
	xv, err := lookup("x", x)
	if err != nil {
		return nil, err
	}
	yv, err := lookup("y", y)
	if err != nil {
		return nil, err
	}
	visits, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	rel := stats.Relate(xv.Key, yv.Key, xv.Column(visits), yv.Column(visits))
	return &rel, nil
}
