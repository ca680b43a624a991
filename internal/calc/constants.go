package calc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Constants holds the fixed coefficients used by the concrete calculators.
// The structural ones (modulus, productivity, shape factors) are simplified
// approximations, not validated structural-engineering values.
type Constants struct {
	// Unit prices, €/kg for materials and €/m³ for labor.
	CementPrice float64 `yaml:"cement_price_eur_kg"`
	SandPrice   float64 `yaml:"sand_price_eur_kg"`
	GravelPrice float64 `yaml:"gravel_price_eur_kg"`
	LaborPrice  float64 `yaml:"labor_price_eur_m3"`

	ElasticModulusMPa float64 `yaml:"elastic_modulus_mpa"`
	PoissonRatio      float64 `yaml:"poisson_ratio"`

	// Productivity is the cubic metres of concrete placed per day.
	Productivity float64 `yaml:"productivity_m3_per_day"`

	RectangularShapeFactor float64 `yaml:"rectangular_shape_factor"`
	OtherShapeFactor       float64 `yaml:"other_shape_factor"`
	IrregularCorrection    float64 `yaml:"irregular_correction"`

	// NoStressMargin is the safety margin reported when no stress is applied.
	NoStressMargin float64 `yaml:"no_stress_margin"`
}

// DefaultConstants returns the coefficients the costing tool ships with.
func DefaultConstants() Constants {
	return Constants{
		CementPrice:            0.15,
		SandPrice:              0.05,
		GravelPrice:            0.04,
		LaborPrice:             80,
		ElasticModulusMPa:      30000,
		PoissonRatio:           0.2,
		Productivity:           2.5,
		RectangularShapeFactor: 0.85,
		OtherShapeFactor:       0.75,
		IrregularCorrection:    0.8,
		NoStressMargin:         999,
	}
}

// LoadConstants reads a YAML override file on top of DefaultConstants. Keys
// absent from the file keep their default value.
func LoadConstants(path string) (Constants, error) {
	c := DefaultConstants()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading constants file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing constants YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects coefficients that would make a derived field meaningless.
func (c Constants) Validate() error {
	if c.ElasticModulusMPa <= 0 {
		return fmt.Errorf("elastic_modulus_mpa must be positive, got %g", c.ElasticModulusMPa)
	}
	if c.Productivity <= 0 {
		return fmt.Errorf("productivity_m3_per_day must be positive, got %g", c.Productivity)
	}
	for name, v := range map[string]float64{
		"cement_price_eur_kg":      c.CementPrice,
		"sand_price_eur_kg":        c.SandPrice,
		"gravel_price_eur_kg":      c.GravelPrice,
		"labor_price_eur_m3":       c.LaborPrice,
		"rectangular_shape_factor": c.RectangularShapeFactor,
		"other_shape_factor":       c.OtherShapeFactor,
		"irregular_correction":     c.IrregularCorrection,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %g", name, v)
		}
	}
	return nil
}
