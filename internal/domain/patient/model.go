package patient

import (
	"time"

	"github.com/intake/intake/internal/calc"
	"github.com/intake/intake/internal/stats"
)

// Sex is the recorded sex of a patient.
type Sex string

const (
	SexMale   Sex = "Homme"
	SexFemale Sex = "Femme"
	SexOther  Sex = "Autre"
)

var validSexes = map[Sex]bool{SexMale: true, SexFemale: true, SexOther: true}

// Visit maps to the dossiers_patients table. Measurements are nullable
// because rows written before validation existed may lack them.
type Visit struct {
	ID           int64      `db:"id" json:"id"`
	PatientRefID string     `db:"patient_ref_id" json:"patient_ref_id"`
	BirthDate    *time.Time `db:"date_naissance" json:"date_naissance,omitempty"`
	Sex          *string    `db:"sexe" json:"sexe,omitempty"`
	WeightKg     *float64   `db:"poids_kg" json:"poids_kg,omitempty"`
	HeightCm     *float64   `db:"taille_cm" json:"taille_cm,omitempty"`
	Systolic     *int       `db:"tension_systolique" json:"tension_systolique,omitempty"`
	Diastolic    *int       `db:"tension_diastolique" json:"tension_diastolique,omitempty"`
	TemperatureC *float64   `db:"temperature_celsius" json:"temperature_celsius,omitempty"`
	BMI          *float64   `db:"imc" json:"imc,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// VisitInput is the nurse's intake form. BMI is never accepted from the
// client.
type VisitInput struct {
	PatientRefID string  `json:"patient_ref_id"`
	BirthDate    string  `json:"date_naissance"`
	Sex          string  `json:"sexe"`
	WeightKg     float64 `json:"poids_kg"`
	HeightCm     float64 `json:"taille_cm"`
	Systolic     int     `json:"tension_systolique"`
	Diastolic    int     `json:"tension_diastolique"`
	TemperatureC float64 `json:"temperature_celsius"`
}

// Filter narrows the visits read for listing and statistics.
type Filter struct {
	Sex string
}

// Assessment is the BMI feedback shown after a submission or preview.
type Assessment struct {
	BMI            float64             `json:"imc"`
	Category       calc.Category       `json:"imc_category"`
	Interpretation string              `json:"interpretation"`
	Issues         []calc.InvalidInput `json:"issues,omitempty"`
}

// Submission is the outcome of recording a visit.
type Submission struct {
	Visit *Visit `json:"visit"`
	Assessment
}

// Overview counts visits overall and per sex.
type Overview struct {
	Total int            `json:"total"`
	Men   int            `json:"men"`
	Women int            `json:"women"`
	BySex map[string]int `json:"by_sex"`
}

func f64(v float64) *float64 { return &v }

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	return f64(float64(*v))
}

// Variables lists the visit measurements available for analysis.
var Variables = stats.Catalog[*Visit]{
	{Key: "poids_kg", Label: "Poids (kg)", Unit: "kg", Value: func(v *Visit) *float64 { return v.WeightKg }},
	{Key: "taille_cm", Label: "Taille (cm)", Unit: "cm", Value: func(v *Visit) *float64 { return v.HeightCm }},
	{Key: "temperature_celsius", Label: "Température (°C)", Unit: "°C", Value: func(v *Visit) *float64 { return v.TemperatureC }},
	{Key: "tension_systolique", Label: "Tension Systolique (mmHg)", Unit: "mmHg", Value: func(v *Visit) *float64 { return intToFloat(v.Systolic) }},
	{Key: "tension_diastolique", Label: "Tension Diastolique (mmHg)", Unit: "mmHg", Value: func(v *Visit) *float64 { return intToFloat(v.Diastolic) }},
	{Key: "imc", Label: "IMC (Indice de Masse Corporelle)", Unit: "kg/m²", Value: func(v *Visit) *float64 { return v.BMI }},
}
