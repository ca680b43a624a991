package concrete

import (
	"fmt"
	"time"

	"github.com/intake/intake/internal/calc"
	"github.com/intake/intake/internal/stats"
)

// StatusDesign is the status of every newly recorded project.
const StatusDesign = "En conception"

// StructureTypes are the accepted type_structure values.
var StructureTypes = []string{
	"Bâtiment", "Pont", "Route", "Barrage", "Fondation", "Mur de soutènement", "Autre",
}

// ConcreteTypes are the accepted type_beton values.
var ConcreteTypes = []string{
	"Ordinaire", "Haute résistance", "Ultra-haute résistance",
	"Béton léger", "Béton armé", "Béton précontraint",
}

// Shapes are the accepted forme_structure values.
var Shapes = []calc.Shape{
	calc.ShapeRectangular, calc.ShapeCircular, calc.ShapeTrapezoidal, calc.ShapeIrregular,
}

// Derived holds the computed columns of a project. They are nullable because
// legacy tables may lack some of them.
type Derived struct {
	VolumeM3 *float64 `db:"volume_beton_m3" json:"volume_beton_m3"`

	CementKg *float64 `db:"quantite_ciment_kg" json:"quantite_ciment_kg"`
	WaterKg  *float64 `db:"quantite_eau_kg" json:"quantite_eau_kg"`
	SandKg   *float64 `db:"quantite_sable_kg" json:"quantite_sable_kg"`
	GravelKg *float64 `db:"quantite_gravier_kg" json:"quantite_gravier_kg"`

	CementCost    *float64 `db:"cout_ciment_eur" json:"cout_ciment_eur"`
	SandCost      *float64 `db:"cout_sable_eur" json:"cout_sable_eur"`
	GravelCost    *float64 `db:"cout_gravier_eur" json:"cout_gravier_eur"`
	LaborCost     *float64 `db:"cout_main_oeuvre_eur" json:"cout_main_oeuvre_eur"`
	MaterialsCost *float64 `db:"cout_materiaux_eur" json:"cout_materiaux_eur"`
	TotalCost     *float64 `db:"cout_total_eur" json:"cout_total_eur"`

	TotalLoadKN  *float64 `db:"charge_totale_kn" json:"charge_totale_kn"`
	StressMPa    *float64 `db:"contrainte_mpa" json:"contrainte_mpa"`
	SafetyMargin *float64 `db:"marge_securite" json:"marge_securite"`

	DurationDays *int `db:"duree_projet_jours" json:"duree_projet_jours"`

	BeamWidth     *float64 `db:"largeur_poutre_m" json:"largeur_poutre_m"`
	BeamHeight    *float64 `db:"hauteur_poutre_m" json:"hauteur_poutre_m"`
	ColumnWidth   *float64 `db:"largeur_colonne_m" json:"largeur_colonne_m"`
	SlabThickness *float64 `db:"epaisseur_dalle_m" json:"epaisseur_dalle_m"`

	StructuralResistanceMPa *float64 `db:"resistance_structure_mpa" json:"resistance_structure_mpa"`
	Deformation             *float64 `db:"deformation" json:"deformation"`
	DisplacementMM          *float64 `db:"deplacement_mm" json:"deplacement_mm"`
}

func derivedFrom(d calc.ProjectDerived) Derived {
	days := d.DurationDays
	return Derived{
		VolumeM3:                f64(d.VolumeM3),
		CementKg:                f64(d.CementKg),
		WaterKg:                 f64(d.WaterKg),
		SandKg:                  f64(d.SandKg),
		GravelKg:                f64(d.GravelKg),
		CementCost:              f64(d.CementCost),
		SandCost:                f64(d.SandCost),
		GravelCost:              f64(d.GravelCost),
		LaborCost:               f64(d.LaborCost),
		MaterialsCost:           f64(d.MaterialsCost),
		TotalCost:               f64(d.TotalCost),
		TotalLoadKN:             f64(d.TotalLoadKN),
		StressMPa:               f64(d.StressMPa),
		SafetyMargin:            f64(d.SafetyMargin),
		DurationDays:            &days,
		BeamWidth:               f64(d.BeamWidth),
		BeamHeight:              f64(d.BeamHeight),
		ColumnWidth:             f64(d.ColumnWidth),
		SlabThickness:           f64(d.SlabThickness),
		StructuralResistanceMPa: f64(d.StructuralResistanceMPa),
		Deformation:             f64(d.Deformation),
		DisplacementMM:          f64(d.DisplacementMM),
	}
}

// Project maps to the projets_beton table. When the table has no id column,
// ID is the row's position by nom_projet.
type Project struct {
	ID            int64      `db:"id" json:"id"`
	Name          string     `db:"nom_projet" json:"nom_projet"`
	CreatedAt     *time.Time `db:"date_creation" json:"date_creation,omitempty"`
	StructureType *string    `db:"type_structure" json:"type_structure"`
	Shape         *string    `db:"forme_structure" json:"forme_structure"`

	Length    *float64 `db:"longueur_m" json:"longueur_m"`
	Width     *float64 `db:"largeur_m" json:"largeur_m"`
	Height    *float64 `db:"hauteur_m" json:"hauteur_m"`
	Thickness *float64 `db:"epaisseur_m" json:"epaisseur_m"`

	StaticLoad  *float64 `db:"charge_statique_kn" json:"charge_statique_kn"`
	DynamicLoad *float64 `db:"charge_dynamique_kn" json:"charge_dynamique_kn"`
	WindLoad    *float64 `db:"charge_vent_kn" json:"charge_vent_kn"`
	SnowLoad    *float64 `db:"charge_neige_kn" json:"charge_neige_kn"`
	SeismicLoad *float64 `db:"charge_seisme_kn" json:"charge_seisme_kn"`

	ConcreteType      *string  `db:"type_beton" json:"type_beton"`
	StrengthMPa       *float64 `db:"resistance_mpa" json:"resistance_mpa"`
	CementDosage      *float64 `db:"dosage_ciment_kg_m3" json:"dosage_ciment_kg_m3"`
	WaterDosage       *float64 `db:"dosage_eau_kg_m3" json:"dosage_eau_kg_m3"`
	SandDosage        *float64 `db:"dosage_sable_kg_m3" json:"dosage_sable_kg_m3"`
	GravelDosage      *float64 `db:"dosage_gravier_kg_m3" json:"dosage_gravier_kg_m3"`
	SafetyCoefficient *float64 `db:"coefficient_securite" json:"coefficient_securite"`

	Derived

	Notes  *string `db:"notes" json:"notes,omitempty"`
	Status string  `db:"statut" json:"statut"`

	// Verdict is computed on read, never stored.
	Verdict calc.Verdict `db:"-" json:"verdict_securite,omitempty"`
}

// verdict compares the stored margin with the required coefficient, or
// returns "" when either is unknown.
func (p *Project) verdict() calc.Verdict {
	if p.SafetyMargin == nil || p.SafetyCoefficient == nil {
		return ""
	}
	return calc.SafetyVerdict(*p.SafetyMargin, *p.SafetyCoefficient)
}

// ProjectInput is the engineer's design form. Derived fields and the status
// are never accepted from the client.
type ProjectInput struct {
	Name          string `json:"nom_projet"`
	StructureType string `json:"type_structure"`
	Shape         string `json:"forme_structure"`

	Length    float64 `json:"longueur_m"`
	Width     float64 `json:"largeur_m"`
	Height    float64 `json:"hauteur_m"`
	Thickness float64 `json:"epaisseur_m"`

	StaticLoad  float64 `json:"charge_statique_kn"`
	DynamicLoad float64 `json:"charge_dynamique_kn"`
	WindLoad    float64 `json:"charge_vent_kn"`
	SnowLoad    float64 `json:"charge_neige_kn"`
	SeismicLoad float64 `json:"charge_seisme_kn"`

	ConcreteType      string  `json:"type_beton"`
	StrengthMPa       float64 `json:"resistance_mpa"`
	SafetyCoefficient float64 `json:"coefficient_securite"`

	CementDosage float64 `json:"dosage_ciment_kg_m3"`
	WaterDosage  float64 `json:"dosage_eau_kg_m3"`
	SandDosage   float64 `json:"dosage_sable_kg_m3"`
	GravelDosage float64 `json:"dosage_gravier_kg_m3"`

	Notes string `json:"notes"`
}

func (in ProjectInput) toCalc() calc.ProjectInput {
	return calc.ProjectInput{
		StructureType:     in.StructureType,
		Shape:             calc.Shape(in.Shape),
		Length:            in.Length,
		Width:             in.Width,
		Height:            in.Height,
		Thickness:         in.Thickness,
		StaticLoad:        in.StaticLoad,
		DynamicLoad:       in.DynamicLoad,
		WindLoad:          in.WindLoad,
		SnowLoad:          in.SnowLoad,
		SeismicLoad:       in.SeismicLoad,
		StrengthMPa:       in.StrengthMPa,
		SafetyCoefficient: in.SafetyCoefficient,
		CementDosage:      in.CementDosage,
		WaterDosage:       in.WaterDosage,
		SandDosage:        in.SandDosage,
		GravelDosage:      in.GravelDosage,
	}
}

// Filter narrows the projects read for consultation and analytics.
type Filter struct {
	StructureType string
}

// Assessment is the computed design shown after a submission or preview.
type Assessment struct {
	Derived calc.ProjectDerived `json:"calculs"`
	Verdict calc.Verdict        `json:"verdict_securite"`
	Issues  []calc.InvalidInput `json:"issues,omitempty"`
}

// Submission is the outcome of recording a project.
type Submission struct {
	Project *Project `json:"project"`
	Assessment
}

// Summary is one line of the consultation list.
type Summary struct {
	ID            int64      `json:"id"`
	Name          string     `json:"nom_projet"`
	StructureType *string    `json:"type_structure"`
	CreatedAt     *time.Time `json:"date_creation,omitempty"`
	VolumeM3      *float64   `json:"volume_beton_m3"`
	TotalCost     *float64   `json:"cout_total_eur"`
	Label         string     `json:"label"`
}

// label renders "name (type) - 12.5m³ - 4300€ - 02/01/2024", leaving out
// the date when unknown.
func (s Summary) label() string {
	typ := "N/A"
	if s.StructureType != nil {
		typ = *s.StructureType
	}
	l := fmt.Sprintf("%s (%s) - %.1fm³ - %.0f€", s.Name, typ, deref(s.VolumeM3), deref(s.TotalCost))
	if s.CreatedAt != nil {
		l += " - " + s.CreatedAt.Format("02/01/2006")
	}
	return l
}

// Overview aggregates the projects matching a filter.
type Overview struct {
	Count           int      `json:"count"`
	TotalVolumeM3   float64  `json:"total_volume_m3"`
	TotalCostEUR    float64  `json:"total_cost_eur"`
	MeanStrengthMPa *float64 `json:"mean_resistance_mpa"`
}

func f64(v float64) *float64 { return &v }

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Variables lists the project attributes available for analysis.
var Variables = stats.Catalog[*Project]{
	{Key: "volume_beton_m3", Label: "Volume Béton (m³)", Unit: "m³", Value: func(p *Project) *float64 { return p.VolumeM3 }},
	{Key: "resistance_mpa", Label: "Résistance (MPa)", Unit: "MPa", Value: func(p *Project) *float64 { return p.StrengthMPa }},
	{Key: "charge_totale_kn", Label: "Charge Totale (kN)", Unit: "kN", Value: func(p *Project) *float64 { return p.TotalLoadKN }},
	{Key: "cout_total_eur", Label: "Coût Total (€)", Unit: "€", Value: func(p *Project) *float64 { return p.TotalCost }},
	{Key: "marge_securite", Label: "Marge de Sécurité", Value: func(p *Project) *float64 { return p.SafetyMargin }},
	{Key: "longueur_m", Label: "Longueur (m)", Unit: "m", Value: func(p *Project) *float64 { return p.Length }},
	{Key: "largeur_m", Label: "Largeur (m)", Unit: "m", Value: func(p *Project) *float64 { return p.Width }},
	{Key: "hauteur_m", Label: "Hauteur (m)", Unit: "m", Value: func(p *Project) *float64 { return p.Height }},
	{Key: "epaisseur_m", Label: "Épaisseur (m)", Unit: "m", Value: func(p *Project) *float64 { return p.Thickness }},
}
