package calc

import "math"

// Shape is the plan shape of a concrete structure.
type Shape string

const (
	ShapeRectangular Shape = "Rectangulaire"
	ShapeCircular    Shape = "Circulaire"
	ShapeTrapezoidal Shape = "Trapézoïdale"
	ShapeIrregular   Shape = "Irregulière"
)

// Structure types that get the lighter building-scale element sizing.
var buildingStructures = map[string]bool{
	"Bâtiment":  true,
	"Fondation": true,
}

// ProjectInput is the set of user-supplied fields the concrete derived
// fields depend on. Dimensions are metres, loads kN, strength MPa and
// dosages kg/m³.
type ProjectInput struct {
	StructureType string
	Shape         Shape

	Length    float64
	Width     float64
	Height    float64
	Thickness float64

	StaticLoad  float64
	DynamicLoad float64
	WindLoad    float64
	SnowLoad    float64
	SeismicLoad float64

	StrengthMPa       float64
	SafetyCoefficient float64

	CementDosage float64
	WaterDosage  float64
	SandDosage   float64
	GravelDosage float64
}

// ProjectDerived holds every field computed from a ProjectInput, rounded to
// the precision of its storage column.
type ProjectDerived struct {
	VolumeM3 float64 `json:"volume_beton_m3"`

	CementKg float64 `json:"quantite_ciment_kg"`
	WaterKg  float64 `json:"quantite_eau_kg"`
	SandKg   float64 `json:"quantite_sable_kg"`
	GravelKg float64 `json:"quantite_gravier_kg"`

	CementCost    float64 `json:"cout_ciment_eur"`
	SandCost      float64 `json:"cout_sable_eur"`
	GravelCost    float64 `json:"cout_gravier_eur"`
	LaborCost     float64 `json:"cout_main_oeuvre_eur"`
	MaterialsCost float64 `json:"cout_materiaux_eur"`
	TotalCost     float64 `json:"cout_total_eur"`

	TotalLoadKN  float64 `json:"charge_totale_kn"`
	StressMPa    float64 `json:"contrainte_mpa"`
	SafetyMargin float64 `json:"marge_securite"`

	DurationDays int `json:"duree_projet_jours"`

	BeamWidth     float64 `json:"largeur_poutre_m"`
	BeamHeight    float64 `json:"hauteur_poutre_m"`
	ColumnWidth   float64 `json:"largeur_colonne_m"`
	SlabThickness float64 `json:"epaisseur_dalle_m"`

	StructuralResistanceMPa float64 `json:"resistance_structure_mpa"`
	Deformation             float64 `json:"deformation"`
	DisplacementMM          float64 `json:"deplacement_mm"`
}

// Volume returns the concrete volume in m³ for a shape. Unknown shapes are
// treated as irregular. Negative dimensions yield 0 and an InvalidInput.
func Volume(shape Shape, length, width, thickness float64, k Constants) (float64, []InvalidInput) {
	var issues []InvalidInput
	for _, d := range []struct {
		field string
		v     float64
	}{{"longueur_m", length}, {"largeur_m", width}, {"epaisseur_m", thickness}} {
		if d.v < 0 {
			issues = append(issues, InvalidInput{Field: d.field, Value: d.v, Reason: "dimension must not be negative", Fallback: "volume=0"})
		}
	}
	if len(issues) > 0 {
		return 0, issues
	}

	switch shape {
	case ShapeRectangular:
		return length * width * thickness, nil
	case ShapeCircular:
		r := length / 2
		return math.Pi * r * r * thickness, nil
	case ShapeTrapezoidal:
		return ((length + width) / 2) * width * thickness, nil
	default:
		return length * width * thickness * k.IrregularCorrection, nil
	}
}

// ComputeProject derives quantities, costs, loads, safety and structural
// estimates from a project's inputs. It never fails: zero or negative
// denominators are replaced by their fallback and reported as InvalidInput.
func ComputeProject(in ProjectInput, k Constants) (ProjectDerived, []InvalidInput) {
	volume, issues := Volume(in.Shape, in.Length, in.Width, in.Thickness, k)

	cement := volume * in.CementDosage
	water := volume * in.WaterDosage
	sand := volume * in.SandDosage
	gravel := volume * in.GravelDosage

	load := in.StaticLoad + in.DynamicLoad + in.WindLoad + in.SnowLoad + in.SeismicLoad

	// kN over m² converted to MPa.
	var stress float64
	area := in.Length * in.Width
	if area > 0 {
		stress = (load * 1000) / (area * 1e6)
	} else {
		issues = append(issues, InvalidInput{Field: "surface_m2", Value: area, Reason: "plan area must be positive", Fallback: "contrainte_mpa=0"})
	}

	margin := k.NoStressMargin
	if stress > 0 {
		margin = in.StrengthMPa / stress
	}

	cementCost := cement * k.CementPrice
	sandCost := sand * k.SandPrice
	gravelCost := gravel * k.GravelPrice
	laborCost := volume * k.LaborPrice
	materials := cementCost + sandCost + gravelCost

	days := 1
	if k.Productivity > 0 {
		days = max(1, int(math.Ceil(volume/k.Productivity)))
	}

	beamW, beamH, colW := elementSizes(in.StructureType, in.Thickness)

	shapeFactor := k.OtherShapeFactor
	if in.Shape == ShapeRectangular {
		shapeFactor = k.RectangularShapeFactor
	}
	var resistance float64
	if in.SafetyCoefficient > 0 {
		resistance = in.StrengthMPa * shapeFactor * (1 / in.SafetyCoefficient)
	} else {
		issues = append(issues, InvalidInput{Field: "coefficient_securite", Value: in.SafetyCoefficient, Reason: "safety coefficient must be positive", Fallback: "resistance_structure_mpa=0"})
	}

	var deformation, displacement float64
	if stress > 0 && k.ElasticModulusMPa > 0 {
		deformation = stress / k.ElasticModulusMPa
		displacement = deformation * max(in.Length, in.Width, in.Height) * 1000
	}

	return ProjectDerived{
		VolumeM3:                Round(volume, 3),
		CementKg:                Round(cement, 2),
		WaterKg:                 Round(water, 2),
		SandKg:                  Round(sand, 2),
		GravelKg:                Round(gravel, 2),
		CementCost:              Round(cementCost, 2),
		SandCost:                Round(sandCost, 2),
		GravelCost:              Round(gravelCost, 2),
		LaborCost:               Round(laborCost, 2),
		MaterialsCost:           Round(materials, 2),
		TotalCost:               Round(materials+laborCost, 2),
		TotalLoadKN:             Round(load, 2),
		StressMPa:               Round(stress, 2),
		SafetyMargin:            Round(margin, 2),
		DurationDays:            days,
		BeamWidth:               Round(beamW, 2),
		BeamHeight:              Round(beamH, 2),
		ColumnWidth:             Round(colW, 2),
		SlabThickness:           Round(in.Thickness, 2),
		StructuralResistanceMPa: Round(resistance, 2),
		Deformation:             Round(deformation, 6),
		DisplacementMM:          Round(displacement, 2),
	}, issues
}

// elementSizes estimates beam width, beam height and square column width
// from the slab thickness. Buildings and foundations use lighter minimums
// than bridges, dams and other civil works.
func elementSizes(structureType string, thickness float64) (beamW, beamH, colW float64) {
	if buildingStructures[structureType] {
		return max(0.2, thickness*1.5), max(0.3, thickness*2), max(0.3, thickness*1.5)
	}
	return max(0.3, thickness*2), max(0.5, thickness*3), max(0.4, thickness*2)
}

// Verdict compares a safety margin with the required safety coefficient.
type Verdict string

const (
	VerdictAcceptable   Verdict = "acceptable"
	VerdictInsufficient Verdict = "insufficient"
)

// SafetyVerdict reports whether margin meets the required coefficient.
func SafetyVerdict(margin, coefficient float64) Verdict {
	if margin < coefficient {
		return VerdictInsufficient
	}
	return VerdictAcceptable
}
