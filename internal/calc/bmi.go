package calc

import "math"

// Category is a body-mass index interpretation band.
type Category string

const (
	Underweight Category = "underweight"
	Normal      Category = "normal"
	Overweight  Category = "overweight"
	Obese       Category = "obese"
)

var categoryLabels = map[Category]string{
	Underweight: "Insuffisance pondérale",
	Normal:      "Poids normal",
	Overweight:  "Surpoids",
	Obese:       "Obésité",
}

// Label returns the display label shown next to a computed BMI.
func (c Category) Label() string {
	return categoryLabels[c]
}

// BMI returns weight / (height in metres)², rounded to 2 decimals. A
// non-positive weight or height yields 0 and an InvalidInput.
func BMI(weightKg, heightCm float64) (float64, []InvalidInput) {
	var issues []InvalidInput
	if heightCm <= 0 {
		issues = append(issues, InvalidInput{Field: "taille_cm", Value: heightCm, Reason: "height must be positive", Fallback: "imc=0"})
	}
	if weightKg <= 0 {
		issues = append(issues, InvalidInput{Field: "poids_kg", Value: weightKg, Reason: "weight must be positive", Fallback: "imc=0"})
	}
	if len(issues) > 0 {
		return 0, issues
	}
	m := heightCm / 100
	return Round(weightKg/(m*m), 2), nil
}

// BMICategory bands a BMI: < 18.5 underweight, < 25 normal, < 30 overweight,
// otherwise obese.
func BMICategory(bmi float64) Category {
	switch {
	case bmi < 18.5:
		return Underweight
	case bmi < 25:
		return Normal
	case bmi < 30:
		return Overweight
	default:
		return Obese
	}
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
