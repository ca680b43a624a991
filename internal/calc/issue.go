package calc

import "fmt"

// InvalidInput records a value the calculators could not use as given. The
// dependent field has already been replaced by its fallback when an
// InvalidInput is returned; it is informational, never a failure.
type InvalidInput struct {
	Field    string  `json:"field"`
	Value    float64 `json:"value"`
	Reason   string  `json:"reason"`
	Fallback string  `json:"fallback"`
}

func (i InvalidInput) Error() string {
	return fmt.Sprintf("invalid input %s=%g: %s (using %s)", i.Field, i.Value, i.Reason, i.Fallback)
}
