package db

import (
	"fmt"
	"strings"
)

// ColumnSpec is one entry of a SELECT list that tolerates legacy tables.
// When the column is absent Fallback is selected in its place; an empty
// Fallback marks the column as required.
type ColumnSpec struct {
	Name     string
	Fallback string
}

// SelectList renders specs against the columns the table actually has. It
// fails with a schema IOFailure when the table is absent or a required
// column is missing.
func SelectList(table string, set ColumnSet, specs []ColumnSpec) (string, error) {
	if len(set) == 0 {
		return "", &IOFailure{Op: "select " + table, Kind: KindSchema, Err: fmt.Errorf("table %s does not exist", table)}
	}

	var required []string
	parts := make([]string, 0, len(specs))
	for _, spec := range specs {
		switch {
		case set.Has(spec.Name):
			parts = append(parts, spec.Name)
		case spec.Fallback != "":
			parts = append(parts, spec.Fallback+" AS "+spec.Name)
		default:
			required = append(required, spec.Name)
		}
	}
	if missing := set.Missing(required); len(missing) > 0 {
		return "", &IOFailure{
			Op:   "select " + table,
			Kind: KindSchema,
			Err:  fmt.Errorf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}
	return strings.Join(parts, ", "), nil
}
