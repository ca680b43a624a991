package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/intake/intake/internal/calc"
	"github.com/intake/intake/internal/platform/db"
)

const visitTable = "dossiers_patients"

// visitColumns is the decode schema. Legacy tables may lack imc and
// created_at.
var visitColumns = []db.ColumnSpec{
	{Name: "id"},
	{Name: "patient_ref_id"},
	{Name: "date_naissance"},
	{Name: "sexe"},
	{Name: "poids_kg"},
	{Name: "taille_cm"},
	{Name: "tension_systolique"},
	{Name: "tension_diastolique"},
	{Name: "temperature_celsius"},
	{Name: "imc", Fallback: "NULL::numeric"},
	{Name: "created_at", Fallback: "NULL::timestamptz"},
}

type visitRepoPG struct {
	q       db.Querier
	timeout time.Duration
}

// NewVisitRepoPG returns a VisitRepository over q. Every call is bounded by
// timeout.
func NewVisitRepoPG(q db.Querier, timeout time.Duration) VisitRepository {
	return &visitRepoPG{q: q, timeout: timeout}
}

func (r *visitRepoPG) columns(ctx context.Context) (db.ColumnSet, string, error) {
	set, err := db.Columns(ctx, r.q, visitTable)
	if err != nil {
		return nil, "", err
	}
	sel, err := db.SelectList(visitTable, set, visitColumns)
	return set, sel, err
}

func (r *visitRepoPG) scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	var createdAt *time.Time
	var ref *string
	err := row.Scan(&v.ID, &ref, &v.BirthDate, &v.Sex, &v.WeightKg, &v.HeightCm,
		&v.Systolic, &v.Diastolic, &v.TemperatureC, &v.BMI, &createdAt)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		v.PatientRefID = *ref
	}
	if createdAt != nil {
		v.CreatedAt = *createdAt
	}
	fillBMI(&v)
	return &v, nil
}

// fillBMI recomputes a missing BMI from the stored weight and height.
func fillBMI(v *Visit) {
	if v.BMI != nil || v.WeightKg == nil || v.HeightCm == nil {
		return
	}
	if bmi, issues := calc.BMI(*v.WeightKg, *v.HeightCm); len(issues) == 0 {
		v.BMI = &bmi
	}
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	set, err := db.Columns(ctx, r.q, visitTable)
	if err != nil {
		return err
	}

	cols := []string{"patient_ref_id", "date_naissance", "sexe", "poids_kg", "taille_cm",
		"tension_systolique", "tension_diastolique", "temperature_celsius"}
	args := []interface{}{v.PatientRefID, v.BirthDate, v.Sex, v.WeightKg, v.HeightCm,
		v.Systolic, v.Diastolic, v.TemperatureC}
	if set.Has("imc") {
		cols = append(cols, "imc")
		args = append(args, v.BMI)
	}
	returning := "id, NULL::timestamptz"
	if set.Has("created_at") {
		returning = "id, created_at"
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		visitTable, strings.Join(cols, ", "), strings.Join(placeholders, ","), returning)

	var createdAt *time.Time
	if err := r.q.QueryRow(ctx, query, args...).Scan(&v.ID, &createdAt); err != nil {
		return db.Fail("insert visit", err)
	}
	if createdAt != nil {
		v.CreatedAt = *createdAt
	}
	return nil
}

func (r *visitRepoPG) GetByID(ctx context.Context, id int64) (*Visit, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, sel, err := r.columns(ctx)
	if err != nil {
		return nil, err
	}
	v, err := r.scanVisit(r.q.QueryRow(ctx, `SELECT `+sel+` FROM `+visitTable+` WHERE id = $1`, id))
	if err != nil {
		return nil, db.Fail("get visit", err)
	}
	return v, nil
}

func visitWhere(f Filter) (string, []interface{}) {
	if f.Sex == "" {
		return "", nil
	}
	return " WHERE sexe = $1", []interface{}{f.Sex}
}

func visitOrder(set db.ColumnSet) string {
	if set.Has("created_at") {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY id DESC"
}

func (r *visitRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	set, sel, err := r.columns(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := visitWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM `+visitTable+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Fail("count visits", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d`, sel, visitTable, where, visitOrder(set), n+1, n+2)
	items, err := r.query(ctx, "list visits", query, append(args, limit, offset)...)
	return items, total, err
}

func (r *visitRepoPG) LoadAll(ctx context.Context, f Filter) ([]*Visit, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, sel, err := r.columns(ctx)
	if err != nil {
		return nil, err
	}
	where, args := visitWhere(f)
	return r.query(ctx, "load visits", `SELECT `+sel+` FROM `+visitTable+where+` ORDER BY id`, args...)
}

func (r *visitRepoPG) query(ctx context.Context, op, sql string, args ...interface{}) ([]*Visit, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Fail(op, err)
	}
	defer rows.Close()

	var items []*Visit
	for rows.Next() {
		v, err := r.scanVisit(rows)
		if err != nil {
			return nil, db.Fail(op, err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Fail(op, err)
	}
	return items, nil
}
