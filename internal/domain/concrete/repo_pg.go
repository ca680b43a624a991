package concrete

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/intake/intake/internal/platform/db"
)

const projectTable = "projets_beton"

// projectColumns is the decode schema, in scan order. Legacy tables may lack
// the id, the creation date, the status and any derived column.
var projectColumns = []db.ColumnSpec{
	{Name: "id", Fallback: "ROW_NUMBER() OVER (ORDER BY nom_projet)"},
	{Name: "nom_projet"},
	{Name: "date_creation", Fallback: "NULL::timestamp"},
	{Name: "type_structure", Fallback: "NULL::varchar"},
	{Name: "forme_structure", Fallback: "NULL::varchar"},
	{Name: "longueur_m", Fallback: "NULL::numeric"},
	{Name: "largeur_m", Fallback: "NULL::numeric"},
	{Name: "hauteur_m", Fallback: "NULL::numeric"},
	{Name: "epaisseur_m", Fallback: "NULL::numeric"},
	{Name: "charge_statique_kn", Fallback: "NULL::numeric"},
	{Name: "charge_dynamique_kn", Fallback: "NULL::numeric"},
	{Name: "charge_vent_kn", Fallback: "NULL::numeric"},
	{Name: "charge_neige_kn", Fallback: "NULL::numeric"},
	{Name: "charge_seisme_kn", Fallback: "NULL::numeric"},
	{Name: "type_beton", Fallback: "NULL::varchar"},
	{Name: "resistance_mpa", Fallback: "NULL::numeric"},
	{Name: "dosage_ciment_kg_m3", Fallback: "NULL::numeric"},
	{Name: "dosage_eau_kg_m3", Fallback: "NULL::numeric"},
	{Name: "dosage_sable_kg_m3", Fallback: "NULL::numeric"},
	{Name: "dosage_gravier_kg_m3", Fallback: "NULL::numeric"},
	{Name: "coefficient_securite", Fallback: "NULL::numeric"},
	{Name: "volume_beton_m3", Fallback: "NULL::numeric"},
	{Name: "quantite_ciment_kg", Fallback: "NULL::numeric"},
	{Name: "quantite_eau_kg", Fallback: "NULL::numeric"},
	{Name: "quantite_sable_kg", Fallback: "NULL::numeric"},
	{Name: "quantite_gravier_kg", Fallback: "NULL::numeric"},
	{Name: "cout_ciment_eur", Fallback: "NULL::numeric"},
	{Name: "cout_sable_eur", Fallback: "NULL::numeric"},
	{Name: "cout_gravier_eur", Fallback: "NULL::numeric"},
	{Name: "cout_main_oeuvre_eur", Fallback: "NULL::numeric"},
	{Name: "cout_materiaux_eur", Fallback: "NULL::numeric"},
	{Name: "cout_total_eur", Fallback: "NULL::numeric"},
	{Name: "charge_totale_kn", Fallback: "NULL::numeric"},
	{Name: "contrainte_mpa", Fallback: "NULL::numeric"},
	{Name: "marge_securite", Fallback: "NULL::numeric"},
	{Name: "duree_projet_jours", Fallback: "NULL::integer"},
	{Name: "largeur_poutre_m", Fallback: "NULL::numeric"},
	{Name: "hauteur_poutre_m", Fallback: "NULL::numeric"},
	{Name: "largeur_colonne_m", Fallback: "NULL::numeric"},
	{Name: "epaisseur_dalle_m", Fallback: "NULL::numeric"},
	{Name: "resistance_structure_mpa", Fallback: "NULL::numeric"},
	{Name: "deformation", Fallback: "NULL::numeric"},
	{Name: "deplacement_mm", Fallback: "NULL::numeric"},
	{Name: "notes", Fallback: "NULL::text"},
	{Name: "statut", Fallback: "NULL::varchar"},
}

// fields returns the scan targets of p in projectColumns order, after id,
// name and status which scanProject handles.
func fields(p *Project) []any {
	return []any{
		&p.CreatedAt, &p.StructureType, &p.Shape,
		&p.Length, &p.Width, &p.Height, &p.Thickness,
		&p.StaticLoad, &p.DynamicLoad, &p.WindLoad, &p.SnowLoad, &p.SeismicLoad,
		&p.ConcreteType, &p.StrengthMPa,
		&p.CementDosage, &p.WaterDosage, &p.SandDosage, &p.GravelDosage,
		&p.SafetyCoefficient,
		&p.VolumeM3, &p.CementKg, &p.WaterKg, &p.SandKg, &p.GravelKg,
		&p.CementCost, &p.SandCost, &p.GravelCost, &p.LaborCost, &p.MaterialsCost, &p.TotalCost,
		&p.TotalLoadKN, &p.StressMPa, &p.SafetyMargin, &p.DurationDays,
		&p.BeamWidth, &p.BeamHeight, &p.ColumnWidth, &p.SlabThickness,
		&p.StructuralResistanceMPa, &p.Deformation, &p.DisplacementMM,
		&p.Notes,
	}
}

// insertValues pairs each writable column with its value.
func insertValues(p *Project) ([]string, []any) {
	cols := make([]string, 0, len(projectColumns))
	for _, c := range projectColumns[1:] {
		if c.Name != "date_creation" {
			cols = append(cols, c.Name)
		}
	}
	targets := fields(p)[1:]
	args := []any{p.Name}
	for _, t := range targets {
		args = append(args, deptr(t))
	}
	args = append(args, p.Status)
	return cols, args
}

// deptr turns a scan target (**T) back into the *T value to insert.
func deptr(target any) any {
	switch t := target.(type) {
	case **float64:
		return *t
	case **string:
		return *t
	case **int:
		return *t
	case **time.Time:
		return *t
	default:
		panic(fmt.Sprintf("concrete: unexpected field type %T", target))
	}
}

type projectRepoPG struct {
	q       db.Querier
	timeout time.Duration
}

// NewProjectRepoPG returns a ProjectRepository over q. Every call is bounded
// by timeout.
func NewProjectRepoPG(q db.Querier, timeout time.Duration) ProjectRepository {
	return &projectRepoPG{q: q, timeout: timeout}
}

// source returns the table's column set and a FROM clause exposing every
// projectColumns name. The row number fallback is computed over the whole
// table so it stays stable under filters.
func (r *projectRepoPG) source(ctx context.Context) (db.ColumnSet, string, error) {
	set, err := db.Columns(ctx, r.q, projectTable)
	if err != nil {
		return nil, "", err
	}
	sel, err := db.SelectList(projectTable, set, projectColumns)
	if err != nil {
		return nil, "", err
	}
	return set, `(SELECT ` + sel + ` FROM ` + projectTable + `) AS p`, nil
}

func projectOrder(set db.ColumnSet) string {
	if set.Has("date_creation") {
		return " ORDER BY date_creation DESC NULLS LAST, id DESC"
	}
	return " ORDER BY nom_projet ASC"
}

func projectWhere(f Filter) (string, []any) {
	if f.StructureType == "" {
		return "", nil
	}
	return " WHERE type_structure = $1", []any{f.StructureType}
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	var status *string
	dest := append([]any{&p.ID, &p.Name}, fields(&p)...)
	dest = append(dest, &status)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Status = StatusDesign
	if status != nil && *status != "" {
		p.Status = *status
	}
	return &p, nil
}

func (r *projectRepoPG) Create(ctx context.Context, p *Project) error {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	set, err := db.Columns(ctx, r.q, projectTable)
	if err != nil {
		return err
	}
	if _, err := db.SelectList(projectTable, set, projectColumns); err != nil {
		return err
	}

	allCols, allArgs := insertValues(p)
	var cols, placeholders []string
	var args []any
	for i, c := range allCols {
		if !set.Has(c) {
			continue
		}
		cols = append(cols, c)
		args = append(args, allArgs[i])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	returning := []string{"0::bigint", "NULL::timestamp"}
	if set.Has("id") {
		returning[0] = "id"
	}
	if set.Has("date_creation") {
		returning[1] = "date_creation"
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		projectTable, strings.Join(cols, ", "), strings.Join(placeholders, ","), strings.Join(returning, ", "))

	if err := r.q.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		return db.Fail("insert project", err)
	}
	return nil
}

func (r *projectRepoPG) Get(ctx context.Context, key string) (*Project, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	set, from, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	var arg any = key
	where := " WHERE nom_projet = $1"
	if id, perr := strconv.ParseInt(key, 10, 64); perr == nil {
		where, arg = " WHERE id = $1", id
	}
	p, err := scanProject(r.q.QueryRow(ctx, `SELECT * FROM `+from+where+projectOrder(set)+` LIMIT 1`, arg))
	if err != nil {
		return nil, db.Fail("get project", err)
	}
	return p, nil
}

func (r *projectRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Summary, int, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	set, from, err := r.source(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := projectWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM `+from+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Fail("count projects", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT id, nom_projet, type_structure, date_creation, volume_beton_m3, cout_total_eur
		FROM %s%s%s LIMIT $%d OFFSET $%d`, from, where, projectOrder(set), n+1, n+2)
	rows, err := r.q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.Fail("list projects", err)
	}
	defer rows.Close()

	var items []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.StructureType, &s.CreatedAt, &s.VolumeM3, &s.TotalCost); err != nil {
			return nil, 0, db.Fail("list projects", err)
		}
		s.Label = s.label()
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Fail("list projects", err)
	}
	return items, total, nil
}

func (r *projectRepoPG) LoadAll(ctx context.Context, f Filter) ([]*Project, error) {
	ctx, cancel := db.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, from, err := r.source(ctx)
	if err != nil {
		return nil, err
	}
	where, args := projectWhere(f)
	rows, err := r.q.Query(ctx, `SELECT * FROM `+from+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, db.Fail("load projects", err)
	}
	defer rows.Close()

	var items []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, db.Fail("load projects", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Fail("load projects", err)
	}
	return items, nil
}
