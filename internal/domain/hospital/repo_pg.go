package hospital

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careplan/careplan/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const hospitalCols = `hospital_id, name, type, location, city, state, contact, email,
	accreditation, rating, budget_category, accepts_insurance, specializations,
	summary, created_at, updated_at`

func (r *repoPG) scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Name, &h.Type, &h.Location, &h.City, &h.State,
		&h.Contact, &h.Email, &h.Accreditation, &h.Rating, &h.BudgetCategory,
		&h.AcceptsInsurance, &h.Specializations, &h.Summary,
		&h.CreatedAt, &h.UpdatedAt)
	return &h, err
}

// CreateIfAbsent inserts the hospital unless a row with the same id already
// exists. Seeding must never clobber operator edits, so conflicts are
// ignored rather than updated. Returns true when a row was inserted.
func (r *repoPG) CreateIfAbsent(ctx context.Context, h *Hospital) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hospitals (hospital_id, name, type, location, city, state, contact, email,
			accreditation, rating, budget_category, accepts_insurance, specializations, summary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (hospital_id) DO NOTHING`,
		h.ID, h.Name, h.Type, h.Location, h.City, h.State, h.Contact, h.Email,
		h.Accreditation, h.Rating, h.BudgetCategory, h.AcceptsInsurance,
		h.Specializations, h.Summary)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Hospital, error) {
	return r.scanHospital(r.conn(ctx).QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals WHERE hospital_id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, h *Hospital) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospitals SET name=$2, type=$3, location=$4, city=$5, state=$6, contact=$7,
			email=$8, accreditation=$9, rating=$10, budget_category=$11,
			accepts_insurance=$12, specializations=$13, summary=$14, updated_at=NOW()
		WHERE hospital_id = $1`,
		h.ID, h.Name, h.Type, h.Location, h.City, h.State, h.Contact, h.Email,
		h.Accreditation, h.Rating, h.BudgetCategory, h.AcceptsInsurance,
		h.Specializations, h.Summary)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM hospitals WHERE hospital_id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+hospitalCols+` FROM hospitals ORDER BY rating DESC, hospital_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Hospital
	for rows.Next() {
		h, err := r.scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Hospital, int, error) {
	query := `SELECT ` + hospitalCols + ` FROM hospitals WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM hospitals WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["type"]; ok {
		query += fmt.Sprintf(` AND type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND type = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["budget_category"]; ok {
		query += fmt.Sprintf(` AND budget_category = $%d`, idx)
		countQuery += fmt.Sprintf(` AND budget_category = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["city"]; ok {
		query += fmt.Sprintf(` AND LOWER(city) = LOWER($%d)`, idx)
		countQuery += fmt.Sprintf(` AND LOWER(city) = LOWER($%d)`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY rating DESC, hospital_id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Hospital
	for rows.Next() {
		h, err := r.scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, nil
}
