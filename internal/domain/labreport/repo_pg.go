package labreport

import (
	"context"

	"github.com/google/uuid"
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

const reportCols = `report_id, profile_id, report_type, report_date, report_data, created_at`

func (r *repoPG) scanReport(row pgx.Row) (*LabReport, error) {
	var lr LabReport
	err := row.Scan(&lr.ID, &lr.ProfileID, &lr.ReportType, &lr.ReportDate,
		&lr.ReportData, &lr.CreatedAt)
	return &lr, err
}

func (r *repoPG) Create(ctx context.Context, lr *LabReport) error {
	lr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_reports (report_id, profile_id, report_type, report_date, report_data)
		VALUES ($1,$2,$3,$4,$5)`,
		lr.ID, lr.ProfileID, lr.ReportType, lr.ReportDate, lr.ReportData)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabReport, error) {
	return r.scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM lab_reports WHERE report_id = $1`, id))
}

func (r *repoPG) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*LabReport, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reportCols+` FROM lab_reports WHERE profile_id = $1 ORDER BY created_at`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*LabReport
	for rows.Next() {
		lr, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lr)
	}
	return items, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_reports WHERE report_id = $1`, id)
	return err
}
