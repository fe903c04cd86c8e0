package recommendation

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

const planCols = `plan_id, profile_id, treatment_type, timeline, disclaimer, notes, raw_output, created_at`

func (r *repoPG) scanPlan(row pgx.Row) (*TreatmentPlan, error) {
	var p TreatmentPlan
	err := row.Scan(&p.ID, &p.ProfileID, &p.TreatmentType, &p.Timeline,
		&p.Disclaimer, &p.Notes, &p.RawOutput, &p.CreatedAt)
	return &p, err
}

func (r *repoPG) CreatePlan(ctx context.Context, p *TreatmentPlan) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_plans (plan_id, profile_id, treatment_type, timeline, disclaimer, notes, raw_output)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.ProfileID, p.TreatmentType, p.Timeline, p.Disclaimer, p.Notes, p.RawOutput)
	return err
}

func (r *repoPG) GetPlanByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return r.scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plans WHERE plan_id = $1`, id))
}

func (r *repoPG) ListPlansByProfile(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*TreatmentPlan, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM treatment_plans WHERE profile_id = $1`, profileID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+planCols+` FROM treatment_plans WHERE profile_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, profileID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TreatmentPlan
	for rows.Next() {
		p, err := r.scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

const recommendationCols = `recommendation_id, plan_id, hospital_id, priority_rank, reasoning, created_at`

func (r *repoPG) scanRecommendation(row pgx.Row) (*Recommendation, error) {
	var rec Recommendation
	err := row.Scan(&rec.ID, &rec.PlanID, &rec.HospitalID, &rec.PriorityRank,
		&rec.Reasoning, &rec.CreatedAt)
	return &rec, err
}

func (r *repoPG) CreateRecommendation(ctx context.Context, rec *Recommendation) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO recommendations (recommendation_id, plan_id, hospital_id, priority_rank, reasoning)
		VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, rec.PlanID, rec.HospitalID, rec.PriorityRank, rec.Reasoning)
	return err
}

func (r *repoPG) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Recommendation, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recommendationCols+` FROM recommendations WHERE plan_id = $1 ORDER BY priority_rank`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Recommendation
	for rows.Next() {
		rec, err := r.scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}
