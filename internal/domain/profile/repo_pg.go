package profile

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

const profileCols = `profile_id, user_id, disease_type, cancer_type, stage, medical_history,
	surgery_allowed, age, gender, symptoms, patient_city, patient_area_type,
	created_at, updated_at`

func (r *repoPG) scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.UserID, &p.DiseaseType, &p.CancerType, &p.Stage,
		&p.MedicalHistory, &p.SurgeryAllowed, &p.Age, &p.Gender, &p.Symptoms,
		&p.PatientCity, &p.PatientAreaType, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Profile) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_profiles (profile_id, user_id, disease_type, cancer_type, stage,
			medical_history, surgery_allowed, age, gender, symptoms, patient_city, patient_area_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.UserID, p.DiseaseType, p.CancerType, p.Stage, p.MedicalHistory,
		p.SurgeryAllowed, p.Age, p.Gender, p.Symptoms, p.PatientCity, p.PatientAreaType)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM medical_profiles WHERE profile_id = $1`, id))
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_profiles WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+profileCols+` FROM medical_profiles WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Profile
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

const constraintCols = `constraint_id, profile_id, budget_limit, location_type, hospital_preference, created_at`

func (r *repoPG) scanConstraint(row pgx.Row) (*Constraint, error) {
	var c Constraint
	err := row.Scan(&c.ID, &c.ProfileID, &c.BudgetLimit, &c.LocationType,
		&c.HospitalPreference, &c.CreatedAt)
	return &c, err
}

func (r *repoPG) CreateConstraint(ctx context.Context, c *Constraint) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO constraints (constraint_id, profile_id, budget_limit, location_type, hospital_preference)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.ProfileID, c.BudgetLimit, c.LocationType, c.HospitalPreference)
	return err
}

func (r *repoPG) GetConstraintByProfile(ctx context.Context, profileID uuid.UUID) (*Constraint, error) {
	return r.scanConstraint(r.conn(ctx).QueryRow(ctx, `SELECT `+constraintCols+` FROM constraints WHERE profile_id = $1`, profileID))
}
