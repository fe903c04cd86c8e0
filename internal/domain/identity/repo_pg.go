package identity

import (
	"context"
	"errors"

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

const userCols = `user_id, name, email, location, budget, password_hash, created_at`

func (r *repoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Location, &u.Budget,
		&u.PasswordHash, &u.CreatedAt)
	return &u, err
}

func (r *repoPG) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (user_id, name, email, location, budget, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Email, u.Location, u.Budget, u.PasswordHash)
	return err
}

func (r *repoPG) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *repoPG) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE user_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

const sessionCols = `session_id, user_id, start_time, end_time, goal, status`

func (r *repoPG) scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.StartTime, &s.EndTime, &s.Goal, &s.Status)
	return &s, err
}

func (r *repoPG) CreateSession(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO user_sessions (session_id, user_id, goal, status)
		VALUES ($1,$2,$3,$4)`,
		s.ID, s.UserID, s.Goal, s.Status)
	return err
}

func (r *repoPG) GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := r.scanSession(r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM user_sessions WHERE session_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *repoPG) EndSession(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE user_sessions SET end_time = now(), status = $2 WHERE session_id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
