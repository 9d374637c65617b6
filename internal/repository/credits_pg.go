package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/solscope/phoenixscope/internal/pkg/logger"
)

// PostgresCreditRepo gates queries on a per-user prepaid credit counter.
type PostgresCreditRepo struct {
	db *sqlx.DB
}

func NewPostgresCreditRepo(db *sqlx.DB) *PostgresCreditRepo {
	repo := &PostgresCreditRepo{db: db}
	if err := repo.ensureSchema(context.Background()); err != nil {
		logger.Error("failed to ensure user_credits schema", "error", err)
	}
	return repo
}

// Debit atomically takes one credit from the user. The conditional
// update is a single statement, so concurrent requests cannot drive the
// counter negative. Returns false when the user is unknown or has no
// credits left.
func (r *PostgresCreditRepo) Debit(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_credits SET credits = credits - 1
		WHERE user_id = $1 AND credits > 0
	`, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Credits reads the user's remaining balance. Missing users report zero.
func (r *PostgresCreditRepo) Credits(ctx context.Context, userID string) (int64, error) {
	var credits int64
	err := r.db.GetContext(ctx, &credits, `SELECT credits FROM user_credits WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}

// Grant adds credits for a user, creating the account on first grant.
// Operational surface for replenishment; not reachable from the query
// path.
func (r *PostgresCreditRepo) Grant(ctx context.Context, userID string, amount int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, credits) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET credits = user_credits.credits + EXCLUDED.credits
	`, userID, amount)
	return err
}

func (r *PostgresCreditRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_credits (
			user_id TEXT PRIMARY KEY,
			credits BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0)
		)
	`)
	return err
}
