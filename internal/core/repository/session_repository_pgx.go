package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangnd/tokengate/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool}
}

// Replace deletes every existing token owned by the user and inserts the new
// one. Both statements run in one transaction so a concurrent login for the
// same user never observes two live tokens.
func (r *PgxSessionRepository) Replace(ctx context.Context, userID int, token string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM api_tokens WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO api_tokens (token, user_id) VALUES ($1, $2)`, token, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetUserByToken looks up the token and returns the associated user data.
// Returns (nil, nil) when the token does not match any row.
func (r *PgxSessionRepository) GetUserByToken(ctx context.Context, token string) (*domain.SessionRow, error) {
	query := `
		SELECT u.id, u.name, u.email
		FROM api_tokens t
		JOIN users u ON t.user_id = u.id
		WHERE t.token = $1
	`

	var row domain.SessionRow
	err := r.pool.QueryRow(ctx, query, token).Scan(&row.UserID, &row.Name, &row.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// DeleteByToken revokes the given token. Returns false when no row matched.
func (r *PgxSessionRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM api_tokens WHERE token = $1`, token)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
