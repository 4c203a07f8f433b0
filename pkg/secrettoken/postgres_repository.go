package secrettoken

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository backed by PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL token repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new token
func (r *PostgresRepository) Create(ctx context.Context, token Token) error {
	query := `
		INSERT INTO secret_tokens (id, account_id, kind, digest, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		token.ID, token.AccountID, string(token.Kind), token.Digest,
		token.ExpiresAt, token.CreatedAt)
	return err
}

// GetByDigest retrieves an unconsumed token by digest and kind
func (r *PostgresRepository) GetByDigest(ctx context.Context, digest string, kind Kind) (Token, error) {
	query := `
		SELECT id, account_id, kind, digest, expires_at, consumed_at, created_at
		FROM secret_tokens
		WHERE digest = $1
		AND kind = $2
		AND consumed_at IS NULL
	`

	var token Token
	err := r.db.QueryRow(ctx, query, digest, string(kind)).Scan(
		&token.ID,
		&token.AccountID,
		&token.Kind,
		&token.Digest,
		&token.ExpiresAt,
		&token.ConsumedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrTokenInvalid
		}
		return Token{}, err
	}

	return token, nil
}

// Consume marks a token consumed. The consumed_at guard makes the update a
// compare-and-set so concurrent redeemers cannot both succeed.
func (r *PostgresRepository) Consume(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE secret_tokens
		SET consumed_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
		AND consumed_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenInvalid
	}
	return nil
}

// DeleteByAccountAndKind removes all live tokens of one kind for an account
func (r *PostgresRepository) DeleteByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind Kind) error {
	query := `
		DELETE FROM secret_tokens
		WHERE account_id = $1
		AND kind = $2
		AND consumed_at IS NULL
	`

	_, err := r.db.Exec(ctx, query, accountID, string(kind))
	return err
}
