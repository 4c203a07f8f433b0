package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository backed by PostgreSQL.
// Uniqueness is enforced by database constraints; unique violations are
// translated to the package's duplicate sentinels by constraint name.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL account repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `
	a.id, a.username, a.email, a.password_hash, a.permissions,
	a.active, a.email_confirmed, a.token_epoch, a.last_login, a.created_at
`

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "accounts_username_key":
		return ErrDuplicateUsername
	case "accounts_email_key":
		return ErrDuplicateEmail
	case "social_links_provider_subject_id_key":
		return ErrDuplicateSocialLink
	}
	return err
}

func (r *PostgresRepository) scanAccount(ctx context.Context, row pgx.Row) (Account, error) {
	var acct Account
	var email *string
	err := row.Scan(
		&acct.ID,
		&acct.Username,
		&email,
		&acct.PasswordHash,
		&acct.Permissions,
		&acct.Active,
		&acct.EmailConfirmed,
		&acct.TokenEpoch,
		&acct.LastLogin,
		&acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	if email != nil {
		acct.Email = *email
	}

	links, err := r.loadSocialLinks(ctx, acct.ID)
	if err != nil {
		return Account{}, err
	}
	acct.SocialLinks = links

	return acct, nil
}

func (r *PostgresRepository) loadSocialLinks(ctx context.Context, id uuid.UUID) ([]SocialLink, error) {
	query := `
		SELECT provider, subject_id
		FROM social_links
		WHERE account_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []SocialLink
	for rows.Next() {
		var link SocialLink
		if err := rows.Scan(&link.Provider, &link.SubjectID); err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

// Get retrieves an account by ID
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE a.id = $1
	`

	return r.scanAccount(ctx, r.db.QueryRow(ctx, query, id))
}

// GetByUsername retrieves an account by username
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE a.username = $1
	`

	return r.scanAccount(ctx, r.db.QueryRow(ctx, query, username))
}

// GetByEmail retrieves an account by email
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE a.email = $1
	`

	return r.scanAccount(ctx, r.db.QueryRow(ctx, query, email))
}

// GetBySocial retrieves the account linked to (provider, subjectID)
func (r *PostgresRepository) GetBySocial(ctx context.Context, provider, subjectID string) (Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		JOIN social_links s ON s.account_id = a.id
		WHERE s.provider = $1
		AND s.subject_id = $2
	`

	return r.scanAccount(ctx, r.db.QueryRow(ctx, query, provider, subjectID))
}

// Create inserts a new account and, when present, its initial social link
// in one transaction
func (r *PostgresRepository) Create(ctx context.Context, params CreateParams) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO accounts (id, username, email, password_hash, permissions)
		VALUES ($1, $2, $3, $4, $5)
	`

	id := uuid.New()
	permissions := params.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	var email any
	if params.Email != "" {
		email = params.Email
	}
	if _, err := tx.Exec(ctx, query, id, params.Username, email, params.PasswordHash, permissions); err != nil {
		return uuid.Nil, mapUniqueViolation(err)
	}

	if params.SocialLink != nil {
		query := `
			INSERT INTO social_links (account_id, provider, subject_id)
			VALUES ($1, $2, $3)
		`

		if _, err := tx.Exec(ctx, query, id, params.SocialLink.Provider, params.SocialLink.SubjectID); err != nil {
			return uuid.Nil, mapUniqueViolation(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// UpdatePassword replaces the account's password hash
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	query := `
		UPDATE accounts
		SET password_hash = $2
		WHERE id = $1
	`

	return r.execOnAccount(ctx, query, id, passwordHash)
}

// UpdatePermissions replaces the account's permission set
func (r *PostgresRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions []string) error {
	query := `
		UPDATE accounts
		SET permissions = $2
		WHERE id = $1
	`

	if permissions == nil {
		permissions = []string{}
	}
	return r.execOnAccount(ctx, query, id, permissions)
}

// MarkEmailConfirmed marks the account's email as confirmed
func (r *PostgresRepository) MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET email_confirmed = TRUE
		WHERE id = $1
	`

	return r.execOnAccount(ctx, query, id)
}

// AddSocialLink attaches a social identity to the account
func (r *PostgresRepository) AddSocialLink(ctx context.Context, id uuid.UUID, link SocialLink) error {
	query := `
		INSERT INTO social_links (account_id, provider, subject_id)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.Exec(ctx, query, id, link.Provider, link.SubjectID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrAccountNotFound
		}
		return mapUniqueViolation(err)
	}
	return nil
}

// UpdateLastLogin records the current time as the account's last login
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET last_login = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`

	return r.execOnAccount(ctx, query, id)
}

// ToggleBlacklist flips the active flag and returns the new banned state
func (r *PostgresRepository) ToggleBlacklist(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE accounts
		SET active = NOT active
		WHERE id = $1
		RETURNING active
	`

	var active bool
	err := r.db.QueryRow(ctx, query, id).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrAccountNotFound
		}
		return false, err
	}
	return !active, nil
}

// ListBlacklisted returns all banned accounts ordered by username. Social
// links are not loaded for the listing.
func (r *PostgresRepository) ListBlacklisted(ctx context.Context) ([]Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE NOT a.active
		ORDER BY a.username
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acct Account
		var email *string
		err := rows.Scan(
			&acct.ID,
			&acct.Username,
			&email,
			&acct.PasswordHash,
			&acct.Permissions,
			&acct.Active,
			&acct.EmailConfirmed,
			&acct.TokenEpoch,
			&acct.LastLogin,
			&acct.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if email != nil {
			acct.Email = *email
		}
		accounts = append(accounts, acct)
	}

	return accounts, rows.Err()
}

// Kick increments the account's token epoch. The increment runs inside the
// UPDATE so concurrent kicks never lose a bump.
func (r *PostgresRepository) Kick(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET token_epoch = token_epoch + 1
		WHERE id = $1
	`

	return r.execOnAccount(ctx, query, id)
}

// GetBlackout returns the blackout window end, deleting an expired row
func (r *PostgresRepository) GetBlackout(ctx context.Context) (time.Time, error) {
	query := `
		SELECT blackout_until
		FROM admin_blackout
		WHERE singleton
	`

	var until time.Time
	err := r.db.QueryRow(ctx, query).Scan(&until)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrBlackoutNotSet
		}
		return time.Time{}, err
	}

	if time.Now().After(until) {
		if err := r.DeleteBlackout(ctx); err != nil {
			return time.Time{}, err
		}
		return time.Time{}, ErrBlackoutNotSet
	}

	return until, nil
}

// SetBlackout upserts the singleton blackout row
func (r *PostgresRepository) SetBlackout(ctx context.Context, until time.Time) error {
	query := `
		INSERT INTO admin_blackout (singleton, blackout_until)
		VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET blackout_until = EXCLUDED.blackout_until
	`

	_, err := r.db.Exec(ctx, query, until)
	return err
}

// DeleteBlackout clears the blackout window
func (r *PostgresRepository) DeleteBlackout(ctx context.Context) error {
	query := `
		DELETE FROM admin_blackout
		WHERE singleton
	`

	_, err := r.db.Exec(ctx, query)
	return err
}

func (r *PostgresRepository) execOnAccount(ctx context.Context, query string, id uuid.UUID, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
