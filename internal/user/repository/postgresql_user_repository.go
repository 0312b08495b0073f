// Package repository implements data persistence for user entities.
//
// Provides PostgreSQL and MySQL implementations with transaction support via
// database.GetTx(). PostgreSQL uses native UUID types, MySQL stores UUIDs as
// CHAR(36).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/crystallogic/accounts/internal/database"
	apperrors "github.com/crystallogic/accounts/internal/errors"
	"github.com/crystallogic/accounts/internal/user/domain"
)

// PostgreSQLUserRepository implements user persistence for PostgreSQL.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQL user repository.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}

const pgUserColumns = `id, username, email, first_name, last_name, password, is_active, is_admin, created_at, updated_at`

// Create inserts a new user.
func (p *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO users (id, username, email, first_name, last_name, password, is_active, is_admin, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password,
		user.IsActive,
		user.IsAdmin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by ID.
func (p *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgUserColumns + ` FROM users WHERE id = $1`

	return p.scanUser(querier.QueryRowContext(ctx, query, id), "failed to get user by id")
}

// GetByUsername retrieves a user by username.
func (p *PostgreSQLUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgUserColumns + ` FROM users WHERE username = $1`

	return p.scanUser(querier.QueryRowContext(ctx, query, username), "failed to get user by username")
}

// GetByEmail retrieves a user by email.
func (p *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgUserColumns + ` FROM users WHERE email = $1`

	return p.scanUser(querier.QueryRowContext(ctx, query, email), "failed to get user by email")
}

// List retrieves users ordered by ID descending (newest first) with
// pagination. Returns an empty slice when no users match.
func (p *PostgreSQLUserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgUserColumns + `
			  FROM users
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list users")
	}
	defer func() {
		_ = rows.Close()
	}()

	users := make([]*domain.User, 0)
	for rows.Next() {
		var user domain.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.FirstName,
			&user.LastName,
			&user.Password,
			&user.IsActive,
			&user.IsAdmin,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan user")
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate users")
	}

	return users, nil
}

// Update modifies an existing user.
func (p *PostgreSQLUserRepository) Update(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE users
			  SET email = $1,
				  first_name = $2,
				  last_name = $3,
				  password = $4,
				  is_active = $5,
				  is_admin = $6,
				  updated_at = NOW()
			  WHERE id = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password,
		user.IsActive,
		user.IsAdmin,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update user")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check updated rows")
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// Delete removes a user. Associated login IP links are removed by the
// ON DELETE CASCADE on user_public_ips.
func (p *PostgreSQLUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete user")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check deleted rows")
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// RecordLoginIP associates a source address with a user. Addresses are
// deduplicated globally and per user.
func (p *PostgreSQLUserRepository) RecordLoginIP(ctx context.Context, userID uuid.UUID, address string) error {
	querier := database.GetTx(ctx, p.db)

	var ipID int64
	query := `INSERT INTO public_ips (address, created_at)
			  VALUES ($1, NOW())
			  ON CONFLICT (address) DO UPDATE SET address = EXCLUDED.address
			  RETURNING id`
	if err := querier.QueryRowContext(ctx, query, address).Scan(&ipID); err != nil {
		return apperrors.Wrap(err, "failed to upsert public ip")
	}

	query = `INSERT INTO user_public_ips (user_id, public_ip_id, created_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT DO NOTHING`
	if _, err := querier.ExecContext(ctx, query, userID, ipID); err != nil {
		return apperrors.Wrap(err, "failed to link public ip to user")
	}

	return nil
}

// ListIPs returns the addresses recorded for a user, newest first.
func (p *PostgreSQLUserRepository) ListIPs(ctx context.Context, userID uuid.UUID) ([]*domain.PublicIP, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT pi.id, pi.address, pi.created_at
			  FROM public_ips pi
			  JOIN user_public_ips upi ON upi.public_ip_id = pi.id
			  WHERE upi.user_id = $1
			  ORDER BY pi.id DESC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list user ips")
	}
	defer func() {
		_ = rows.Close()
	}()

	ips := make([]*domain.PublicIP, 0)
	for rows.Next() {
		var ip domain.PublicIP
		if err := rows.Scan(&ip.ID, &ip.Address, &ip.CreatedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan public ip")
		}
		ips = append(ips, &ip)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate public ips")
	}

	return ips, nil
}

func (p *PostgreSQLUserRepository) scanUser(row *sql.Row, wrapMsg string) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Password,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, wrapMsg)
	}
	return &user, nil
}

// isUniqueViolation checks if the error is a unique constraint violation.
// Works for both PostgreSQL ("duplicate key value violates unique
// constraint") and MySQL ("Duplicate entry ... for key") error strings.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate entry")
}
