package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/crystallogic/accounts/internal/database"
	apperrors "github.com/crystallogic/accounts/internal/errors"
	"github.com/crystallogic/accounts/internal/user/domain"
)

// MySQLUserRepository implements user persistence for MySQL. UUIDs are
// stored as CHAR(36).
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQL user repository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

const mysqlUserColumns = `id, username, email, first_name, last_name, password, is_active, is_admin, created_at, updated_at`

// Create inserts a new user.
func (m *MySQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO users (id, username, email, first_name, last_name, password, is_active, is_admin, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID.String(),
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
func (m *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlUserColumns + ` FROM users WHERE id = ?`

	return m.scanUser(querier.QueryRowContext(ctx, query, id.String()), "failed to get user by id")
}

// GetByUsername retrieves a user by username.
func (m *MySQLUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlUserColumns + ` FROM users WHERE username = ?`

	return m.scanUser(querier.QueryRowContext(ctx, query, username), "failed to get user by username")
}

// GetByEmail retrieves a user by email.
func (m *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlUserColumns + ` FROM users WHERE email = ?`

	return m.scanUser(querier.QueryRowContext(ctx, query, email), "failed to get user by email")
}

// List retrieves users ordered by ID descending with pagination.
func (m *MySQLUserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlUserColumns + `
			  FROM users
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

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
		var rawID string
		err := rows.Scan(
			&rawID,
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
		user.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse user id")
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate users")
	}

	return users, nil
}

// Update modifies an existing user.
func (m *MySQLUserRepository) Update(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE users
			  SET email = ?,
				  first_name = ?,
				  last_name = ?,
				  password = ?,
				  is_active = ?,
				  is_admin = ?,
				  updated_at = NOW()
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password,
		user.IsActive,
		user.IsAdmin,
		user.ID.String(),
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

// Delete removes a user.
func (m *MySQLUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
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

// RecordLoginIP associates a source address with a user.
func (m *MySQLUserRepository) RecordLoginIP(ctx context.Context, userID uuid.UUID, address string) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO public_ips (address, created_at)
			  VALUES (?, NOW())
			  ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	result, err := querier.ExecContext(ctx, query, address)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert public ip")
	}
	ipID, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read public ip id")
	}

	query = `INSERT IGNORE INTO user_public_ips (user_id, public_ip_id, created_at)
			 VALUES (?, ?, NOW())`
	if _, err := querier.ExecContext(ctx, query, userID.String(), ipID); err != nil {
		return apperrors.Wrap(err, "failed to link public ip to user")
	}

	return nil
}

// ListIPs returns the addresses recorded for a user, newest first.
func (m *MySQLUserRepository) ListIPs(ctx context.Context, userID uuid.UUID) ([]*domain.PublicIP, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT pi.id, pi.address, pi.created_at
			  FROM public_ips pi
			  JOIN user_public_ips upi ON upi.public_ip_id = pi.id
			  WHERE upi.user_id = ?
			  ORDER BY pi.id DESC`

	rows, err := querier.QueryContext(ctx, query, userID.String())
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

func (m *MySQLUserRepository) scanUser(row *sql.Row, wrapMsg string) (*domain.User, error) {
	var user domain.User
	var rawID string
	err := row.Scan(
		&rawID,
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

	user.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse user id")
	}

	return &user, nil
}
