package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user row and one user_roles row per role. Run it inside
// a transaction so a failing role insert does not leave a role-less user.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, email, email_normalized, password_hash, first_name, last_name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, common.NormalizeEmail(user.Email), user.PasswordHash, user.FirstName, user.LastName,
	).Scan(&user.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	for _, role := range user.Roles {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, user.ID, role); err != nil {
			return nil, mapError(err)
		}
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.created_at,
		        COALESCE(string_agg(ur.role, ',' ORDER BY ur.role), '')
		 FROM users u
		 LEFT JOIN user_roles ur ON ur.user_id = u.id
		 WHERE u.email_normalized = $1
		 GROUP BY u.id
		 `

	user := &models.User{}
	var roles string
	err := r.db.QueryRowContext(ctx, query, common.NormalizeEmail(email)).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt, &roles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if roles != "" {
		user.Roles = strings.Split(roles, ",")
	}
	return user, nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}
