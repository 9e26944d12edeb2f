package refreshslots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// PostgresRepository stores slots in the refresh_slots table over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.RefreshSlot, error) {
	query := `
		SELECT current_token, current_expires_at, previous_token, previous_expires_at, updated_at
		FROM refresh_slots
		WHERE user_id = $1
	`
	slot := &models.RefreshSlot{UserID: userID}
	var prevToken sql.NullString
	var prevExpires sql.NullTime

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&slot.Current.Token, &slot.Current.ExpiresAt, &prevToken, &prevExpires, &slot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if prevToken.Valid && prevExpires.Valid {
		slot.Previous = &models.TokenRecord{Token: prevToken.String, ExpiresAt: prevExpires.Time}
	}
	return slot, nil
}

func (r *PostgresRepository) Create(ctx context.Context, slot *models.RefreshSlot) error {
	query := `
		INSERT INTO refresh_slots (user_id, current_token, current_expires_at, previous_token, previous_expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`
	prevToken, prevExpires := previousArgs(slot)
	res, err := r.db.ExecContext(ctx, query,
		slot.UserID, slot.Current.Token, slot.Current.ExpiresAt, prevToken, prevExpires, slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n == 0 {
		return common.ErrorAlreadyExists
	}
	return nil
}

func (r *PostgresRepository) CompareAndSwap(ctx context.Context, expectedCurrent string, slot *models.RefreshSlot) (bool, error) {
	query := `
		UPDATE refresh_slots
		SET current_token = $3, current_expires_at = $4, previous_token = $5, previous_expires_at = $6, updated_at = $7
		WHERE user_id = $1 AND current_token = $2
	`
	prevToken, prevExpires := previousArgs(slot)
	res, err := r.db.ExecContext(ctx, query,
		slot.UserID, expectedCurrent, slot.Current.Token, slot.Current.ExpiresAt, prevToken, prevExpires, slot.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return n == 1, nil
}

func previousArgs(slot *models.RefreshSlot) (sql.NullString, sql.NullTime) {
	if slot.Previous == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: slot.Previous.Token, Valid: true},
		sql.NullTime{Time: slot.Previous.ExpiresAt, Valid: true}
}
