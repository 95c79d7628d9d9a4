package database

import (
	"context"
	"errors"
	"time"

	"chmura-plikow/internal/models"

	"github.com/jackc/pgx/v5"
)

type CreateShareTokenParams struct {
	Token     string
	ItemType  string
	ItemID    string
	ExpiresAt *time.Time
}

func (q *Queries) CreateShareToken(ctx context.Context, arg CreateShareTokenParams) (*models.ShareToken, error) {
	query := `
		INSERT INTO share_tokens (token, item_type, item_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING token, item_type, item_id, created_at, expires_at
	`
	row := q.db.QueryRow(ctx, query, arg.Token, arg.ItemType, arg.ItemID, arg.ExpiresAt)

	var token models.ShareToken
	err := row.Scan(
		&token.Token,
		&token.ItemType,
		&token.ItemID,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &token, nil
}

func (q *Queries) GetShareToken(ctx context.Context, tokenValue string) (*models.ShareToken, error) {
	query := `
		SELECT token, item_type, item_id, created_at, expires_at
		FROM share_tokens
		WHERE token = $1
	`
	var token models.ShareToken
	err := q.db.QueryRow(ctx, query, tokenValue).Scan(
		&token.Token,
		&token.ItemType,
		&token.ItemID,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &token, nil
}

// DeleteShareTokensForItem sprząta tokeny po trwałym usunięciu elementu.
func (q *Queries) DeleteShareTokensForItem(ctx context.Context, itemType string, itemID string) error {
	query := `DELETE FROM share_tokens WHERE item_type = $1 AND item_id = $2`
	_, err := q.db.Exec(ctx, query, itemType, itemID)
	return err
}
