package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/passgate/internal/apperrors"
)

type RefreshLedger struct {
	DB DBTX
}

const useRefreshToken = `-- name: Use refresh token once
INSERT INTO used_refresh_tokens (token_id, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (token_id) DO NOTHING
`

// Use marks token as used
// Second use of the same token id returns apperrors.ErrRefreshTokenIsUsed and keeps first record untouched
func (r *RefreshLedger) Use(ctx context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error {
	tag, err := r.DB.Exec(ctx, useRefreshToken, tokenID, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenIsUsed)
	}

	return nil
}

const deleteExpiredRefreshTokens = `-- name: Delete expired used tokens
DELETE FROM used_refresh_tokens
WHERE expires_at < $1
`

func (r *RefreshLedger) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredRefreshTokens, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}
