package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rent-tracking/internal/domain"

	"go.uber.org/zap"
)

const userTokenableType = "App\\Models\\User"

var ErrTokenNotFound = errors.New("token not found")

type PersonalAccessTokenRepository struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPersonalAccessTokenRepository(db *sql.DB, log *zap.Logger) *PersonalAccessTokenRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &PersonalAccessTokenRepository{db: db, log: log}
}

// splitPlainToken parses the "<id>|<secret>" form issued by the platform; a bare secret has no id.
func splitPlainToken(plainToken string) (*int64, string) {
	idx := strings.Index(plainToken, "|")
	if idx <= 0 {
		return nil, plainToken
	}

	id, err := strconv.ParseInt(plainToken[:idx], 10, 64)
	if err != nil {
		return nil, plainToken[idx+1:]
	}
	return &id, plainToken[idx+1:]
}

func hashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("%x", sum)
}

func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, errors.New("empty token")
	}

	tokenID, secret := splitPlainToken(plainToken)
	hash := hashToken(secret)
	now := time.Now()

	var pat domain.PersonalAccessToken

	if tokenID != nil {
		query := `
			SELECT id, token, tokenable_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE id = $1
			  AND tokenable_type = $2
			  AND (expires_at IS NULL OR expires_at > $3)
		`

		err := r.db.QueryRowContext(ctx, query, *tokenID, userTokenableType, now).Scan(
			&pat.ID,
			&pat.TokenHash,
			&pat.UserID,
			&pat.Abilities,
			&pat.ExpiresAt,
		)
		switch {
		case err == nil && pat.TokenHash == hash:
			return &pat, nil
		case err == nil:
			r.log.Debug("token hash mismatch", zap.Int64("token_id", pat.ID))
		case !errors.Is(err, sql.ErrNoRows):
			r.log.Warn("token lookup by id failed", zap.Int64("token_id", *tokenID), zap.Error(err))
		}
	}

	query := `
		SELECT id, token, tokenable_id, abilities, expires_at
		FROM personal_access_tokens
		WHERE tokenable_type = $1
		  AND token = $2
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userTokenableType, hash, now).Scan(
		&pat.ID,
		&pat.TokenHash,
		&pat.UserID,
		&pat.Abilities,
		&pat.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("token lookup: %w", err)
	}

	if err := r.touch(ctx, pat.ID, now); err != nil {
		r.log.Warn("token last_used_at update failed", zap.Int64("token_id", pat.ID), zap.Error(err))
	}

	return &pat, nil
}

func (r *PersonalAccessTokenRepository) touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE personal_access_tokens SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}
