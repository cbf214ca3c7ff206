package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kudos/internal/model"
)

// PostgresDraftRepo はPostgreSQLを使用したプロフィール下書きリポジトリ。
type PostgresDraftRepo struct {
	db *sql.DB
}

// NewPostgresDraftRepo はPostgresDraftRepoを生成する。
func NewPostgresDraftRepo(db *sql.DB) *PostgresDraftRepo {
	return &PostgresDraftRepo{db: db}
}

// Save は下書きを保存する。同じキーが存在する場合は上書きする。
func (r *PostgresDraftRepo) Save(ctx context.Context, userID, key string, payload []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profile_drafts (user_id, key, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, key) DO UPDATE SET payload = EXCLUDED.payload, created_at = now()`,
		userID, key, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile draft: %w", err)
	}
	return nil
}

// PostgresAuthTokenRepo はPostgreSQLを使用した認証トークンリポジトリ。
type PostgresAuthTokenRepo struct {
	db *sql.DB
}

// NewPostgresAuthTokenRepo はPostgresAuthTokenRepoを生成する。
func NewPostgresAuthTokenRepo(db *sql.DB) *PostgresAuthTokenRepo {
	return &PostgresAuthTokenRepo{db: db}
}

// Create はトークンを作成する。
func (r *PostgresAuthTokenRepo) Create(ctx context.Context, token *model.AuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (token_hash, user_id, purpose, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		token.TokenHash, token.UserID, token.Purpose, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auth token: %w", err)
	}
	return nil
}

// Consume は未使用かつ有効期限内のトークンを使用済みにして返す。
// 単一のUPDATE文で行うため同じトークンを二重に使用できない。
func (r *PostgresAuthTokenRepo) Consume(ctx context.Context, tokenHash, purpose string, now time.Time) (*model.AuthToken, error) {
	token := &model.AuthToken{}
	var usedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`UPDATE auth_tokens SET used_at = $3
		 WHERE token_hash = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > $3
		 RETURNING token_hash, user_id, purpose, expires_at, used_at`,
		tokenHash, purpose, now,
	).Scan(&token.TokenHash, &token.UserID, &token.Purpose, &token.ExpiresAt, &usedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume auth token: %w", err)
	}
	token.UsedAt = &usedAt
	return token, nil
}

// compile-time interface checks
var (
	_ DraftRepository     = (*PostgresDraftRepo)(nil)
	_ AuthTokenRepository = (*PostgresAuthTokenRepo)(nil)
)
