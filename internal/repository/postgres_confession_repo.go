package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kudos/internal/model"
)

// PostgresConfessionRepo はPostgreSQLを使用した告白リポジトリ。
type PostgresConfessionRepo struct {
	db *sql.DB
}

// NewPostgresConfessionRepo はPostgresConfessionRepoを生成する。
func NewPostgresConfessionRepo(db *sql.DB) *PostgresConfessionRepo {
	return &PostgresConfessionRepo{db: db}
}

// Create は告白を作成する。
func (r *PostgresConfessionRepo) Create(ctx context.Context, c *model.Confession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO confessions (id, author_id, message, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.AuthorID, c.Message, c.CreatedAt, c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert confession: %w", err)
	}
	return nil
}

// ListActive はnow時点で失効していない告白を新しい順にlimit件返す。
// 作成者IDは返さず、閲覧者本人のものかどうかのみを返す。
func (r *PostgresConfessionRepo) ListActive(ctx context.Context, viewerID string, now time.Time, limit int) ([]model.Confession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, message, created_at, expires_at, author_id = $1
		 FROM confessions
		 WHERE expires_at > $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		viewerID, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list confessions: %w", err)
	}
	defer rows.Close()

	var confessions []model.Confession
	for rows.Next() {
		var c model.Confession
		if err := rows.Scan(&c.ID, &c.Message, &c.CreatedAt, &c.ExpiresAt, &c.IsOwn); err != nil {
			return nil, fmt.Errorf("failed to scan confession: %w", err)
		}
		confessions = append(confessions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate confessions: %w", err)
	}
	return confessions, nil
}

// compile-time interface check
var _ ConfessionRepository = (*PostgresConfessionRepo)(nil)
