package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kudos/internal/model"
)

// PostgresComplimentRepo はPostgreSQLを使用した褒め言葉リポジトリ。
// 読み取りは匿名性を保証するビュー経由でのみ行う。
type PostgresComplimentRepo struct {
	db *sql.DB
}

// NewPostgresComplimentRepo はPostgresComplimentRepoを生成する。
func NewPostgresComplimentRepo(db *sql.DB) *PostgresComplimentRepo {
	return &PostgresComplimentRepo{db: db}
}

// Create は褒め言葉を作成する。
func (r *PostgresComplimentRepo) Create(ctx context.Context, c *model.Compliment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO compliments (id, from_user_id, to_user_id, message, is_anonymous, is_moderated, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.FromUserID, c.ToUserID, c.Message, c.IsAnonymous, c.IsModerated, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert compliment: %w", err)
	}
	return nil
}

// ListSecure はsecure_complimentsビューから新しい順にlimit件を返す。
// 送信者はビューがIDを返した場合のみ結合される。
func (r *PostgresComplimentRepo) ListSecure(ctx context.Context, limit int) ([]model.FeedItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sc.id, sc.message, sc.is_anonymous, sc.created_at,
		        fu.id, fu.full_name, fu.position, fu.avatar_url, fo.id, fo.name, fo.short_code, fo.color,
		        tu.id, tu.full_name, tu.position, tu.avatar_url, tor.id, tor.name, tor.short_code, tor.color
		 FROM secure_compliments sc
		 LEFT JOIN users fu ON fu.id = sc.from_user_id
		 LEFT JOIN organizations fo ON fo.id = fu.organization_id
		 JOIN users tu ON tu.id = sc.to_user_id
		 JOIN organizations tor ON tor.id = tu.organization_id
		 ORDER BY sc.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliments: %w", err)
	}
	defer rows.Close()

	var items []model.FeedItem
	for rows.Next() {
		var (
			item                                  model.FeedItem
			fromID, fromName, fromPos, fromAvatar sql.NullString
			fromOrgID, fromOrgName, fromOrgCode   sql.NullString
			fromOrgColor, toAvatar                sql.NullString
		)
		to := model.UserSummary{Organization: &model.Organization{}}
		if err := rows.Scan(
			&item.ID, &item.Message, &item.IsAnonymous, &item.CreatedAt,
			&fromID, &fromName, &fromPos, &fromAvatar, &fromOrgID, &fromOrgName, &fromOrgCode, &fromOrgColor,
			&to.ID, &to.FullName, &to.Position, &toAvatar,
			&to.Organization.ID, &to.Organization.Name, &to.Organization.ShortCode, &to.Organization.Color,
		); err != nil {
			return nil, fmt.Errorf("failed to scan compliment: %w", err)
		}
		to.AvatarURL = nullStringPtr(toAvatar)
		item.ToUser = &to
		if fromID.Valid {
			item.FromUser = &model.UserSummary{
				ID:        fromID.String,
				FullName:  fromName.String,
				Position:  fromPos.String,
				AvatarURL: nullStringPtr(fromAvatar),
				Organization: &model.Organization{
					ID:        fromOrgID.String,
					Name:      fromOrgName.String,
					ShortCode: fromOrgCode.String,
					Color:     fromOrgColor.String,
				},
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compliments: %w", err)
	}
	return items, nil
}

// ReceivedSummary はpublic_compliments_viewから受信者ごとの件数と直近limit件を返す。
func (r *PostgresComplimentRepo) ReceivedSummary(ctx context.Context, toUserID string, since *time.Time, limit int) (*model.ReceivedSummary, error) {
	cond := ""
	args := []any{toUserID}
	if since != nil {
		args = append(args, *since)
		cond = " AND created_at >= $2"
	}

	summary := &model.ReceivedSummary{}
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM public_compliments_view WHERE to_user_id = $1`+cond,
		args...,
	).Scan(&summary.Count); err != nil {
		return nil, fmt.Errorf("failed to count compliments: %w", err)
	}

	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, message, is_anonymous, created_at,
		        from_user_id, from_user_name, from_user_position,
		        from_organization_id, from_organization_name, from_organization_short_code, from_organization_color
		 FROM public_compliments_view
		 WHERE to_user_id = $1%s
		 ORDER BY created_at DESC
		 LIMIT $%d`, cond, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list received compliments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rc                               model.ReceivedCompliment
			fromID, name, position           sql.NullString
			orgID, orgName, orgCode, orgColr sql.NullString
		)
		if err := rows.Scan(&rc.ID, &rc.Message, &rc.IsAnonymous, &rc.CreatedAt,
			&fromID, &name, &position, &orgID, &orgName, &orgCode, &orgColr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan received compliment: %w", err)
		}
		if fromID.Valid {
			rc.FromUser = &model.UserSummary{
				ID:       fromID.String,
				FullName: name.String,
				Position: position.String,
				Organization: &model.Organization{
					ID:        orgID.String,
					Name:      orgName.String,
					ShortCode: orgCode.String,
					Color:     orgColr.String,
				},
			}
		}
		summary.Recent = append(summary.Recent, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate received compliments: %w", err)
	}
	return summary, nil
}

// compile-time interface check
var _ ComplimentRepository = (*PostgresComplimentRepo)(nil)
