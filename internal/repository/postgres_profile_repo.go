package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/kudos/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
// プロフィールはusersテーブルの一部とorganizationsの結合で構成される。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は組織を結合したプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p := &model.Profile{Organization: &model.Organization{}}
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.full_name, u.avatar_url, u.organization_id, u.position, u.is_admin, u.created_at,
		        o.id, o.name, o.short_code, o.color, o.created_at
		 FROM users u
		 JOIN organizations o ON o.id = u.organization_id
		 WHERE u.id = $1`,
		id,
	).Scan(
		&p.ID, &p.Email, &p.FullName, &avatar, &p.OrganizationID, &p.Position, &p.IsAdmin, &p.CreatedAt,
		&p.Organization.ID, &p.Organization.Name, &p.Organization.ShortCode, &p.Organization.Color, &p.Organization.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	p.AvatarURL = nullStringPtr(avatar)
	return p, nil
}

// Update は氏名と役職を更新する。
func (r *PostgresProfileRepo) Update(ctx context.Context, id, fullName, position string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = $2, position = $3, updated_at = now() WHERE id = $1`,
		id, fullName, position,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireOneRow(result, "profile", id)
}

// UpdateAvatarURL はアバター画像URLを更新する。空文字の場合はNULLにする。
func (r *PostgresProfileRepo) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_url = NULLIF($2, ''), updated_at = now() WHERE id = $1`,
		id, avatarURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return requireOneRow(result, "profile", id)
}

// ListSummaries はユーザー概要の一覧を氏名順で返す。
func (r *PostgresProfileRepo) ListSummaries(ctx context.Context, orgID, excludeUserID string) ([]model.UserSummary, error) {
	var (
		conds []string
		args  []any
	)
	if orgID != "" {
		args = append(args, orgID)
		conds = append(conds, fmt.Sprintf("u.organization_id = $%d", len(args)))
	}
	if excludeUserID != "" {
		args = append(args, excludeUserID)
		conds = append(conds, fmt.Sprintf("u.id <> $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.full_name, u.position, u.avatar_url, o.id, o.name, o.short_code, o.color
		 FROM users u
		 JOIN organizations o ON o.id = u.organization_id
		 `+where+`
		 ORDER BY u.full_name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.UserSummary
	for rows.Next() {
		u := model.UserSummary{Organization: &model.Organization{}}
		var avatar sql.NullString
		if err := rows.Scan(
			&u.ID, &u.FullName, &u.Position, &avatar,
			&u.Organization.ID, &u.Organization.Name, &u.Organization.ShortCode, &u.Organization.Color,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.AvatarURL = nullStringPtr(avatar)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
