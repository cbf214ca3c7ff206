// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/kudos/internal/model"
)

// OrganizationRepository は組織データの参照インターフェース。
type OrganizationRepository interface {
	// List は全組織を名前順で返す。
	List(ctx context.Context) ([]model.Organization, error)
}

// UserRepository は認証アカウントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字は区別しない。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithProfile はアカウントとプロフィールを同一行として作成する。
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error

	// UpdatePasswordHash はパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// ConfirmEmail はメール確認日時を設定する。
	ConfirmEmail(ctx context.Context, id string, at time.Time) error
}

// ProfileRepository はプロフィールの参照・更新インターフェース。
type ProfileRepository interface {
	// FindByID は組織を結合したプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Update は氏名と役職を更新する。
	Update(ctx context.Context, id, fullName, position string) error

	// UpdateAvatarURL はアバター画像URLを更新する。
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) error

	// ListSummaries はユーザー概要の一覧を返す。orgIDが空の場合は全組織を対象にする。
	// excludeUserIDが空でなければそのユーザーを除外する。
	ListSummaries(ctx context.Context, orgID, excludeUserID string) ([]model.UserSummary, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindAnyByID は期限切れを含めて指定IDのセッションを取得する。
	// ユーザーのメールアドレスと確認日時も合わせて返す。見つからない場合はnilを返す。
	FindAnyByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ComplimentRepository は褒め言葉の永続化インターフェース。
type ComplimentRepository interface {
	// Create は褒め言葉を作成する。
	Create(ctx context.Context, c *model.Compliment) error

	// ListSecure はsecure_complimentsビューから新しい順にlimit件を返す。
	ListSecure(ctx context.Context, limit int) ([]model.FeedItem, error)

	// ReceivedSummary はpublic_compliments_viewから受信者ごとの件数と直近limit件を返す。
	// sinceがnilの場合は期間で絞り込まない。
	ReceivedSummary(ctx context.Context, toUserID string, since *time.Time, limit int) (*model.ReceivedSummary, error)
}

// ConfessionRepository は告白の永続化インターフェース。
type ConfessionRepository interface {
	// Create は告白を作成する。
	Create(ctx context.Context, c *model.Confession) error

	// ListActive はnow時点で失効していない告白を新しい順にlimit件返す。
	// viewerIDが作成者の場合IsOwnをtrueにする。
	ListActive(ctx context.Context, viewerID string, now time.Time, limit int) ([]model.Confession, error)
}

// DraftRepository はプロフィール下書きの保存インターフェース。
type DraftRepository interface {
	// Save は下書きを保存する。同じキーが存在する場合は上書きする。
	Save(ctx context.Context, userID, key string, payload []byte) error
}

// AuthTokenRepository はメール確認・パスワードリセット用トークンの永続化インターフェース。
type AuthTokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.AuthToken) error

	// Consume は未使用かつ有効期限内のトークンを使用済みにして返す。
	// 該当するトークンがない場合はnilを返す。
	Consume(ctx context.Context, tokenHash, purpose string, now time.Time) (*model.AuthToken, error)
}
