package model

import "time"

// Organization は社内の組織（部署）を表す。マイグレーションで投入される参照データ。
type Organization struct {
	ID        string
	Name      string
	ShortCode string
	Color     string
	CreatedAt time.Time
}

// User は認証情報を含むアカウントを表す。
// PasswordHashはリポジトリ層と認証サービスの外に出さない。
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile は組織情報を結合したユーザープロフィールを表す。
type Profile struct {
	ID             string
	Email          string
	FullName       string
	AvatarURL      *string
	OrganizationID string
	Position       string
	IsAdmin        bool
	CreatedAt      time.Time
	Organization   *Organization
}

// ProfileMetadata はサインアップ時に送信されるプロフィール項目。
type ProfileMetadata struct {
	FullName       string `json:"full_name"`
	OrganizationID string `json:"organization_id"`
	Position       string `json:"position"`
}

// ProfileDraftKey はサインアップ時に保存する下書きのキー。
const ProfileDraftKey = "user_profile_draft"

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID               string
	UserID           string
	Email            string
	EmailConfirmedAt *time.Time
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// Expired はnow時点でセッションが失効しているかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// 認証トークンの用途
const (
	TokenPurposeEmailConfirm  = "email_confirm"
	TokenPurposePasswordReset = "password_reset"
)

// AuthToken はメール確認・パスワードリセット用の一時トークンを表す。
// 平文トークンはメールでのみ送り、DBにはハッシュだけを保存する。
type AuthToken struct {
	TokenHash string
	UserID    string
	Purpose   string
	ExpiresAt time.Time
	UsedAt    *time.Time
}
