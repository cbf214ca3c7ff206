// Package auth はパスワード認証、セッション管理、認証状態の制御を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/repository"
)

// ProviderError はユーザーに表示してよい認証プロバイダのエラー。
// それ以外のエラーは内部エラーとして扱う。
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

var (
	// ErrInvalidLogin はメールアドレスまたはパスワードが一致しない場合のエラー。
	ErrInvalidLogin = &ProviderError{Message: "Invalid login credentials"}
	// ErrUserAlreadyRegistered は既に登録済みのメールアドレスでサインアップした場合のエラー。
	ErrUserAlreadyRegistered = &ProviderError{Message: "User already registered"}
	// ErrInvalidEmail はメールアドレスの形式が不正な場合のエラー。
	ErrInvalidEmail = &ProviderError{Message: "Unable to validate email address: invalid format"}
	// ErrPasswordTooShort はパスワードが最小長に満たない場合のエラー。
	ErrPasswordTooShort = &ProviderError{Message: "Password should be at least 6 characters."}
	// ErrMissingProfile はサインアップ時にプロフィール項目が不足している場合のエラー。
	ErrMissingProfile = &ProviderError{Message: "Full name and organization are required."}
	// ErrInvalidToken は確認・リセット用トークンが無効な場合のエラー。
	ErrInvalidToken = errors.New("token is invalid or expired")
)

const minProviderPasswordLength = 6

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int    // セッション有効期間（秒）
	BaseURL       string // メール内リンクの生成に使用する
	TokenTTL      time.Duration
}

// Service はパスワード認証とセッションを管理する認証プロバイダ。
// 状態の変化はEventBusに発行する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokenRepo   repository.AuthTokenRepository
	hasher      PasswordHasher
	mailer      Mailer
	events      *EventBus
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokenRepo repository.AuthTokenRepository,
	hasher PasswordHasher,
	mailer Mailer,
	events *EventBus,
	config ServiceConfig,
) *Service {
	if config.TokenTTL == 0 {
		config.TokenTTL = time.Hour
	}
	if events == nil {
		events = NewEventBus()
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		hasher:      hasher,
		mailer:      mailer,
		events:      events,
		config:      config,
		now:         time.Now,
	}
}

// Events は認証イベントのバスを返す。
func (s *Service) Events() *EventBus {
	return s.events
}

// SignUp はアカウントとプロフィールを作成し、確認メールを送信する。
// 作成直後のアカウントはメール未確認のためサインインできない。
func (s *Service) SignUp(ctx context.Context, email, password string, meta model.ProfileMetadata) (*model.User, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return nil, ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < minProviderPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if strings.TrimSpace(meta.FullName) == "" || meta.OrganizationID == "" {
		return nil, ErrMissingProfile
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyRegistered
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &model.Profile{
		ID:             user.ID,
		Email:          email,
		FullName:       strings.TrimSpace(meta.FullName),
		OrganizationID: meta.OrganizationID,
		Position:       strings.TrimSpace(meta.Position),
	}
	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.sendTokenMail(ctx, user, model.TokenPurposeEmailConfirm,
		s.config.BaseURL+"/auth/confirm", "Confirm your email"); err != nil {
		// アカウントは作成済みのため、メール送信失敗はログのみ
		slog.Error("failed to send confirmation mail",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("user signed up", slog.String("user_id", user.ID))
	return user, nil
}

// SignInWithPassword はメールアドレスとパスワードで認証し、セッションを発行する。
// メール未確認のアカウントでもセッションは返す。確認状態の判定は呼び出し側が行う。
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidLogin
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidLogin
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.events.Publish(model.AuthEventSignedIn, session)
	return session, nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.events.Publish(model.AuthEventSignedOut, &model.Session{ID: sessionID})
	return nil
}

// GetSession は期限切れを含めてセッションを取得する。
// 見つからない場合はnilを返す。期限の判定は呼び出し側が行う。
func (s *Service) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindAnyByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// ResetPasswordForEmail はパスワードリセット用リンクをメール送信する。
// アカウントの有無はレスポンスから判別できない。
func (s *Service) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		slog.Info("password reset requested for unknown email")
		return nil
	}

	if redirectTo == "" {
		redirectTo = s.config.BaseURL + model.PathResetPassword
	}
	return s.sendTokenMail(ctx, user, model.TokenPurposePasswordReset, redirectTo, "Reset your password")
}

// ConfirmEmail はメール確認トークンを検証し、アカウントを確認済みにする。
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	t, err := s.tokenRepo.Consume(ctx, hashToken(token), model.TokenPurposeEmailConfirm, s.now())
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	if t == nil {
		return ErrInvalidToken
	}
	if err := s.userRepo.ConfirmEmail(ctx, t.UserID, s.now()); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	slog.Info("email confirmed", slog.String("user_id", t.UserID))
	return nil
}

// CompletePasswordReset はリセットトークンを検証してパスワードを更新する。
// 既存のセッションはすべて破棄する。
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	t, err := s.tokenRepo.Consume(ctx, hashToken(token), model.TokenPurposePasswordReset, s.now())
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	if t == nil {
		return ErrInvalidToken
	}
	if err := s.UpdatePassword(ctx, t.UserID, newPassword); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, t.UserID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// UpdatePassword はパスワードを再ハッシュして保存する。
// パスワード強度の検証は呼び出し側が行う。
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.events.Publish(model.AuthEventUserUpdated, &model.Session{UserID: userID})
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:               sessionID,
		UserID:           user.ID,
		Email:            user.Email,
		EmailConfirmedAt: user.EmailConfirmedAt,
		ExpiresAt:        now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:        now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// sendTokenMail はトークンを発行し、リンク付きのメールを送信する。
func (s *Service) sendTokenMail(ctx context.Context, user *model.User, purpose, link, subject string) error {
	token, hash, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.tokenRepo.Create(ctx, &model.AuthToken{
		TokenHash: hash,
		UserID:    user.ID,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.config.TokenTTL),
	}); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid link: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return s.mailer.Send(ctx, user.Email, subject, u.String())
}
