// Package user はユーザープロフィールのドメインロジックを提供する。
// プロフィールの取得・編集、パスワード変更、アバター設定、受け取った賞賛の集計を扱う。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/repository"
	"github.com/hitoshi/kudos/internal/security"
)

const (
	// minPasswordLength はプロフィール画面で変更するパスワードの最小長。
	minPasswordLength = 8
	// recentReceivedLimit はプロフィールに表示する受け取った賞賛の件数。
	recentReceivedLimit = 5
	// defaultAvatarCheckTimeout はアバターURL確認のHEADリクエストのタイムアウト。
	defaultAvatarCheckTimeout = 5 * time.Second
)

var (
	passwordSpecialChar = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	passwordDigit       = regexp.MustCompile(`\d`)
)

// PasswordUpdater はパスワードを更新するインターフェース。auth.Serviceが実装する。
type PasswordUpdater interface {
	UpdatePassword(ctx context.Context, userID, newPassword string) error
}

// ImageProber はURLが安全に取得できる画像かを確認するインターフェース。
type ImageProber interface {
	ValidateURL(rawURL string) error
	ProbeImage(ctx context.Context, rawURL string, timeout time.Duration) error
}

// Service はプロフィールのサービス層。
type Service struct {
	profileRepo        repository.ProfileRepository
	complimentRepo     repository.ComplimentRepository
	passwords          PasswordUpdater
	prober             ImageProber
	logger             *slog.Logger
	avatarCheckTimeout time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	complimentRepo repository.ComplimentRepository,
	passwords PasswordUpdater,
	prober ImageProber,
	logger *slog.Logger,
	avatarCheckTimeout time.Duration,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if avatarCheckTimeout <= 0 {
		avatarCheckTimeout = defaultAvatarCheckTimeout
	}
	return &Service{
		profileRepo:        profileRepo,
		complimentRepo:     complimentRepo,
		passwords:          passwords,
		prober:             prober,
		logger:             logger,
		avatarCheckTimeout: avatarCheckTimeout,
	}
}

// LoadProfile は組織を結合したプロフィールを返す。見つからない場合はnilを返す。
func (s *Service) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	return profile, nil
}

// UpdateProfile は氏名と役職を更新し、更新後のプロフィールを返す。
func (s *Service) UpdateProfile(ctx context.Context, userID, fullName, position string) (*model.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, model.NewValidationError("Full name is required.")
	}

	if err := s.profileRepo.Update(ctx, userID, fullName, strings.TrimSpace(position)); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	return s.reload(ctx, userID)
}

// ValidatePassword はパスワードが8文字以上で、数字と記号を含むかを判定する。
func ValidatePassword(password string) bool {
	return utf8.RuneCountInString(password) >= minPasswordLength &&
		passwordSpecialChar.MatchString(password) &&
		passwordDigit.MatchString(password)
}

// ChangePassword はパスワードを変更する。前後の空白は除いて検証・保存する。
func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if !ValidatePassword(newPassword) {
		return model.NewWeakPasswordError()
	}
	if err := s.passwords.UpdatePassword(ctx, userID, newPassword); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", userID))
	return nil
}

// UpdateAvatar はアバター画像URLを設定する。空文字の場合はアバターを外す。
// URLはSSRF防止の静的検証を通過し、HEADリクエストでimage/*を返す必要がある。
func (s *Service) UpdateAvatar(ctx context.Context, userID, avatarURL string) (*model.Profile, error) {
	avatarURL = strings.TrimSpace(avatarURL)

	if avatarURL != "" {
		if err := s.prober.ValidateURL(avatarURL); err != nil {
			if errors.Is(err, security.ErrBlocked) {
				return nil, model.NewSSRFBlockedError()
			}
			return nil, model.NewInvalidURLError(err.Error())
		}
		if err := s.prober.ProbeImage(ctx, avatarURL, s.avatarCheckTimeout); err != nil {
			s.logger.InfoContext(ctx, "avatar URL rejected",
				slog.String("user_id", userID),
				slog.String("reason", err.Error()),
			)
			switch {
			case errors.Is(err, security.ErrBlocked):
				return nil, model.NewSSRFBlockedError()
			case errors.Is(err, security.ErrNotImage):
				return nil, model.NewInvalidURLError("the URL does not point to an image")
			default:
				return nil, model.NewInvalidURLError("the image could not be reached")
			}
		}
	}

	if err := s.profileRepo.UpdateAvatarURL(ctx, userID, avatarURL); err != nil {
		return nil, fmt.Errorf("アバターの更新に失敗しました: %w", err)
	}
	return s.reload(ctx, userID)
}

// ReceivedCompliments は受け取った賞賛の総数と直近5件を返す。
// 取得に失敗した場合はログに記録し、0件を返す。
func (s *Service) ReceivedCompliments(ctx context.Context, userID string) *model.ReceivedSummary {
	summary, err := s.complimentRepo.ReceivedSummary(ctx, userID, nil, recentReceivedLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch received compliments",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return &model.ReceivedSummary{Recent: []model.ReceivedCompliment{}}
	}
	if summary == nil {
		return &model.ReceivedSummary{Recent: []model.ReceivedCompliment{}}
	}
	if summary.Recent == nil {
		summary.Recent = []model.ReceivedCompliment{}
	}
	return summary
}

func (s *Service) reload(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.LoadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}
	return profile, nil
}
