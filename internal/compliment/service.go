// Package compliment は賞賛の送信フローのドメインロジックを提供する。
// 組織・宛先の選択、AIによる整形、送信前のAI判定を扱う。
package compliment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kudos/internal/metrics"
	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/moderation"
	"github.com/hitoshi/kudos/internal/repository"
	"github.com/hitoshi/kudos/internal/security"
)

// SubmitInput は賞賛送信の入力。
type SubmitInput struct {
	FromUserID      string
	ToUserID        string
	Message         string
	EnhancedMessage string
	IsAnonymous     bool
}

// Service は賞賛送信のサービス層。
type Service struct {
	orgRepo        repository.OrganizationRepository
	profileRepo    repository.ProfileRepository
	complimentRepo repository.ComplimentRepository
	moderator      moderation.Moderator
	sanitizer      security.ContentSanitizerService
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	orgRepo repository.OrganizationRepository,
	profileRepo repository.ProfileRepository,
	complimentRepo repository.ComplimentRepository,
	moderator moderation.Moderator,
	sanitizer security.ContentSanitizerService,
	metrics metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orgRepo:        orgRepo,
		profileRepo:    profileRepo,
		complimentRepo: complimentRepo,
		moderator:      moderator,
		sanitizer:      sanitizer,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// ListOrganizations は組織一覧を名前順で返す。
func (s *Service) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	orgs, err := s.orgRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("組織一覧の取得に失敗しました: %w", err)
	}
	return orgs, nil
}

// ListRecipients は組織に所属する自分以外のユーザーを返す。
// searchが空でなければ氏名または役職に大文字小文字を区別せず部分一致するものに絞り込む。
func (s *Service) ListRecipients(ctx context.Context, orgID, currentUserID, search string) ([]model.UserSummary, error) {
	if orgID == "" {
		return nil, model.NewValidationError("Please select an organization.")
	}

	users, err := s.profileRepo.ListSummaries(ctx, orgID, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return users, nil
	}

	filtered := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FullName), term) ||
			strings.Contains(strings.ToLower(u.Position), term) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// EnhanceMessage はAIでメッセージを整形する。
// 不適切と判定された場合や呼び出しに失敗した場合は、元のメッセージとエラーを返す。
func (s *Service) EnhanceMessage(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return message, model.NewValidationError("Message is required.")
	}

	enhanced, err := s.moderator.Enhance(ctx, message)
	if err != nil {
		return message, model.NewEnhanceFailedError()
	}
	if enhanced == moderation.Sentinel {
		return message, model.NewEnhanceRejectedError()
	}
	return enhanced, nil
}

// Submit は送信前にAIで判定し、問題がなければ賞賛を保存する。
// 判定対象は整形済みメッセージがあればそれ、なければトリムしたメッセージ。
// 保存するのは判定結果として返ってきた文章。
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*model.Compliment, error) {
	message := strings.TrimSpace(in.Message)
	if in.ToUserID == "" {
		return nil, model.NewValidationError("Please select a recipient.")
	}
	if message == "" {
		return nil, model.NewValidationError("Message is required.")
	}
	if in.ToUserID == in.FromUserID {
		return nil, model.NewValidationError("You cannot send a compliment to yourself.")
	}
	if _, err := uuid.Parse(in.ToUserID); err != nil {
		return nil, model.NewValidationError("Recipient not found.")
	}

	recipient, err := s.profileRepo.FindByID(ctx, in.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("宛先ユーザーの取得に失敗しました: %w", err)
	}
	if recipient == nil {
		return nil, model.NewValidationError("Recipient not found.")
	}

	base := strings.TrimSpace(in.EnhancedMessage)
	if base == "" {
		base = message
	}

	checked, err := s.moderator.Check(ctx, base)
	if err != nil {
		return nil, model.NewModerationFailedError()
	}
	if checked == "" || checked == moderation.Sentinel {
		s.logger.InfoContext(ctx, "compliment blocked by moderation",
			slog.String("from_user_id", in.FromUserID),
			slog.String("to_user_id", in.ToUserID),
		)
		return nil, model.NewContentFlaggedError()
	}

	text := s.sanitizer.Sanitize(checked)
	if text == "" {
		return nil, model.NewContentFlaggedError()
	}

	c := &model.Compliment{
		ID:          uuid.New().String(),
		FromUserID:  in.FromUserID,
		ToUserID:    in.ToUserID,
		Message:     text,
		IsAnonymous: in.IsAnonymous,
		IsModerated: true,
		CreatedAt:   s.now(),
	}
	if err := s.complimentRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("賞賛の保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordComplimentCreated(c.IsAnonymous)
	}
	s.logger.InfoContext(ctx, "compliment created",
		slog.String("compliment_id", c.ID),
		slog.Bool("anonymous", c.IsAnonymous),
	)
	return c, nil
}
