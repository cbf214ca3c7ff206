// Package confession は24時間で消える匿名の告白ルームのドメインロジックを提供する。
package confession

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kudos/internal/metrics"
	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/repository"
	"github.com/hitoshi/kudos/internal/security"
)

const (
	// DefaultTTL は告白の表示期間。
	DefaultTTL = 24 * time.Hour
	// pageSize は一覧に表示する最大件数。
	pageSize = 50
)

// Service は告白ルームのサービス層。
type Service struct {
	repo      repository.ConfessionRepository
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	ttl       time.Duration
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。ttlが0以下の場合は24時間。
func NewService(
	repo repository.ConfessionRepository,
	sanitizer security.ContentSanitizerService,
	metrics metrics.MetricsCollector,
	logger *slog.Logger,
	ttl time.Duration,
) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
	}
}

// List は失効していない告白を新しい順に最大50件返す。
// 取得に失敗した場合はログに記録し、空の一覧を返す。
func (s *Service) List(ctx context.Context, viewerID string) []model.Confession {
	items, err := s.repo.ListActive(ctx, viewerID, s.now(), pageSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list confessions", slog.String("error", err.Error()))
		return []model.Confession{}
	}
	if items == nil {
		return []model.Confession{}
	}
	return items
}

// Submit は告白を保存する。失効日時は投稿時刻+TTL。
func (s *Service) Submit(ctx context.Context, authorID, message string) (*model.Confession, error) {
	text := s.sanitizer.Sanitize(strings.TrimSpace(message))
	if text == "" {
		return nil, model.NewValidationError("Confession cannot be empty.")
	}

	now := s.now()
	c := &model.Confession{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Message:   text,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		IsOwn:     true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("告白の保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordConfessionCreated()
	}
	return c, nil
}

// TimeRemaining は失効までの残り時間を表示用の文字列にする。
//   - 失効済み: "Expired"
//   - 1時間以上: "{h}h {m}m left"
//   - それ未満: "{m}m left"
func TimeRemaining(expiresAt, now time.Time) string {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return "Expired"
	}
	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm left", hours, minutes)
	}
	return fmt.Sprintf("%dm left", minutes)
}
