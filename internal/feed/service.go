// Package feed は賞賛フィードのドメインロジックを提供する。
package feed

import (
	"context"
	"log/slog"

	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/repository"
)

// pageSize はフィードに表示する最大件数。
const pageSize = 50

// Service はフィード取得のサービス層。
type Service struct {
	complimentRepo repository.ComplimentRepository
	logger         *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(complimentRepo repository.ComplimentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{complimentRepo: complimentRepo, logger: logger}
}

// List は新しい順に最大50件の賞賛を返す。
// 匿名の賞賛は、ビューの内容にかかわらず送信者を返さない。
// orgFilterがallでなければ、50件に絞った後で宛先の組織が一致するものだけを残す。
// 取得に失敗した場合はログに記録し、空の一覧を返す。
func (s *Service) List(ctx context.Context, orgFilter string) []model.FeedItem {
	items, err := s.complimentRepo.ListSecure(ctx, pageSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list compliments", slog.String("error", err.Error()))
		return []model.FeedItem{}
	}

	result := make([]model.FeedItem, 0, len(items))
	for _, it := range items {
		if it.IsAnonymous {
			it.FromUser = nil
		}
		if orgFilter != "" && orgFilter != model.OrgFilterAll && !toOrganization(it, orgFilter) {
			continue
		}
		result = append(result, it)
	}
	return result
}

func toOrganization(it model.FeedItem, orgID string) bool {
	return it.ToUser != nil && it.ToUser.Organization != nil && it.ToUser.Organization.ID == orgID
}
