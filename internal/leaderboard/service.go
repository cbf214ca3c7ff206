// Package leaderboard は受け取った賞賛の数によるランキングを集計する。
package leaderboard

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/kudos/internal/metrics"
	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/repository"
)

const (
	// maxEntries はランキングに含める最大人数。
	maxEntries = 20
	// recentPerUser はユーザーごとに返す直近の賞賛の件数。
	recentPerUser = 3
)

// Service はリーダーボード集計のサービス層。
type Service struct {
	profileRepo    repository.ProfileRepository
	complimentRepo repository.ComplimentRepository
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	fanoutLimit    int
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// fanoutLimitはユーザーごとの集計クエリの同時実行数。0以下は無制限。
func NewService(
	profileRepo repository.ProfileRepository,
	complimentRepo repository.ComplimentRepository,
	metrics metrics.MetricsCollector,
	logger *slog.Logger,
	fanoutLimit int,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profileRepo:    profileRepo,
		complimentRepo: complimentRepo,
		metrics:        metrics,
		logger:         logger,
		fanoutLimit:    fanoutLimit,
		now:            time.Now,
	}
}

// Build はorgFilter（組織IDまたはall）とtimeFrameでランキングを集計する。
// ユーザーごとの集計に失敗した場合は0件として扱う。
// ユーザー一覧の取得に失敗した場合は空のランキングを返す。
func (s *Service) Build(ctx context.Context, orgFilter string, timeFrame model.TimeFrame) []model.LeaderboardEntry {
	start := s.now()

	orgID := orgFilter
	if orgID == model.OrgFilterAll {
		orgID = ""
	}

	users, err := s.profileRepo.ListSummaries(ctx, orgID, "")
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users for leaderboard",
			slog.String("org_filter", orgFilter),
			slog.String("error", err.Error()),
		)
		return []model.LeaderboardEntry{}
	}

	since := timeFrame.Since(start)
	entries := make([]model.LeaderboardEntry, len(users))

	// 各goroutineは自分の添字にのみ書き込むのでロックは不要
	var g errgroup.Group
	if s.fanoutLimit > 0 {
		g.SetLimit(s.fanoutLimit)
	}
	for i, u := range users {
		g.Go(func() error {
			entries[i] = s.entryFor(ctx, u, since)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ComplimentCount > entries[j].ComplimentCount
	})
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	if s.metrics != nil {
		s.metrics.RecordLeaderboardBuild(s.now().Sub(start), len(users))
	}
	return entries
}

func (s *Service) entryFor(ctx context.Context, u model.UserSummary, since *time.Time) model.LeaderboardEntry {
	entry := model.LeaderboardEntry{User: u, RecentCompliments: []model.ReceivedCompliment{}}

	summary, err := s.complimentRepo.ReceivedSummary(ctx, u.ID, since, recentPerUser)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count compliments",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
		return entry
	}
	if summary == nil {
		return entry
	}

	entry.ComplimentCount = summary.Count
	if summary.Recent != nil {
		entry.RecentCompliments = summary.Recent
	}
	return entry
}
