package handler

import (
	"context"
	"time"

	"github.com/hitoshi/kudos/internal/auth"
	"github.com/hitoshi/kudos/internal/compliment"
	"github.com/hitoshi/kudos/internal/confession"
	"github.com/hitoshi/kudos/internal/feed"
	"github.com/hitoshi/kudos/internal/leaderboard"
	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/user"
)

// FeedServiceAdapter は feed.Service を FeedServiceInterface に適合させるアダプタ。
type FeedServiceAdapter struct {
	svc *feed.Service
	now func() time.Time
}

// NewFeedServiceAdapter はFeedServiceAdapterを生成する。
func NewFeedServiceAdapter(svc *feed.Service) *FeedServiceAdapter {
	return &FeedServiceAdapter{svc: svc, now: time.Now}
}

// List はフィードをhandlerレスポンス型で返す。
func (a *FeedServiceAdapter) List(ctx context.Context, orgFilter string) []feedItemResponse {
	return toFeedResponses(a.svc.List(ctx, orgFilter), a.now())
}

func toFeedResponses(items []model.FeedItem, now time.Time) []feedItemResponse {
	out := make([]feedItemResponse, len(items))
	for i, it := range items {
		out[i] = feedItemResponse{
			ID:          it.ID,
			Message:     it.Message,
			IsAnonymous: it.IsAnonymous,
			CreatedAt:   it.CreatedAt,
			TimeAgo:     model.TimeAgo(it.CreatedAt, now),
			ToUser:      toUserSummaryResponse(it.ToUser),
		}
		if !it.IsAnonymous {
			out[i].FromUser = toUserSummaryResponse(it.FromUser)
		}
	}
	return out
}

// LeaderboardServiceAdapter は leaderboard.Service を LeaderboardServiceInterface に適合させるアダプタ。
type LeaderboardServiceAdapter struct {
	svc *leaderboard.Service
	now func() time.Time
}

// NewLeaderboardServiceAdapter はLeaderboardServiceAdapterを生成する。
func NewLeaderboardServiceAdapter(svc *leaderboard.Service) *LeaderboardServiceAdapter {
	return &LeaderboardServiceAdapter{svc: svc, now: time.Now}
}

// Build はリーダーボードをhandlerレスポンス型で返す。
func (a *LeaderboardServiceAdapter) Build(ctx context.Context, orgFilter string, timeFrame model.TimeFrame) []leaderboardEntryResponse {
	return toLeaderboardResponses(a.svc.Build(ctx, orgFilter, timeFrame), a.now())
}

func toLeaderboardResponses(entries []model.LeaderboardEntry, now time.Time) []leaderboardEntryResponse {
	out := make([]leaderboardEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = leaderboardEntryResponse{
			User:              *toUserSummaryResponse(&e.User),
			ComplimentCount:   e.ComplimentCount,
			RecentCompliments: toReceivedResponses(e.RecentCompliments, now),
		}
	}
	return out
}

// ConfessionServiceAdapter は confession.Service を ConfessionServiceInterface に適合させるアダプタ。
// 経過時間と残り時間の表示文字列を付与する。
type ConfessionServiceAdapter struct {
	svc *confession.Service
	now func() time.Time
}

// NewConfessionServiceAdapter はConfessionServiceAdapterを生成する。
func NewConfessionServiceAdapter(svc *confession.Service) *ConfessionServiceAdapter {
	return &ConfessionServiceAdapter{svc: svc, now: time.Now}
}

// List は告白一覧をhandlerレスポンス型で返す。
func (a *ConfessionServiceAdapter) List(ctx context.Context, viewerID string) []confessionResponse {
	rows := a.svc.List(ctx, viewerID)
	now := a.now()
	out := make([]confessionResponse, len(rows))
	for i := range rows {
		out[i] = toConfessionResponse(&rows[i], now)
	}
	return out
}

// Submit は告白を投稿し、handlerレスポンス型で返す。
func (a *ConfessionServiceAdapter) Submit(ctx context.Context, authorID, message string) (*confessionResponse, error) {
	c, err := a.svc.Submit(ctx, authorID, message)
	if err != nil {
		return nil, err
	}
	resp := toConfessionResponse(c, a.now())
	return &resp, nil
}

func toConfessionResponse(c *model.Confession, now time.Time) confessionResponse {
	return confessionResponse{
		ID:            c.ID,
		Message:       c.Message,
		CreatedAt:     c.CreatedAt,
		ExpiresAt:     c.ExpiresAt,
		IsOwn:         c.IsOwn,
		TimeAgo:       model.TimeAgo(c.CreatedAt, now),
		TimeRemaining: confession.TimeRemaining(c.ExpiresAt, now),
	}
}

// ProfileServiceAdapter は user.Service を ProfileServiceInterface に適合させるアダプタ。
type ProfileServiceAdapter struct {
	svc *user.Service
	now func() time.Time
}

// NewProfileServiceAdapter はProfileServiceAdapterを生成する。
func NewProfileServiceAdapter(svc *user.Service) *ProfileServiceAdapter {
	return &ProfileServiceAdapter{svc: svc, now: time.Now}
}

// LoadProfile はプロフィールを返す。
func (a *ProfileServiceAdapter) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return a.svc.LoadProfile(ctx, userID)
}

// UpdateProfile は氏名と役職を更新する。
func (a *ProfileServiceAdapter) UpdateProfile(ctx context.Context, userID, fullName, position string) (*model.Profile, error) {
	return a.svc.UpdateProfile(ctx, userID, fullName, position)
}

// ChangePassword はパスワードを変更する。
func (a *ProfileServiceAdapter) ChangePassword(ctx context.Context, userID, newPassword string) error {
	return a.svc.ChangePassword(ctx, userID, newPassword)
}

// UpdateAvatar はアバター画像URLを設定する。
func (a *ProfileServiceAdapter) UpdateAvatar(ctx context.Context, userID, avatarURL string) (*model.Profile, error) {
	return a.svc.UpdateAvatar(ctx, userID, avatarURL)
}

// ReceivedCompliments は受け取った賞賛の件数と直近の一覧をhandlerレスポンス型で返す。
func (a *ProfileServiceAdapter) ReceivedCompliments(ctx context.Context, userID string) receivedSummaryResponse {
	summary := a.svc.ReceivedCompliments(ctx, userID)
	return receivedSummaryResponse{
		Count:  summary.Count,
		Recent: toReceivedResponses(summary.Recent, a.now()),
	}
}

// --- compile-time interface checks ---

var _ FeedServiceInterface = (*FeedServiceAdapter)(nil)
var _ LeaderboardServiceInterface = (*LeaderboardServiceAdapter)(nil)
var _ ConfessionServiceInterface = (*ConfessionServiceAdapter)(nil)
var _ ProfileServiceInterface = (*ProfileServiceAdapter)(nil)
var _ ComplimentServiceInterface = (*compliment.Service)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)
