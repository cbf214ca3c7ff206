package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/kudos/internal/model"
)

// LeaderboardServiceInterface はリーダーボードハンドラーが必要とするサービスインターフェース。
type LeaderboardServiceInterface interface {
	Build(ctx context.Context, orgFilter string, timeFrame model.TimeFrame) []leaderboardEntryResponse
}

// LeaderboardHandler はリーダーボードのHTTPハンドラー。
type LeaderboardHandler struct {
	service LeaderboardServiceInterface
}

// NewLeaderboardHandler はLeaderboardHandlerを生成する。
func NewLeaderboardHandler(service LeaderboardServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

type leaderboardResponse struct {
	TimeFrame string                     `json:"time_frame"`
	Entries   []leaderboardEntryResponse `json:"entries"`
}

// GetLeaderboard は受け取った賞賛の多い順に最大20人を返す。
// GET /api/leaderboard?org=all|{organization_id}&time_frame=week|month|all
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := q.Get("time_frame")
	timeFrame, ok := model.ParseTimeFrame(raw)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError("time_frame", raw))
		return
	}

	entries := h.service.Build(r.Context(), q.Get("org"), timeFrame)
	if entries == nil {
		entries = []leaderboardEntryResponse{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		TimeFrame: string(timeFrame),
		Entries:   entries,
	})
}
