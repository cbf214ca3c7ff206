package handler

import (
	"context"
	"net/http"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// List は最新の賞賛を返す。orgFilterが"all"または空の場合は絞り込まない。
	List(ctx context.Context, orgFilter string) []feedItemResponse
}

// FeedHandler は賞賛フィードのHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{service: service}
}

// feedListResponse はフィード一覧のAPIレスポンス。
type feedListResponse struct {
	Items []feedItemResponse `json:"items"`
}

// ListFeed は最新50件の賞賛を返す。取得に失敗した場合も空の一覧を返す。
// GET /api/feed?org=all|{organization_id}
func (h *FeedHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	items := h.service.List(r.Context(), r.URL.Query().Get("org"))
	if items == nil {
		items = []feedItemResponse{}
	}
	writeJSON(w, http.StatusOK, feedListResponse{Items: items})
}
