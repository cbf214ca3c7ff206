package handler

import (
	"context"
	"net/http"
)

// ConfessionServiceInterface は告白ハンドラーが必要とするサービスインターフェース。
type ConfessionServiceInterface interface {
	List(ctx context.Context, viewerID string) []confessionResponse
	Submit(ctx context.Context, authorID, message string) (*confessionResponse, error)
}

// ConfessionHandler は告白部屋のHTTPハンドラー。
type ConfessionHandler struct {
	service ConfessionServiceInterface
}

// NewConfessionHandler はConfessionHandlerを生成する。
func NewConfessionHandler(service ConfessionServiceInterface) *ConfessionHandler {
	return &ConfessionHandler{service: service}
}

type submitConfessionRequest struct {
	Message string `json:"message"`
}

type confessionListResponse struct {
	Items []confessionResponse `json:"items"`
}

// ListConfessions は失効していない告白を新しい順に返す。作成者は返さない。
// GET /api/confessions
func (h *ConfessionHandler) ListConfessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	items := h.service.List(r.Context(), userID)
	if items == nil {
		items = []confessionResponse{}
	}
	writeJSON(w, http.StatusOK, confessionListResponse{Items: items})
}

// SubmitConfession は告白を投稿する。24時間後に失効する。
// POST /api/confessions
func (h *ConfessionHandler) SubmitConfession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req submitConfessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Submit(r.Context(), userID, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
