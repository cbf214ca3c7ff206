package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/kudos/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	LoadProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID, fullName, position string) (*model.Profile, error)
	ChangePassword(ctx context.Context, userID, newPassword string) error
	UpdateAvatar(ctx context.Context, userID, avatarURL string) (*model.Profile, error)
	ReceivedCompliments(ctx context.Context, userID string) receivedSummaryResponse
}

// UserHandler はログインユーザー自身のプロフィールを扱うHTTPハンドラー。
type UserHandler struct {
	service ProfileServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service ProfileServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Position string `json:"position"`
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type updateAvatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

// GetProfile はプロフィールを返す。
// GET /api/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.LoadProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profile == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateProfile は氏名と役職を更新する。
// PATCH /api/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, req.FullName, req.Position)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ChangePassword はパスワードを変更する。
// PUT /api/profile/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateAvatar はアバター画像URLを設定する。空文字の場合はアバターを外す。
// PUT /api/profile/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateAvatarRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateAvatar(r.Context(), userID, req.AvatarURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ReceivedCompliments は受け取った賞賛の総数と直近5件を返す。
// GET /api/profile/compliments
func (h *UserHandler) ReceivedCompliments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.ReceivedCompliments(r.Context(), userID))
}
