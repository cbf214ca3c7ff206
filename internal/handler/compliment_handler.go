package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/kudos/internal/compliment"
	"github.com/hitoshi/kudos/internal/model"
)

// ComplimentServiceInterface は賞賛送信ハンドラーが必要とするサービスインターフェース。
type ComplimentServiceInterface interface {
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	ListRecipients(ctx context.Context, orgID, currentUserID, search string) ([]model.UserSummary, error)
	EnhanceMessage(ctx context.Context, message string) (string, error)
	Submit(ctx context.Context, in compliment.SubmitInput) (*model.Compliment, error)
}

// ComplimentHandler は組織・宛先の一覧と賞賛送信のHTTPハンドラー。
type ComplimentHandler struct {
	service ComplimentServiceInterface
}

// NewComplimentHandler はComplimentHandlerを生成する。
func NewComplimentHandler(service ComplimentServiceInterface) *ComplimentHandler {
	return &ComplimentHandler{service: service}
}

type enhanceRequest struct {
	Message string `json:"message"`
}

type enhanceResponse struct {
	EnhancedMessage string `json:"enhanced_message"`
}

type submitComplimentRequest struct {
	ToUserID        string `json:"to_user_id"`
	Message         string `json:"message"`
	EnhancedMessage string `json:"enhanced_message"`
	IsAnonymous     bool   `json:"is_anonymous"`
}

// ListOrganizations は組織の一覧を名前順で返す。
// GET /api/organizations
func (h *ComplimentHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.ListOrganizations(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]organizationResponse, len(orgs))
	for i := range orgs {
		out[i] = *toOrganizationResponse(&orgs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// ListRecipients は組織内の宛先候補を返す。自分自身は含まない。
// GET /api/users?org={organization_id}&search=...
func (h *ComplimentHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	users, err := h.service.ListRecipients(r.Context(), q.Get("org"), userID, q.Get("search"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]userSummaryResponse, len(users))
	for i := range users {
		out[i] = *toUserSummaryResponse(&users[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// EnhanceMessage はAIでメッセージを整形する。
// 差し戻しや失敗の場合は元のメッセージをoriginal_messageで返す。
// POST /api/compliments/enhance
func (h *ComplimentHandler) EnhanceMessage(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	enhanced, err := h.service.EnhanceMessage(r.Context(), req.Message)
	if err != nil {
		handleRejectedMessage(w, err, req.Message)
		return
	}
	writeJSON(w, http.StatusOK, enhanceResponse{EnhancedMessage: enhanced})
}

// SubmitCompliment はAI判定を通過した賞賛を保存する。
// 不適切と判定された場合は422と元のメッセージを返す。
// POST /api/compliments
func (h *ComplimentHandler) SubmitCompliment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req submitComplimentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Submit(r.Context(), compliment.SubmitInput{
		FromUserID:      userID,
		ToUserID:        req.ToUserID,
		Message:         req.Message,
		EnhancedMessage: req.EnhancedMessage,
		IsAnonymous:     req.IsAnonymous,
	})
	if err != nil {
		handleRejectedMessage(w, err, req.Message)
		return
	}
	writeJSON(w, http.StatusCreated, toComplimentResponse(c))
}
