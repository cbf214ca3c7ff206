package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/kudos/internal/middleware"
	"github.com/hitoshi/kudos/internal/route"
)

// RouteHandler はクライアントの画面遷移を決めるルートガードのHTTPハンドラー。
// 認証不要のエンドポイントで、セッションCookieがあれば認証済みとして判定する。
type RouteHandler struct {
	sessions middleware.SessionFinder
}

// NewRouteHandler はRouteHandlerを生成する。
func NewRouteHandler(sessions middleware.SessionFinder) *RouteHandler {
	return &RouteHandler{sessions: sessions}
}

type routeResponse struct {
	Authenticated bool   `json:"authenticated"`
	Surface       string `json:"surface"`
	Page          string `json:"page"`
	Path          string `json:"path"`
	RedirectTo    string `json:"redirect_to,omitempty"`
	Replace       bool   `json:"replace"`
}

// Resolve はpathクエリの画面を表示するか、どこへ遷移するかを返す。
// GET /api/route?path=/feed
func (h *RouteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		session, err := h.sessions.FindByID(r.Context(), cookie.Value)
		if err != nil {
			slog.Error("failed to find session for route guard", slog.String("error", err.Error()))
		}
		authenticated = session != nil
	}

	d := route.RouteFor(authenticated, r.URL.Query().Get("path"))
	writeJSON(w, http.StatusOK, routeResponse{
		Authenticated: authenticated,
		Surface:       string(d.Surface),
		Page:          string(d.Page),
		Path:          d.Path,
		RedirectTo:    d.RedirectTo,
		Replace:       d.Redirected(),
	})
}
