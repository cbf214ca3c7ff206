// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/kudos/internal/auth"
	"github.com/hitoshi/kudos/internal/middleware"
	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/user"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	auth.Provider
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	ConfirmEmail(ctx context.Context, token string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
}

// SignInRecorder はサインインの成否を記録する。metrics.MetricsCollectorが実装する。
type SignInRecorder interface {
	RecordSignIn(success bool)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はパスワード認証とセッション復元のHTTPハンドラー。
// リクエストごとにauth.Controllerを生成し、Cookieをトークンの保存先として使う。
type AuthHandler struct {
	service  AuthServiceInterface
	profiles auth.ProfileLoader
	drafts   auth.DraftStore
	recorder SignInRecorder
	config   AuthHandlerConfig
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(
	service AuthServiceInterface,
	profiles auth.ProfileLoader,
	drafts auth.DraftStore,
	recorder SignInRecorder,
	config AuthHandlerConfig,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service:  service,
		profiles: profiles,
		drafts:   drafts,
		recorder: recorder,
		config:   config,
		logger:   logger,
	}
}

type signUpRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"full_name"`
	OrganizationID string `json:"organization_id"`
	Position       string `json:"position"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type restoreRequest struct {
	Path string `json:"path"`
}

type resetPasswordRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}

type completeResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type authUserResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}

type navigationResponse struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}

// authStateResponse は認証コントローラの状態と、クライアントが行うべき遷移。
type authStateResponse struct {
	State         string              `json:"state"`
	Authenticated bool                `json:"authenticated"`
	User          *authUserResponse   `json:"user"`
	Profile       *profileResponse    `json:"profile"`
	Navigate      *navigationResponse `json:"navigate,omitempty"`
}

// SignUp はアカウントを登録し、確認メールを送信する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctrl, _, _ := h.newController(w, r)
	err := ctrl.SignUpWithEmail(r.Context(), req.Email, req.Password, model.ProfileMetadata{
		FullName:       req.FullName,
		OrganizationID: req.OrganizationID,
		Position:       req.Position,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Check your email for the confirmation link.",
	})
}

// SignIn はメールアドレスとパスワードでサインインし、セッションCookieを設定する。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctrl, _, nav := h.newController(w, r)
	err := ctrl.SignInWithEmail(r.Context(), req.Email, req.Password)
	if h.recorder != nil {
		h.recorder.RecordSignIn(err == nil)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthStateResponse(ctrl.Snapshot(), nav))
}

// SignOut はセッションを破棄し、セッションCookieを削除する。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctrl, tokens, nav := h.newController(w, r)
	h.attach(r.Context(), ctrl, tokens)

	if err := ctrl.SignOut(r.Context()); err != nil {
		tokens.Clear()
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthStateResponse(ctrl.Snapshot(), nav))
}

// RestoreSession はセッションCookieからセッションを復元し、遷移先を返す。
// POST /auth/session/restore
func (h *AuthHandler) RestoreSession(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	ctrl, _, nav := h.newController(w, r)
	ctrl.RestoreSession(r.Context(), req.Path)

	writeJSON(w, http.StatusOK, toAuthStateResponse(ctrl.Snapshot(), nav))
}

// Me は現在のログインユーザーとプロフィールを返す。
// プロフィールの取得に失敗した場合はprofileをnullで返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctrl, tokens, nav := h.newController(w, r)
	h.attach(r.Context(), ctrl, tokens)

	if !ctrl.Authenticated() {
		tokens.Clear()
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
		return
	}

	writeJSON(w, http.StatusOK, toAuthStateResponse(ctrl.Snapshot(), nav))
}

// ResetPassword はパスワードリセット用のメールを送信する。
// アカウントの有無にかかわらず同じレスポンスを返す。
// POST /auth/password/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Email is required."))
		return
	}

	if err := h.service.ResetPasswordForEmail(r.Context(), req.Email, h.safeRedirect(req.RedirectTo)); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Password reset instructions have been sent to your email.",
	})
}

// CompletePasswordReset はリセットトークンを検証して新しいパスワードを設定する。
// POST /auth/password/reset/confirm
func (h *AuthHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req completeResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	password := strings.TrimSpace(req.NewPassword)
	if !user.ValidatePassword(password) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewWeakPasswordError())
		return
	}

	if err := h.service.CompletePasswordReset(r.Context(), req.Token, password); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTokenError())
			return
		}
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ConfirmEmail はメール確認リンクを処理し、サインイン画面へリダイレクトする。
// GET /auth/confirm?token=xxx
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTokenError())
		return
	}

	if err := h.service.ConfirmEmail(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTokenError())
			return
		}
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, h.config.BaseURL+model.PathAuth+"?confirmed=true", http.StatusSeeOther)
}

// newController はこのリクエスト用のControllerを生成する。
func (h *AuthHandler) newController(w http.ResponseWriter, r *http.Request) (*auth.Controller, *cookieTokenStore, *recordingNavigator) {
	tokens := newCookieTokenStore(w, r, h.config)
	nav := &recordingNavigator{}
	ctrl := auth.NewController(h.service, h.profiles, h.drafts, nav, tokens, h.logger)
	return ctrl, tokens, nav
}

// attach はCookieのセッションが有効であれば遷移なしでControllerに設定する。
func (h *AuthHandler) attach(ctx context.Context, ctrl *auth.Controller, tokens *cookieTokenStore) {
	session, err := h.service.GetSession(ctx, tokens.Token())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get session", slog.String("error", err.Error()))
		return
	}
	if session == nil || session.Expired(time.Now()) {
		return
	}
	ctrl.HandleAuthEvent(ctx, model.AuthEventInitialSession, session)
}

// safeRedirect はBASE_URL配下のリダイレクト先だけを許可する。それ以外は空文字を返す。
func (h *AuthHandler) safeRedirect(redirectTo string) string {
	if redirectTo == "" || h.config.BaseURL == "" {
		return ""
	}
	if redirectTo == h.config.BaseURL || strings.HasPrefix(redirectTo, strings.TrimRight(h.config.BaseURL, "/")+"/") {
		return redirectTo
	}
	h.logger.Warn("ignoring redirect outside base URL", slog.String("redirect_to", redirectTo))
	return ""
}

func toAuthStateResponse(snap model.Snapshot, nav *recordingNavigator) authStateResponse {
	resp := authStateResponse{
		State:         string(snap.State),
		Authenticated: snap.Session != nil,
		Profile:       toProfileResponse(snap.Profile),
	}
	if snap.Session != nil {
		resp.User = &authUserResponse{
			ID:               snap.Session.UserID,
			Email:            snap.Session.Email,
			EmailConfirmedAt: snap.Session.EmailConfirmedAt,
		}
	}
	if nav.called {
		resp.Navigate = &navigationResponse{Path: nav.path, Replace: nav.replace}
	}
	return resp
}

// recordingNavigator はControllerの遷移指示を記録し、レスポンスで返す。
type recordingNavigator struct {
	called  bool
	path    string
	replace bool
}

func (n *recordingNavigator) Navigate(path string, replace bool) {
	n.called = true
	n.path = path
	n.replace = replace
}

// cookieTokenStore はセッションIDをHTTP Only Cookieで保持するauth.TokenStore。
type cookieTokenStore struct {
	w      http.ResponseWriter
	config AuthHandlerConfig
	token  string
	now    func() time.Time
}

func newCookieTokenStore(w http.ResponseWriter, r *http.Request, config AuthHandlerConfig) *cookieTokenStore {
	s := &cookieTokenStore{w: w, config: config, now: time.Now}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		s.token = cookie.Value
	}
	return s
}

func (s *cookieTokenStore) Token() string {
	return s.token
}

// SetToken はセッションの有効期限までのCookieを設定する。
func (s *cookieTokenStore) SetToken(session *model.Session) {
	s.token = session.ID
	maxAge := int(session.ExpiresAt.Sub(s.now()).Seconds())
	if maxAge <= 0 {
		maxAge = s.config.SessionMaxAge
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear はCookieを削除する。トークンを保持していない場合は何もしない。
func (s *cookieTokenStore) Clear() {
	if s.token == "" {
		return
	}
	s.token = ""
	http.SetCookie(s.w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- compile-time interface checks ---

var _ auth.TokenStore = (*cookieTokenStore)(nil)
var _ auth.Navigator = (*recordingNavigator)(nil)
