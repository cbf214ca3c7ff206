package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/kudos/internal/model"
)

// Provider はControllerが利用する認証プロバイダの操作。
// Serviceが実装する。
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password string, meta model.ProfileMetadata) (*model.User, error)
	SignOut(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// ProfileLoader はユーザーIDから組織を結合したプロフィールを取得する。
// 見つからない場合はnilを返す。
type ProfileLoader interface {
	LoadProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// DraftStore はサインアップ時のプロフィール下書きを保存する。
type DraftStore interface {
	Save(ctx context.Context, userID, key string, payload []byte) error
}

// Navigator は画面遷移の指示を受け取る。
type Navigator interface {
	Navigate(path string, replace bool)
}

// TokenStore はクライアント側に保持されるセッショントークンの読み書きを行う。
// HTTPではCookieが該当する。
type TokenStore interface {
	Token() string
	SetToken(session *model.Session)
	Clear()
}

// Controller はクライアント1つ分の認証状態を保持する状態コンテナ。
// 状態はanonymous、authenticating、authenticatedのいずれかで、
// 遷移のたびに購読者へSnapshotを通知する。
type Controller struct {
	provider Provider
	profiles ProfileLoader
	drafts   DraftStore
	nav      Navigator
	tokens   TokenStore
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     model.AuthState
	session   *model.Session
	profile   *model.Profile
	nextID    int
	listeners map[int]func(model.Snapshot)
}

// NewController はanonymous状態のControllerを生成する。
func NewController(provider Provider, profiles ProfileLoader, drafts DraftStore, nav Navigator, tokens TokenStore, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider:  provider,
		profiles:  profiles,
		drafts:    drafts,
		nav:       nav,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
		state:     model.AuthStateAnonymous,
		listeners: make(map[int]func(model.Snapshot)),
	}
}

// Snapshot は現在の状態を返す。
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Authenticated はユーザーが認証済みかを返す。ルートガードの判定に使う。
func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Subscribe は状態遷移の通知を購読する。戻り値の関数で購読を解除する。
func (c *Controller) Subscribe(fn func(model.Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// RestoreSession は保持しているトークンからセッションを復元し、遷移先を決める。
//   - 期限切れ: プロバイダからサインアウトし、状態を消去して/authへ遷移する
//   - 有効: プロフィールを読み込み、現在地が/authなら/feedへ遷移する
//   - なし: 状態を消去し、現在地が/auth以外なら/authへ遷移する
func (c *Controller) RestoreSession(ctx context.Context, currentPath string) {
	c.beginAuthenticating()

	token := c.tokens.Token()
	session, err := c.provider.GetSession(ctx, token)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get session", slog.String("error", err.Error()))
		session = nil
	}

	if session != nil && session.Expired(c.now()) {
		c.logger.WarnContext(ctx, "session expired on restore, signing out",
			slog.String("user_id", session.UserID),
		)
		if err := c.provider.SignOut(ctx, session.ID); err != nil {
			c.logger.ErrorContext(ctx, "failed to sign out expired session", slog.String("error", err.Error()))
		}
		c.clear()
		c.nav.Navigate(model.PathAuth, false)
		return
	}

	if session != nil {
		c.HandleAuthEvent(ctx, model.AuthEventInitialSession, session)
		if currentPath == model.PathAuth {
			c.nav.Navigate(model.PathFeed, false)
		}
		return
	}

	c.clear()
	if currentPath != model.PathAuth {
		c.nav.Navigate(model.PathAuth, false)
	}
}

// HandleAuthEvent はプロバイダからの認証イベントを処理する。
// SIGNED_INは/へ、SIGNED_OUTは/authへ置換遷移する。その他は状態の更新のみ行う。
func (c *Controller) HandleAuthEvent(ctx context.Context, event model.AuthEvent, session *model.Session) {
	if event == model.AuthEventSignedOut || session == nil {
		c.clear()
	} else {
		c.applySession(ctx, session)
	}

	switch event {
	case model.AuthEventSignedIn:
		c.nav.Navigate(model.PathRoot, true)
	case model.AuthEventSignedOut:
		c.nav.Navigate(model.PathAuth, true)
	}
}

// SignInWithEmail はメールアドレスとパスワードでサインインする。
// プロバイダのエラー、セッションなし、メール未確認はすべて同じ認証失敗エラーとして返す。
func (c *Controller) SignInWithEmail(ctx context.Context, email, password string) error {
	c.mu.Lock()
	if c.state == model.AuthStateAuthenticating {
		c.mu.Unlock()
		return model.NewAuthInProgressError()
	}
	started := c.state == model.AuthStateAnonymous
	if started {
		c.state = model.AuthStateAuthenticating
	}
	c.mu.Unlock()
	if started {
		c.notify()
	}

	session, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		c.logger.InfoContext(ctx, "sign in failed", slog.String("reason", err.Error()))
		c.abortAuthenticating()
		return model.NewInvalidCredentialsError()
	}
	if session == nil || session.EmailConfirmedAt == nil {
		if session != nil {
			c.logger.InfoContext(ctx, "sign in rejected: email not confirmed",
				slog.String("user_id", session.UserID),
			)
			if err := c.provider.SignOut(ctx, session.ID); err != nil {
				c.logger.ErrorContext(ctx, "failed to revoke unconfirmed session", slog.String("error", err.Error()))
			}
		}
		c.abortAuthenticating()
		return model.NewInvalidCredentialsError()
	}

	c.tokens.SetToken(session)
	c.HandleAuthEvent(ctx, model.AuthEventSignedIn, session)
	return nil
}

// SignUpWithEmail はプロフィール項目をメタデータとしてアカウントを登録する。
// 成功した場合はプロフィールの下書きを保存する。
func (c *Controller) SignUpWithEmail(ctx context.Context, email, password string, meta model.ProfileMetadata) error {
	user, err := c.provider.SignUp(ctx, email, password, meta)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return model.NewSignUpFailedError(perr.Message)
		}
		c.logger.ErrorContext(ctx, "sign up failed", slog.String("error", err.Error()))
		return model.NewSignUpFailedError("An unexpected error occurred")
	}
	if user == nil {
		return nil
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to encode profile draft", slog.String("error", err.Error()))
		return nil
	}
	if err := c.drafts.Save(ctx, user.ID, model.ProfileDraftKey, payload); err != nil {
		c.logger.ErrorContext(ctx, "failed to save profile draft",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// SignOut は現在のセッションをプロバイダから破棄する。
// ユーザーがいない場合はプロバイダを呼ばずにエラーを返す。
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		c.logger.WarnContext(ctx, "sign out requested without a signed in user")
		return model.NewNotSignedInError()
	}

	if err := c.provider.SignOut(ctx, session.ID); err != nil {
		return err
	}

	c.tokens.Clear()
	c.HandleAuthEvent(ctx, model.AuthEventSignedOut, nil)
	return nil
}

// RefreshProfile は現在のユーザーのプロフィールを再取得する。
// 取得に失敗した場合は既存のプロフィールを維持する。
func (c *Controller) RefreshProfile(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return model.NewNotSignedInError()
	}

	profile, err := c.profiles.LoadProfile(ctx, session.UserID)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to refresh profile", slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	c.profile = profile
	c.mu.Unlock()
	c.notify()
	return nil
}

// applySession はセッションを設定し、プロフィールを読み込む。
// プロフィール取得の失敗はログのみで、セッションは保持する。
func (c *Controller) applySession(ctx context.Context, session *model.Session) {
	profile, err := c.profiles.LoadProfile(ctx, session.UserID)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to fetch profile",
			slog.String("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
		profile = nil
	}

	c.mu.Lock()
	c.session = session
	c.profile = profile
	c.state = model.AuthStateAuthenticated
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) clear() {
	c.tokens.Clear()
	c.mu.Lock()
	c.session = nil
	c.profile = nil
	c.state = model.AuthStateAnonymous
	c.mu.Unlock()
	c.notify()
}

// beginAuthenticating はanonymousからauthenticatingへ遷移する。
// 認証済みの場合は状態を変えない。
func (c *Controller) beginAuthenticating() {
	c.mu.Lock()
	if c.state != model.AuthStateAnonymous {
		c.mu.Unlock()
		return
	}
	c.state = model.AuthStateAuthenticating
	c.mu.Unlock()
	c.notify()
}

// abortAuthenticating は認証失敗時に直前の状態へ戻す。
func (c *Controller) abortAuthenticating() {
	c.mu.Lock()
	if c.state != model.AuthStateAuthenticating {
		c.mu.Unlock()
		return
	}
	c.state = model.AuthStateAnonymous
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) snapshotLocked() model.Snapshot {
	return model.Snapshot{State: c.state, Session: c.session, Profile: c.profile}
}

func (c *Controller) notify() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	ls := make([]func(model.Snapshot), 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.mu.Unlock()

	for _, l := range ls {
		l(snap)
	}
}
