package model

// AuthState は認証コントローラの状態。
type AuthState string

const (
	AuthStateAnonymous      AuthState = "anonymous"
	AuthStateAuthenticating AuthState = "authenticating"
	AuthStateAuthenticated  AuthState = "authenticated"
)

// AuthEvent は認証プロバイダが発行するイベント種別。
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEvent = "USER_UPDATED"
)

// 画面遷移先のパス
const (
	PathRoot           = "/"
	PathAuth           = "/auth"
	PathFeed           = "/feed"
	PathGiveCompliment = "/give-compliment"
	PathConfessionRoom = "/confession-room"
	PathProfile        = "/profile"
	PathResetPassword  = "/reset-password"
)

// Snapshot は認証コントローラの状態を購読者に通知するための値。
type Snapshot struct {
	State   AuthState
	Session *Session
	Profile *Profile
}
