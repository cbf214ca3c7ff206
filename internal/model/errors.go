// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, moderation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeNotSignedIn        = "NOT_SIGNED_IN"
	ErrCodeSignUpFailed       = "SIGN_UP_FAILED"
	ErrCodeAuthInProgress     = "AUTH_IN_PROGRESS"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeSSRFBlocked        = "SSRF_BLOCKED"
	ErrCodeContentFlagged     = "CONTENT_FLAGGED"
	ErrCodeEnhanceRejected    = "ENHANCE_REJECTED"
	ErrCodeEnhanceFailed      = "ENHANCE_FAILED"
	ErrCodeModerationFailed   = "MODERATION_FAILED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidFilter      = "INVALID_FILTER"
)

// 画面にそのまま表示される文言
const (
	MsgInvalidCredentials = "Incorrect password. Please check your password and try again."
	MsgNotSignedIn        = "No user is currently signed in."
	MsgWeakPassword       = "Password must be at least 8 characters long and include a number and a special character."
	MsgContentFlagged     = "Your compliment was flagged as inappropriate. Please revise it before submitting."
	MsgEnhanceRejected    = "The compliment may not be appropriate. Please revise it."
	MsgEnhanceFailed      = "Failed to enhance the compliment. Please try again."
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// 原因（パスワード誤り、未確認メール等）は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  MsgInvalidCredentials,
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認して再度ログインしてください。",
	}
}

// NewNotSignedInError はサインインしていない状態でのサインアウトエラーを生成する。
func NewNotSignedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotSignedIn,
		Message:  MsgNotSignedIn,
		Category: "auth",
		Action:   "ログイン画面に戻ってください。",
	}
}

// NewSignUpFailedError はサインアップ失敗エラーを生成する。
// messageはプロバイダが返した文言をそのまま表示する。
func NewSignUpFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeSignUpFailed,
		Message:  message,
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewAuthInProgressError は認証処理中に重ねて認証要求が来た場合のエラーを生成する。
func NewAuthInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthInProgress,
		Message:  "Authentication is already in progress.",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidTokenError は確認・リセット用トークンが無効な場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "This link is invalid or has expired.",
		Category: "auth",
		Action:   "もう一度メールの送信からやり直してください。",
	}
}

// NewWeakPasswordError はパスワード要件を満たさない場合のエラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  MsgWeakPassword,
		Category: "validation",
		Action:   "8文字以上で数字と記号を含むパスワードを入力してください。",
	}
}

// NewValidationError は入力値エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("Invalid URL: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まる画像URLを入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "Access to the given URL is blocked by security policy.",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewContentFlaggedError はAIチェックで送信がブロックされた場合のエラーを生成する。
func NewContentFlaggedError() *APIError {
	return &APIError{
		Code:     ErrCodeContentFlagged,
		Message:  MsgContentFlagged,
		Category: "moderation",
		Action:   "メッセージを修正してから送信してください。",
	}
}

// NewEnhanceRejectedError はAI整形で不適切と判定された場合のエラーを生成する。
func NewEnhanceRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeEnhanceRejected,
		Message:  MsgEnhanceRejected,
		Category: "moderation",
		Action:   "メッセージを修正してください。",
	}
}

// NewEnhanceFailedError はAI整形の呼び出しに失敗した場合のエラーを生成する。
func NewEnhanceFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeEnhanceFailed,
		Message:  MsgEnhanceFailed,
		Category: "moderation",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewModerationFailedError はAIチェックの呼び出しに失敗した場合のエラーを生成する。
func NewModerationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeModerationFailed,
		Message:  "Failed to send the compliment. Please try again.",
		Category: "moderation",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(name, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("Invalid %s: %s", name, value),
		Category: "validation",
		Action:   "指定可能な値を確認してください。",
	}
}
