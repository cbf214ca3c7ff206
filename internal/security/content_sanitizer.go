// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は投稿メッセージからHTMLを取り除き、プレーンテキストとして保存する。
// SSRFGuardService はユーザーが指定したURLへのアクセスを安全に行う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿テキストのサニタイズ機能のインターフェースを定義する。
// 賞賛・告白の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize はすべてのHTMLタグを除去したプレーンテキストを返す。
	// script、styleの中身は残らない。前後の空白は除去する。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はタグを一切許可しないポリシーでContentSanitizerServiceを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去し、bluemondayがエスケープした実体参照を元の文字に戻す。
// 出力はHTMLとして埋め込まず、JSONの文字列として返す前提。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
