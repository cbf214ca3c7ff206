package auth

import (
	"context"
	"log/slog"
)

// Mailer は確認メール・パスワードリセットメールの送信インターフェース。
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer はメール本文を構造化ログに出力するMailer。
// SMTP等の送信経路を持たない環境で使用する。
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer はLogMailerを生成する。
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send はメール内容をログに記録する。
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.InfoContext(ctx, "mail queued",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
