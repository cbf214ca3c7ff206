// Package moderation は生成AIによる賞賛メッセージの整形と判定を提供する。
// Gemini APIの呼び出しにはgoogle.golang.org/genaiを使う。
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hitoshi/kudos/internal/metrics"
)

const (
	// DefaultEndpoint はGemini APIのベースURL。APIバージョンはSDKが付与する。
	DefaultEndpoint = "https://generativelanguage.googleapis.com/"
	// DefaultModel は使用するモデル名。
	DefaultModel = "gemini-2.0-flash"
)

// ErrEmptyResponse は候補が1件も返らなかった場合のエラー。
var ErrEmptyResponse = errors.New("model returned no candidates")

// Moderator はメッセージの整形と判定を行うインターフェース。
// どちらも出力をトリムして返し、不適切な場合はSentinelを返す。
type Moderator interface {
	Enhance(ctx context.Context, text string) (string, error)
	Check(ctx context.Context, text string) (string, error)
}

// Client はGemini APIのクライアント。リトライやキャッシュは行わない。
type Client struct {
	genai    *genai.Client
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	model    string
	endpoint string // テスト用にエンドポイントを差し替え可能
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithEndpoint はAPIのベースURLを差し替える。
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithModel は使用するモデル名を変更する。
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMetrics は呼び出し結果を記録するMetricsCollectorを設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientのタイムアウトが呼び出し全体のタイムアウトとなる。
// APIキーが空の場合はSDKの初期化エラーを返す。
func NewClient(ctx context.Context, httpClient *http.Client, logger *slog.Logger, apiKey string, opts ...Option) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		logger:   logger,
		model:    DefaultModel,
		endpoint: DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.genai = gc
	return c, nil
}

// Enhance はメッセージを自然な文章に整形する。
func (c *Client) Enhance(ctx context.Context, text string) (string, error) {
	return c.run(ctx, "enhance", enhancePrompt(text))
}

// Check はメッセージが送信してよい内容かを判定する。
// 問題がなければ（必要に応じて書き換えた）メッセージを返す。
func (c *Client) Check(ctx context.Context, text string) (string, error) {
	return c.run(ctx, "check", checkPrompt(text))
}

func (c *Client) run(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()
	out, err := c.generate(ctx, prompt)

	outcome := metrics.AIOutcomeOK
	switch {
	case err != nil:
		outcome = metrics.AIOutcomeError
		c.logger.ErrorContext(ctx, "AI request failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	case out == Sentinel || out == "":
		outcome = metrics.AIOutcomeRejected
		c.logger.InfoContext(ctx, "AI flagged message", slog.String("operation", operation))
	}
	if c.metrics != nil {
		c.metrics.RecordAIRequest(operation, outcome, time.Since(start))
	}
	return out, err
}

// generate はプロンプトを送信し、最初の候補のテキストをトリムして返す。
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generateContent failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Text()), nil
}

// compile-time interface check
var _ Moderator = (*Client)(nil)
