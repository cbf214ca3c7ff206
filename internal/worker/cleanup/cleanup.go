// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 失効した告白、期限切れのセッション、使用済みまたは期限切れの認証トークンを
// 一定間隔で削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/kudos/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SessionGracePeriod は期限切れセッションを削除せずに残す期間。
// この間に復元されたセッションは期限切れとして扱われ、明示的にサインアウトされる。
const SessionGracePeriod = 24 * time.Hour

// target は1種類の削除対象。
type target struct {
	kind  string
	query string
	grace time.Duration
}

// targets は削除対象と削除クエリ。$1には現在時刻からgraceを引いた時刻を渡す。
var targets = []target{
	{kind: "confessions", query: `DELETE FROM confessions WHERE expires_at <= $1`},
	{kind: "sessions", query: `DELETE FROM sessions WHERE expires_at <= $1`, grace: SessionGracePeriod},
	{kind: "auth_tokens", query: `DELETE FROM auth_tokens WHERE used_at IS NOT NULL OR expires_at <= $1`},
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	db      Executor
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, m metrics.MetricsCollector) *CleanupJob {
	return &CleanupJob{
		db:      db,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Start は指定間隔でジョブを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました", slog.Duration("interval", interval))

	j.runAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *CleanupJob) runAndLog(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Run はすべての削除対象を順に削除する。
// 途中で失敗した場合は残りの対象を実行せずにエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	now := j.now()

	var total int64
	for _, t := range targets {
		result, err := j.db.ExecContext(ctx, t.query, now.Add(-t.grace))
		if err != nil {
			j.logger.Error("クリーンアップの実行に失敗しました",
				slog.String("kind", t.kind),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("%sのクリーンアップに失敗: %w", t.kind, err)
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			j.logger.Error("削除件数の取得に失敗しました",
				slog.String("kind", t.kind),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("削除件数の取得に失敗: %w", err)
		}

		if j.metrics != nil {
			j.metrics.RecordCleanupDeleted(t.kind, deleted)
		}
		j.logger.Info("期限切れデータを削除しました",
			slog.String("kind", t.kind),
			slog.Int64("deleted_count", deleted),
		)
		total += deleted
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", total),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
