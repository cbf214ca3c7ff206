package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type execCall struct {
	query string
	args  []interface{}
}

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	mu     sync.Mutex
	calls  []execCall
	rows   int64
	failOn string
	err    error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, execCall{query: query, args: args})
	if m.err != nil && (m.failOn == "" || strings.Contains(query, m.failOn)) {
		return nil, m.err
	}
	return &fakeResult{rowsAffected: m.rows}, nil
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockMetrics struct {
	deleted map[string]int64
}

func (m *mockMetrics) RecordSignIn(bool)                             {}
func (m *mockMetrics) RecordAIRequest(string, string, time.Duration) {}
func (m *mockMetrics) RecordComplimentCreated(bool)                  {}
func (m *mockMetrics) RecordConfessionCreated()                      {}
func (m *mockMetrics) RecordLeaderboardBuild(time.Duration, int)     {}
func (m *mockMetrics) RecordCleanupDeleted(kind string, count int64) {
	if m.deleted == nil {
		m.deleted = make(map[string]int64)
	}
	m.deleted[kind] += count
}
func (m *mockMetrics) RecordHTTPStatus(int) {}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// logEntries はJSONログを1行ずつデコードする。
func logEntries(buf *bytes.Buffer) []map[string]interface{} {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

func TestCleanupJob_Run_DeletesAllTargetsWithNow(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{rows: 2}
	m := &mockMetrics{}
	job := NewCleanupJob(mock, newTestLogger(&buf), m)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if len(mock.calls) != 3 {
		t.Fatalf("ExecContext呼び出し回数 = %d, want 3", len(mock.calls))
	}
	wantCutoffs := []time.Time{now, now.Add(-SessionGracePeriod), now}
	for i, table := range []string{"confessions", "sessions", "auth_tokens"} {
		c := mock.calls[i]
		if !strings.Contains(c.query, "DELETE FROM "+table) {
			t.Errorf("calls[%d].query = %q, want DELETE FROM %s", i, c.query, table)
		}
		if len(c.args) != 1 || c.args[0] != wantCutoffs[i] {
			t.Errorf("calls[%d].args = %v, want [%v]", i, c.args, wantCutoffs[i])
		}
	}
	if !strings.Contains(mock.calls[2].query, "used_at IS NOT NULL") {
		t.Errorf("auth_tokensの削除は使用済みトークンも対象にするべき: %q", mock.calls[2].query)
	}

	for _, kind := range []string{"confessions", "sessions", "auth_tokens"} {
		if m.deleted[kind] != 2 {
			t.Errorf("metrics[%s] = %d, want 2", kind, m.deleted[kind])
		}
	}
}

func TestCleanupJob_Run_KeepsRecentlyExpiredSessions(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewCleanupJob(mock, newTestLogger(&buf), nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	// 1時間前に失効したセッションは削除の基準時刻より新しいので残る
	expiredAt := now.Add(-time.Hour)
	cutoff := mock.calls[1].args[0].(time.Time)
	if !expiredAt.After(cutoff) {
		t.Errorf("cutoff = %v, 1時間前に失効したセッション(%v)が削除対象になっている", cutoff, expiredAt)
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{rows: 14}, newTestLogger(&buf), nil)

	_ = job.Run(context.Background())

	found := false
	for _, entry := range logEntries(&buf) {
		if entry["msg"] == "クリーンアップジョブが完了しました" {
			found = true
			if entry["deleted_count"] != float64(42) {
				t.Errorf("deleted_count = %v, want 42", entry["deleted_count"])
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("ログに duration_ms が記録されていない")
			}
		}
	}
	if !found {
		t.Errorf("完了ログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_StopsOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{failOn: "sessions", err: sql.ErrConnDone}
	job := NewCleanupJob(mock, newTestLogger(&buf), nil)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
	if len(mock.calls) != 2 {
		t.Errorf("ExecContext呼び出し回数 = %d, want 2（失敗後は中断）", len(mock.calls))
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{}, newTestLogger(&buf), nil)

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{}
	job := NewCleanupJob(mock, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for mock.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() がキャンセル後に終了しない")
	}
	if mock.callCount() != 3 {
		t.Errorf("起動直後の実行回数 = %d, want 3", mock.callCount())
	}
}
