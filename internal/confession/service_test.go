package confession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/security"
)

type mockConfessionRepo struct {
	created      []*model.Confession
	createErr    error
	listActiveFn func(ctx context.Context, viewerID string, now time.Time, limit int) ([]model.Confession, error)
}

func (m *mockConfessionRepo) Create(ctx context.Context, c *model.Confession) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, c)
	return nil
}

func (m *mockConfessionRepo) ListActive(ctx context.Context, viewerID string, now time.Time, limit int) ([]model.Confession, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, viewerID, now, limit)
	}
	return nil, nil
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockConfessionRepo) *Service {
	s := NewService(repo, security.NewContentSanitizer(), nil, nil, 0)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestSubmit_SetsExpiryTwentyFourHoursLater(t *testing.T) {
	repo := &mockConfessionRepo{}
	svc := newTestService(repo)

	c, err := svc.Submit(context.Background(), "u1", "  I ate the last donut.  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if c.Message != "I ate the last donut." {
		t.Errorf("Message = %q", c.Message)
	}
	if !c.CreatedAt.Equal(fixedNow) || !c.ExpiresAt.Equal(fixedNow.Add(24*time.Hour)) {
		t.Errorf("CreatedAt=%v ExpiresAt=%v", c.CreatedAt, c.ExpiresAt)
	}
	if c.AuthorID != "u1" || !c.IsOwn || c.ID == "" {
		t.Errorf("confession = %+v", c)
	}
	if len(repo.created) != 1 {
		t.Errorf("created = %d, want 1", len(repo.created))
	}
}

func TestSubmit_EmptyMessageRejected(t *testing.T) {
	for _, msg := range []string{"", "   ", "\n\t", "<b></b>"} {
		repo := &mockConfessionRepo{}
		_, err := newTestService(repo).Submit(context.Background(), "u1", msg)

		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
			t.Errorf("Submit(%q) error = %v, want validation error", msg, err)
		}
		if len(repo.created) != 0 {
			t.Errorf("Submit(%q) stored a confession", msg)
		}
	}
}

func TestSubmit_RepositoryError(t *testing.T) {
	repo := &mockConfessionRepo{createErr: errors.New("db down")}
	if _, err := newTestService(repo).Submit(context.Background(), "u1", "hello"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestList_PassesViewerNowAndLimit(t *testing.T) {
	var gotViewer string
	var gotNow time.Time
	var gotLimit int
	repo := &mockConfessionRepo{
		listActiveFn: func(ctx context.Context, viewerID string, now time.Time, limit int) ([]model.Confession, error) {
			gotViewer, gotNow, gotLimit = viewerID, now, limit
			return []model.Confession{{ID: "c1", IsOwn: true}, {ID: "c2"}}, nil
		},
	}

	items := newTestService(repo).List(context.Background(), "u1")
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if gotViewer != "u1" || !gotNow.Equal(fixedNow) || gotLimit != 50 {
		t.Errorf("ListActive(%q, %v, %d)", gotViewer, gotNow, gotLimit)
	}
}

func TestList_ErrorReturnsEmpty(t *testing.T) {
	repo := &mockConfessionRepo{
		listActiveFn: func(ctx context.Context, viewerID string, now time.Time, limit int) ([]model.Confession, error) {
			return nil, errors.New("timeout")
		},
	}
	items := newTestService(repo).List(context.Background(), "u1")
	if items == nil || len(items) != 0 {
		t.Errorf("items = %#v, want empty non-nil slice", items)
	}
}

func TestTimeRemaining(t *testing.T) {
	created := fixedNow
	expires := created.Add(DefaultTTL)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"just posted", 0, "24h 0m left"},
		{"one minute in", time.Minute, "23h 59m left"},
		{"half way", 12*time.Hour + 30*time.Minute, "11h 30m left"},
		{"under an hour", 23*time.Hour + 15*time.Minute, "45m left"},
		{"seconds left", 24*time.Hour - 30*time.Second, "0m left"},
		{"exactly expired", 24 * time.Hour, "Expired"},
		{"long expired", 48 * time.Hour, "Expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeRemaining(expires, created.Add(tt.elapsed)); got != tt.want {
				t.Errorf("TimeRemaining = %q, want %q", got, tt.want)
			}
		})
	}
}
