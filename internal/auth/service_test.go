package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/kudos/internal/model"
	"github.com/hitoshi/kudos/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn       func(ctx context.Context, email string) (*model.User, error)
	createWithProfileFn func(ctx context.Context, user *model.User, profile *model.Profile) error
	updatePasswordFn    func(ctx context.Context, id, hash string) error
	confirmEmailFn      func(ctx context.Context, id string, at time.Time) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	if m.createWithProfileFn != nil {
		return m.createWithProfileFn(ctx, user, profile)
	}
	return nil
}

func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserRepo) ConfirmEmail(ctx context.Context, id string, at time.Time) error {
	if m.confirmEmailFn != nil {
		return m.confirmEmailFn(ctx, id, at)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	findAnyByIDFn    func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) FindAnyByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findAnyByIDFn != nil {
		return m.findAnyByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockTokenRepo struct {
	tokens map[string]*model.AuthToken
}

func (m *mockTokenRepo) Create(_ context.Context, token *model.AuthToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]*model.AuthToken)
	}
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *mockTokenRepo) Consume(_ context.Context, hash, purpose string, now time.Time) (*model.AuthToken, error) {
	t, ok := m.tokens[hash]
	if !ok || t.Purpose != purpose || t.UsedAt != nil || !t.ExpiresAt.After(now) {
		return nil, nil
	}
	t.UsedAt = &now
	return t, nil
}

type capturedMail struct {
	to, subject, body string
}

type mockMailer struct {
	sent []capturedMail
}

func (m *mockMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent = append(m.sent, capturedMail{to: to, subject: subject, body: body})
	return nil
}

// plainHasher はテスト高速化のための可逆ではない簡易ハッシュ。
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error)    { return "hashed:" + p, nil }
func (plainHasher) Verify(p, h string) (bool, error) { return h == "hashed:"+p, nil }

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.AuthTokenRepository = (*mockTokenRepo)(nil)
var _ Mailer = (*mockMailer)(nil)
var _ PasswordHasher = plainHasher{}

func newTestService(users *mockUserRepo, sessions *mockSessionRepo, tokens *mockTokenRepo, mailer *mockMailer) *Service {
	return NewService(users, sessions, tokens, plainHasher{}, mailer, NewEventBus(), ServiceConfig{
		SessionMaxAge: 3600,
		BaseURL:       "http://localhost:8080",
	})
}

// tokenFromMail はメール本文のリンクからトークンを取り出す。
func tokenFromMail(t *testing.T, body string) string {
	t.Helper()
	u, err := url.Parse(body)
	if err != nil {
		t.Fatalf("mail body is not a URL: %v", err)
	}
	return u.Query().Get("token")
}

// --- テスト ---

func TestSignUp_CreatesUnconfirmedUserAndSendsConfirmation(t *testing.T) {
	var created *model.User
	var createdProfile *model.Profile
	users := &mockUserRepo{
		createWithProfileFn: func(ctx context.Context, user *model.User, profile *model.Profile) error {
			created, createdProfile = user, profile
			return nil
		},
	}
	mailer := &mockMailer{}
	svc := newTestService(users, &mockSessionRepo{}, &mockTokenRepo{}, mailer)

	user, err := svc.SignUp(context.Background(), " alice@example.com ", "secret1!", model.ProfileMetadata{
		FullName: "Alice", OrganizationID: "org-1", Position: "Designer",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if user.ID == "" || created == nil || created.ID != user.ID {
		t.Fatalf("created user = %+v, returned = %+v", created, user)
	}
	if created.EmailConfirmedAt != nil {
		t.Error("new user should not be confirmed")
	}
	if created.PasswordHash != "hashed:secret1!" {
		t.Errorf("PasswordHash = %q", created.PasswordHash)
	}
	if createdProfile.FullName != "Alice" || createdProfile.OrganizationID != "org-1" || createdProfile.Position != "Designer" {
		t.Errorf("profile = %+v", createdProfile)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "alice@example.com" {
		t.Fatalf("mails = %+v, want one confirmation mail", mailer.sent)
	}
	if !strings.HasPrefix(mailer.sent[0].body, "http://localhost:8080/auth/confirm?token=") {
		t.Errorf("confirmation link = %q", mailer.sent[0].body)
	}
}

func TestSignUp_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		meta     model.ProfileMetadata
		want     error
	}{
		{"invalid email", "not-an-email", "secret1!", model.ProfileMetadata{FullName: "A", OrganizationID: "o"}, ErrInvalidEmail},
		{"short password", "a@example.com", "12345", model.ProfileMetadata{FullName: "A", OrganizationID: "o"}, ErrPasswordTooShort},
		{"short multibyte password", "a@example.com", "ééééé", model.ProfileMetadata{FullName: "A", OrganizationID: "o"}, ErrPasswordTooShort},
		{"missing name", "a@example.com", "secret1!", model.ProfileMetadata{OrganizationID: "o"}, ErrMissingProfile},
		{"missing org", "a@example.com", "secret1!", model.ProfileMetadata{FullName: "A"}, ErrMissingProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockUserRepo{}, &mockSessionRepo{}, &mockTokenRepo{}, &mockMailer{})
			_, err := svc.SignUp(context.Background(), tt.email, tt.password, tt.meta)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignUp_DuplicateEmail_ReturnsAlreadyRegistered(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
	}
	svc := newTestService(users, &mockSessionRepo{}, &mockTokenRepo{}, &mockMailer{})

	_, err := svc.SignUp(context.Background(), "a@example.com", "secret1!", model.ProfileMetadata{FullName: "A", OrganizationID: "o"})
	if !errors.Is(err, ErrUserAlreadyRegistered) {
		t.Errorf("error = %v, want ErrUserAlreadyRegistered", err)
	}
}

func TestSignInWithPassword_Success_CreatesSessionAndPublishesEvent(t *testing.T) {
	confirmed := time.Now().Add(-time.Hour)
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: "hashed:secret1!", EmailConfirmedAt: &confirmed}, nil
		},
	}
	var saved *model.Session
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *model.Session) error {
			saved = s
			return nil
		},
	}
	svc := newTestService(users, sessions, &mockTokenRepo{}, &mockMailer{})

	var events []model.AuthEvent
	svc.Events().Subscribe(func(e model.AuthEvent, s *model.Session) { events = append(events, e) })

	session, err := svc.SignInWithPassword(context.Background(), "a@example.com", "secret1!")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if saved == nil || saved.ID != session.ID {
		t.Fatalf("session not persisted: saved=%+v returned=%+v", saved, session)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if session.EmailConfirmedAt == nil {
		t.Error("session should carry the email confirmation timestamp")
	}
	if d := time.Until(session.ExpiresAt); d < 59*time.Minute || d > time.Hour {
		t.Errorf("ExpiresAt in %v, want about 1h", d)
	}
	if len(events) != 1 || events[0] != model.AuthEventSignedIn {
		t.Errorf("events = %v, want [SIGNED_IN]", events)
	}
}

func TestSignInWithPassword_WrongPasswordOrUnknownUser(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
	}{
		{"unknown user", nil},
		{"wrong password", &model.User{ID: "user-1", PasswordHash: "hashed:other"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserRepo{
				findByEmailFn: func(ctx context.Context, email string) (*model.User, error) { return tt.user, nil },
			}
			svc := newTestService(users, &mockSessionRepo{}, &mockTokenRepo{}, &mockMailer{})

			_, err := svc.SignInWithPassword(context.Background(), "a@example.com", "secret1!")
			if !errors.Is(err, ErrInvalidLogin) {
				t.Errorf("error = %v, want ErrInvalidLogin", err)
			}
		})
	}
}

func TestSignOut_DeletesSessionAndPublishesEvent(t *testing.T) {
	var deleted string
	sessions := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestService(&mockUserRepo{}, sessions, &mockTokenRepo{}, &mockMailer{})
	var events []model.AuthEvent
	svc.Events().Subscribe(func(e model.AuthEvent, s *model.Session) { events = append(events, e) })

	if err := svc.SignOut(context.Background(), "s-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deleted != "s-1" {
		t.Errorf("deleted = %q, want s-1", deleted)
	}
	if len(events) != 1 || events[0] != model.AuthEventSignedOut {
		t.Errorf("events = %v, want [SIGNED_OUT]", events)
	}
}

func TestSignOut_EmptySessionID_ReturnsError(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{}, &mockTokenRepo{}, &mockMailer{})
	if err := svc.SignOut(context.Background(), ""); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestGetSession_ReturnsExpiredSessions(t *testing.T) {
	expired := &model.Session{ID: "s-1", ExpiresAt: time.Now().Add(-time.Hour)}
	sessions := &mockSessionRepo{
		findAnyByIDFn: func(ctx context.Context, id string) (*model.Session, error) { return expired, nil },
	}
	svc := newTestService(&mockUserRepo{}, sessions, &mockTokenRepo{}, &mockMailer{})

	got, err := svc.GetSession(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != expired {
		t.Errorf("GetSession = %+v, want expired session", got)
	}

	none, err := svc.GetSession(context.Background(), "")
	if err != nil || none != nil {
		t.Errorf("GetSession(\"\") = %+v, %v; want nil, nil", none, err)
	}
}

func TestResetPasswordForEmail_UnknownEmail_SendsNothing(t *testing.T) {
	mailer := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{}, &mockTokenRepo{}, mailer)

	if err := svc.ResetPasswordForEmail(context.Background(), "nobody@example.com", ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("mails = %+v, want none", mailer.sent)
	}
}

func TestPasswordResetFlow_UpdatesPasswordAndRevokesSessions(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email}, nil
		},
	}
	var newHash string
	users.updatePasswordFn = func(ctx context.Context, id, hash string) error {
		newHash = hash
		return nil
	}
	var revoked string
	sessions := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			revoked = userID
			return nil
		},
	}
	mailer := &mockMailer{}
	svc := newTestService(users, sessions, &mockTokenRepo{}, mailer)

	if err := svc.ResetPasswordForEmail(context.Background(), "a@example.com", "http://app.local/reset-password"); err != nil {
		t.Fatalf("ResetPasswordForEmail returned error: %v", err)
	}
	if len(mailer.sent) != 1 || !strings.HasPrefix(mailer.sent[0].body, "http://app.local/reset-password?token=") {
		t.Fatalf("mails = %+v", mailer.sent)
	}
	token := tokenFromMail(t, mailer.sent[0].body)

	if err := svc.CompletePasswordReset(context.Background(), token, "newpass1!"); err != nil {
		t.Fatalf("CompletePasswordReset returned error: %v", err)
	}
	if newHash != "hashed:newpass1!" {
		t.Errorf("new hash = %q", newHash)
	}
	if revoked != "user-1" {
		t.Errorf("revoked sessions of %q, want user-1", revoked)
	}

	if err := svc.CompletePasswordReset(context.Background(), token, "again1!!"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reusing token error = %v, want ErrInvalidToken", err)
	}
}

func TestConfirmEmail_ValidToken_ConfirmsUser(t *testing.T) {
	var confirmedID string
	users := &mockUserRepo{
		confirmEmailFn: func(ctx context.Context, id string, at time.Time) error {
			confirmedID = id
			return nil
		},
	}
	mailer := &mockMailer{}
	svc := newTestService(users, &mockSessionRepo{}, &mockTokenRepo{}, mailer)

	if _, err := svc.SignUp(context.Background(), "a@example.com", "secret1!", model.ProfileMetadata{FullName: "A", OrganizationID: "o"}); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	token := tokenFromMail(t, mailer.sent[0].body)

	if err := svc.ConfirmEmail(context.Background(), token); err != nil {
		t.Fatalf("ConfirmEmail returned error: %v", err)
	}
	if confirmedID == "" {
		t.Error("user was not confirmed")
	}

	if err := svc.ConfirmEmail(context.Background(), "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("bogus token error = %v, want ErrInvalidToken", err)
	}
}
