package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/kudos/internal/compliment"
	"github.com/hitoshi/kudos/internal/middleware"
	"github.com/hitoshi/kudos/internal/model"
)

// --- テストヘルパー ---

func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
	return v
}

// --- モック定義 ---

type mockAuthService struct {
	signInFn        func(ctx context.Context, email, password string) (*model.Session, error)
	signUpFn        func(ctx context.Context, email, password string, meta model.ProfileMetadata) (*model.User, error)
	signOutFn       func(ctx context.Context, sessionID string) error
	getSessionFn    func(ctx context.Context, sessionID string) (*model.Session, error)
	resetFn         func(ctx context.Context, email, redirectTo string) error
	confirmFn       func(ctx context.Context, token string) error
	completeResetFn func(ctx context.Context, token, newPassword string) error
}

func (m *mockAuthService) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password string, meta model.ProfileMetadata) (*model.User, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password, meta)
	}
	return nil, nil
}

func (m *mockAuthService) SignOut(ctx context.Context, sessionID string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if m.resetFn != nil {
		return m.resetFn(ctx, email, redirectTo)
	}
	return nil
}

func (m *mockAuthService) ConfirmEmail(ctx context.Context, token string) error {
	if m.confirmFn != nil {
		return m.confirmFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if m.completeResetFn != nil {
		return m.completeResetFn(ctx, token, newPassword)
	}
	return nil
}

type mockProfileLoader struct {
	profiles map[string]*model.Profile
}

func (m *mockProfileLoader) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return m.profiles[userID], nil
}

type mockDraftStore struct {
	saved map[string][]byte
}

func (m *mockDraftStore) Save(ctx context.Context, userID, key string, payload []byte) error {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[userID+"/"+key] = payload
	return nil
}

type mockSignInRecorder struct {
	results []bool
}

func (m *mockSignInRecorder) RecordSignIn(success bool) {
	m.results = append(m.results, success)
}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.Expired(time.Now()) {
		return nil, nil
	}
	return s, nil
}

type mockFeedService struct {
	listFn func(ctx context.Context, orgFilter string) []feedItemResponse
}

func (m *mockFeedService) List(ctx context.Context, orgFilter string) []feedItemResponse {
	if m.listFn != nil {
		return m.listFn(ctx, orgFilter)
	}
	return nil
}

type mockLeaderboardService struct {
	buildFn func(ctx context.Context, orgFilter string, timeFrame model.TimeFrame) []leaderboardEntryResponse
}

func (m *mockLeaderboardService) Build(ctx context.Context, orgFilter string, timeFrame model.TimeFrame) []leaderboardEntryResponse {
	if m.buildFn != nil {
		return m.buildFn(ctx, orgFilter, timeFrame)
	}
	return nil
}

type mockComplimentService struct {
	listOrgsFn       func(ctx context.Context) ([]model.Organization, error)
	listRecipientsFn func(ctx context.Context, orgID, currentUserID, search string) ([]model.UserSummary, error)
	enhanceFn        func(ctx context.Context, message string) (string, error)
	submitFn         func(ctx context.Context, in compliment.SubmitInput) (*model.Compliment, error)
}

func (m *mockComplimentService) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	if m.listOrgsFn != nil {
		return m.listOrgsFn(ctx)
	}
	return nil, nil
}

func (m *mockComplimentService) ListRecipients(ctx context.Context, orgID, currentUserID, search string) ([]model.UserSummary, error) {
	if m.listRecipientsFn != nil {
		return m.listRecipientsFn(ctx, orgID, currentUserID, search)
	}
	return nil, nil
}

func (m *mockComplimentService) EnhanceMessage(ctx context.Context, message string) (string, error) {
	if m.enhanceFn != nil {
		return m.enhanceFn(ctx, message)
	}
	return message, nil
}

func (m *mockComplimentService) Submit(ctx context.Context, in compliment.SubmitInput) (*model.Compliment, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, in)
	}
	return &model.Compliment{ID: "c-1", FromUserID: in.FromUserID, ToUserID: in.ToUserID, Message: in.Message, IsAnonymous: in.IsAnonymous, IsModerated: true}, nil
}

type mockConfessionService struct {
	listFn   func(ctx context.Context, viewerID string) []confessionResponse
	submitFn func(ctx context.Context, authorID, message string) (*confessionResponse, error)
}

func (m *mockConfessionService) List(ctx context.Context, viewerID string) []confessionResponse {
	if m.listFn != nil {
		return m.listFn(ctx, viewerID)
	}
	return nil
}

func (m *mockConfessionService) Submit(ctx context.Context, authorID, message string) (*confessionResponse, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, authorID, message)
	}
	return &confessionResponse{ID: "cf-1", Message: message, IsOwn: true}, nil
}

type mockProfileService struct {
	loadFn     func(ctx context.Context, userID string) (*model.Profile, error)
	updateFn   func(ctx context.Context, userID, fullName, position string) (*model.Profile, error)
	passwordFn func(ctx context.Context, userID, newPassword string) error
	avatarFn   func(ctx context.Context, userID, avatarURL string) (*model.Profile, error)
	receivedFn func(ctx context.Context, userID string) receivedSummaryResponse
}

func (m *mockProfileService) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, userID, fullName, position string) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, fullName, position)
	}
	return &model.Profile{ID: userID, FullName: fullName, Position: position}, nil
}

func (m *mockProfileService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if m.passwordFn != nil {
		return m.passwordFn(ctx, userID, newPassword)
	}
	return nil
}

func (m *mockProfileService) UpdateAvatar(ctx context.Context, userID, avatarURL string) (*model.Profile, error) {
	if m.avatarFn != nil {
		return m.avatarFn(ctx, userID, avatarURL)
	}
	return &model.Profile{ID: userID}, nil
}

func (m *mockProfileService) ReceivedCompliments(ctx context.Context, userID string) receivedSummaryResponse {
	if m.receivedFn != nil {
		return m.receivedFn(ctx, userID)
	}
	return receivedSummaryResponse{Recent: []receivedComplimentResponse{}}
}
