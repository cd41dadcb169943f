package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/optifit/backend/internal/db"
	"github.com/optifit/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type recordingMetrics struct {
	mu     sync.Mutex
	events []string
}

func (m *recordingMetrics) RecordAuthEvent(event, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event+":"+outcome)
}

type fakeProvider struct {
	identity *model.ExternalIdentity
	err      error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*model.ExternalIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

type authFixture struct {
	store   *memStore
	tokens  *TokenService
	metrics *recordingMetrics
	svc     *AuthService
}

func newAuthFixture(t *testing.T, provider ExternalProvider) *authFixture {
	t.Helper()
	store := newMemStore()
	tokens := newTestTokenService(t, &fakeClock{t: time.Now().Truncate(time.Second)})
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher() error = %v", err)
	}
	metrics := &recordingMetrics{}
	return &authFixture{
		store:   store,
		tokens:  tokens,
		metrics: metrics,
		svc:     NewAuthService(store, tokens, hasher, provider, metrics),
	}
}

func (f *authFixture) register(t *testing.T, email, password string) *model.AuthResult {
	t.Helper()
	result, err := f.svc.Register(context.Background(), model.RegisterRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return result
}

func TestRegisterIssuesTokens(t *testing.T) {
	f := newAuthFixture(t, nil)
	result := f.register(t, " A@X.com ", "secret123")

	if result.User.Email != "a@x.com" {
		t.Fatalf("email = %q, want a@x.com", result.User.Email)
	}
	claims, err := f.tokens.Verify(result.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != result.User.ID {
		t.Fatalf("subject = %q, want %q", claims.Subject, result.User.ID)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(strings.ToLower(string(raw)), "password") {
		t.Fatalf("response leaks password field: %s", raw)
	}

	activity := f.store.activityFor(result.User.ID)
	if len(activity) != 1 || activity[0].EventType != model.ActivityRegister {
		t.Fatalf("activity = %+v", activity)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.com", "secret123")

	result, err := f.svc.Register(context.Background(), model.RegisterRequest{Email: "A@x.com", Password: "another1"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no tokens on conflict")
	}
	if n := f.store.userCount(); n != 1 {
		t.Fatalf("user count = %d, want 1", n)
	}
}

func TestRegisterActivityFailureLeavesNoUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.store.activityErr = errors.New("activity insert down")

	if _, err := f.svc.Register(context.Background(), model.RegisterRequest{Email: "a@x.com", Password: "secret123"}); err == nil {
		t.Fatalf("expected register to fail")
	}
	if n := f.store.userCount(); n != 0 {
		t.Fatalf("user count = %d, want 0 after failed register", n)
	}

	f.store.activityErr = nil
	result := f.register(t, "a@x.com", "secret123")
	if got := f.store.activityFor(result.User.ID); len(got) != 1 || got[0].EventType != model.ActivityRegister {
		t.Fatalf("activity = %+v, want one register entry", got)
	}
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	f := newAuthFixture(t, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(context.Background(), model.RegisterRequest{Email: "race@x.com", Password: "secret123"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || f.store.userCount() != 1 {
		t.Fatalf("succeeded = %d, users = %d", succeeded, f.store.userCount())
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t, nil)
	tests := map[string]model.RegisterRequest{
		"missing email":  {Password: "secret123"},
		"invalid email":  {Email: "not-an-email", Password: "secret123"},
		"short password": {Email: "a@x.com", Password: "abc"},
		"long password":  {Email: "a@x.com", Password: strings.Repeat("p", 73)},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := f.svc.Register(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.com", "secret123")

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:     "A@X.COM",
		Password:  "secret123",
		LoginMeta: LoginMeta{IP: "203.0.113.7", UserAgent: "test-agent"},
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Fatalf("user id = %q, want %q", result.User.ID, registered.User.ID)
	}
	if _, err := f.tokens.VerifyAccess(result.Token); err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}

	var login *model.ActivityLog
	for _, entry := range f.store.activityFor(result.User.ID) {
		if entry.EventType == model.ActivityLogin {
			entry := entry
			login = &entry
		}
	}
	if login == nil {
		t.Fatalf("expected login activity entry")
	}
	if login.EventData["ip"] != "203.0.113.7" || login.EventData["userAgent"] != "test-agent" {
		t.Fatalf("event data = %+v", login.EventData)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.com", "secret123")
	f.register(t, "gone@x.com", "secret123")
	gone, _ := f.store.GetUserByEmail(context.Background(), "gone@x.com")
	_ = f.store.SetUserActive(context.Background(), gone.ID, false)

	tests := []struct {
		name  string
		input LoginInput
	}{
		{name: "wrong password", input: LoginInput{Email: "a@x.com", Password: "wrong"}},
		{name: "unknown email", input: LoginInput{Email: "b@x.com", Password: "secret123"}},
		{name: "empty password", input: LoginInput{Email: "a@x.com"}},
		{name: "inactive identity", input: LoginInput{Email: "gone@x.com", Password: "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.Login(context.Background(), tt.input)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if result != nil {
				t.Fatalf("expected no tokens")
			}
		})
	}

	for _, entry := range f.store.activityFor(registered.User.ID) {
		if entry.EventType == model.ActivityLogin {
			t.Fatalf("failed login must not be recorded")
		}
	}
}

func TestExternalLoginIdempotent(t *testing.T) {
	f := newAuthFixture(t, nil)
	identity := model.ExternalIdentity{Provider: "google", ExternalID: "g-123", Email: "new@x.com", GivenName: "Ada", FamilyName: "L"}

	first, err := f.svc.ExternalLogin(context.Background(), identity, LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	second, err := f.svc.ExternalLogin(context.Background(), identity, LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("ids differ: %q vs %q", first.User.ID, second.User.ID)
	}
	if n := f.store.userCount(); n != 1 {
		t.Fatalf("user count = %d, want 1", n)
	}
	if first.User.FirstName != "Ada" {
		t.Fatalf("first name = %q", first.User.FirstName)
	}
}

func TestExternalLoginLinksExistingEmail(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.com", "secret123")

	result, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "a@x.com"}, LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Fatalf("expected link onto existing identity")
	}
	linked, _ := f.store.GetUserByID(context.Background(), registered.User.ID)
	if linked.ExternalID == nil || *linked.ExternalID != "g-1" {
		t.Fatalf("external id not linked: %+v", linked.ExternalID)
	}
}

func TestExternalLoginPrefersExternalID(t *testing.T) {
	f := newAuthFixture(t, nil)
	linked, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "first@x.com"}, LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	f.register(t, "second@x.com", "secret123")

	result, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "second@x.com"}, LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	if result.User.ID != linked.User.ID {
		t.Fatalf("external id match must win over email match")
	}
}

func TestExternalLoginRejectsEmailLinkedElsewhere(t *testing.T) {
	f := newAuthFixture(t, nil)
	if _, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "a@x.com"}, LoginMeta{}); err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	_, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-2", Email: "a@x.com"}, LoginMeta{})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestExternalLoginLostCreateRace(t *testing.T) {
	f := newAuthFixture(t, nil)
	identity := model.ExternalIdentity{ExternalID: "g-9", Email: "race@x.com"}

	var winner *model.User
	f.store.createHook = func() error {
		f.store.createHook = nil
		var err error
		winner, err = f.store.CreateUser(context.Background(), model.NewUser{Email: "race@x.com", PasswordHash: "x"})
		return err
	}

	result, err := f.svc.ExternalLogin(context.Background(), identity, LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	if result.User.ID != winner.ID || f.store.userCount() != 1 {
		t.Fatalf("expected to resolve onto the concurrently created identity")
	}
}

func TestExternalLoginInactive(t *testing.T) {
	f := newAuthFixture(t, nil)
	first, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "a@x.com"}, LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalLogin() error = %v", err)
	}
	_ = f.store.SetUserActive(context.Background(), first.User.ID, false)

	if _, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "a@x.com"}, LoginMeta{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestExternalLoginInactiveEmailMatchIsNotLinked(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.com", "secret123")
	_ = f.store.SetUserActive(context.Background(), registered.User.ID, false)

	_, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "a@x.com"}, LoginMeta{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	user, _ := f.store.GetUserByID(context.Background(), registered.User.ID)
	if user.ExternalID != nil {
		t.Fatalf("rejected login linked external id %q", *user.ExternalID)
	}
}

func TestExternalLoginConcurrentLinkConflict(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.com", "secret123")
	f.store.linkErr = fmt.Errorf("%w: users_external_id_key", db.ErrConflict)

	_, err := f.svc.ExternalLogin(context.Background(), model.ExternalIdentity{ExternalID: "g-1", Email: "a@x.com"}, LoginMeta{})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestExternalFlowWithoutProvider(t *testing.T) {
	f := newAuthFixture(t, nil)
	if _, err := f.svc.ExternalAuthURL("state"); !errors.Is(err, ErrExternalDisabled) {
		t.Fatalf("expected ErrExternalDisabled, got %v", err)
	}
	if _, err := f.svc.ExternalCallback(context.Background(), "code", LoginMeta{}); !errors.Is(err, ErrExternalDisabled) {
		t.Fatalf("expected ErrExternalDisabled, got %v", err)
	}
}

func TestExternalCallback(t *testing.T) {
	provider := &fakeProvider{identity: &model.ExternalIdentity{Provider: "google", ExternalID: "g-5", Email: "cb@x.com"}}
	f := newAuthFixture(t, provider)

	url, err := f.svc.ExternalAuthURL("abc")
	if err != nil || !strings.Contains(url, "state=abc") {
		t.Fatalf("ExternalAuthURL() = %q, %v", url, err)
	}

	result, err := f.svc.ExternalCallback(context.Background(), "code", LoginMeta{})
	if err != nil {
		t.Fatalf("ExternalCallback() error = %v", err)
	}
	if result.User.Email != "cb@x.com" {
		t.Fatalf("email = %q", result.User.Email)
	}

	provider.err = errors.New("exchange failed")
	if _, err := f.svc.ExternalCallback(context.Background(), "code", LoginMeta{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.com", "secret123")

	pair, err := f.svc.Refresh(context.Background(), registered.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	claims, err := f.tokens.VerifyAccess(pair.AccessToken)
	if err != nil || claims.UserID != registered.User.ID {
		t.Fatalf("VerifyAccess() = %+v, %v", claims, err)
	}
	if _, err := f.tokens.Verify(pair.RefreshToken); err != nil {
		t.Fatalf("new refresh token invalid: %v", err)
	}
}

func TestRefreshFailures(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.com", "secret123")
	deactivated := f.register(t, "gone@x.com", "secret123")
	_ = f.store.SetUserActive(context.Background(), deactivated.User.ID, false)

	unknown, err := f.tokens.IssueRefreshToken(&model.User{ID: "11111111-1111-1111-1111-111111111111", Email: "ghost@x.com"})
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	tests := map[string]string{
		"garbage":             "garbage",
		"access token":        registered.Token,
		"deactivated account": deactivated.RefreshToken,
		"unknown identity":    unknown,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := f.svc.Refresh(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.com", "secret123")

	err := f.svc.ChangePassword(context.Background(), registered.User.ID, model.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newsecret"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	err = f.svc.ChangePassword(context.Background(), registered.User.ID, model.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "newsecret"})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "secret123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "newsecret"}); err != nil {
		t.Fatalf("Login() with new password error = %v", err)
	}
}

func TestAuthMetricsRecorded(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.com", "secret123")
	_, _ = f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "wrong"})

	want := []string{"register:success", "login:failure"}
	if len(f.metrics.events) != len(want) {
		t.Fatalf("events = %v, want %v", f.metrics.events, want)
	}
	for i := range want {
		if f.metrics.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", f.metrics.events, want)
		}
	}
}
