package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/credentials"
	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/ErlanBelekov/snapdocs/internal/transport/http/handler"
	"github.com/ErlanBelekov/snapdocs/internal/usecase"
	"github.com/gin-gonic/gin"
)

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	signup     func(ctx context.Context, in usecase.SignupInput) (*domain.User, error)
	login      func(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	logout     func(ctx context.Context, raw string) error
	me         func(ctx context.Context, userID string) (*domain.User, error)
	policy     func(password string) (credentials.PolicyResult, error)
	emailAv    func(ctx context.Context, email string) (usecase.Availability, error)
	usernameAv func(ctx context.Context, username string) (usecase.Availability, error)
}

func (f *fakeAuthUsecase) Signup(ctx context.Context, in usecase.SignupInput) (*domain.User, error) {
	return f.signup(ctx, in)
}

func (f *fakeAuthUsecase) Login(ctx context.Context, email, password string) (*usecase.LoginResult, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuthUsecase) Logout(ctx context.Context, raw string) error {
	return f.logout(ctx, raw)
}

func (f *fakeAuthUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	return f.me(ctx, userID)
}

func (f *fakeAuthUsecase) CheckPasswordPolicy(password string) (credentials.PolicyResult, error) {
	return f.policy(password)
}

func (f *fakeAuthUsecase) CheckEmailAvailability(ctx context.Context, email string) (usecase.Availability, error) {
	return f.emailAv(ctx, email)
}

func (f *fakeAuthUsecase) CheckUsernameAvailability(ctx context.Context, username string) (usecase.Availability, error) {
	return f.usernameAv(ctx, username)
}

var testUser = &domain.User{
	ID:        testUserID,
	Email:     "ada@example.com",
	Username:  "ada",
	IsActive:  true,
	CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
}

func newAuthEngine(uc *fakeAuthUsecase) *gin.Engine {
	h := handler.NewAuthHandler(uc, testLogger)

	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", authAs(), h.Logout)
	r.GET("/auth/me", authAs(), h.Me)
	r.GET("/auth/verify", authAs(), h.Verify)
	r.POST("/auth/check-password-policy", h.CheckPasswordPolicy)
	r.POST("/auth/check-email-availability", h.CheckEmailAvailability)
	r.POST("/auth/check-username-availability", h.CheckUsernameAvailability)
	return r
}

// ---- Signup ----

func TestSignup_Created(t *testing.T) {
	var got usecase.SignupInput
	uc := &fakeAuthUsecase{signup: func(_ context.Context, in usecase.SignupInput) (*domain.User, error) {
		got = in
		return testUser, nil
	}}

	w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/signup",
		`{"username":"ada","email":"ada@example.com","password":"Str0ng!Pass","confirm_password":"Str0ng!Pass"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
	}
	if got.ConfirmPassword != "Str0ng!Pass" || got.Username != "ada" {
		t.Errorf("usecase got %+v", got)
	}
	body := decode(t, w)
	if body["id"] != testUserID || body["username"] != "ada" {
		t.Errorf("body = %v", body)
	}
	if _, leaked := body["password_hash"]; leaked {
		t.Error("password hash leaked into response")
	}
}

func TestSignup_InvalidJSON_Returns400(t *testing.T) {
	w := doJSON(newAuthEngine(&fakeAuthUsecase{}), http.MethodPost, "/auth/signup", `{bad json}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSignup_PolicyViolation_ListsRules(t *testing.T) {
	uc := &fakeAuthUsecase{signup: func(context.Context, usecase.SignupInput) (*domain.User, error) {
		return nil, &domain.ValidationError{
			Type:         domain.ValidationTypePasswordPolicy,
			Field:        "password",
			Message:      "Password does not meet security requirements",
			Violations:   []string{credentials.RuleSpecial.Message()},
			Requirements: map[string]bool{"has_special": false, "min_length": true},
		}
	}}

	w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/signup", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decode(t, w)
	if body["type"] != "password_policy" || body["field"] != "password" {
		t.Errorf("body = %v", body)
	}
	reqs, _ := body["requirements"].(map[string]any)
	if reqs["has_special"] != false {
		t.Errorf("requirements = %v", reqs)
	}
	if errs, _ := body["errors"].([]any); len(errs) != 1 {
		t.Errorf("errors = %v, want one message", body["errors"])
	}
}

func TestSignup_DuplicateErrors(t *testing.T) {
	tests := map[error]string{
		domain.ErrEmailTaken:    "email_exists",
		domain.ErrUsernameTaken: "username_exists",
	}
	for err, wantType := range tests {
		uc := &fakeAuthUsecase{signup: func(context.Context, usecase.SignupInput) (*domain.User, error) {
			return nil, err
		}}
		w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/signup", `{}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", err, w.Code)
		}
		if got := decode(t, w)["type"]; got != wantType {
			t.Errorf("%v: type = %v, want %s", err, got, wantType)
		}
	}
}

func TestSignup_InternalError_HidesDetail(t *testing.T) {
	uc := &fakeAuthUsecase{signup: func(context.Context, usecase.SignupInput) (*domain.User, error) {
		return nil, errors.New("pq: connection reset by peer")
	}}
	w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/signup", `{}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := decode(t, w)["detail"]; got != "Internal server error" {
		t.Errorf("detail = %v", got)
	}
}

// ---- Login / Logout ----

func TestLogin_ReturnsBearerToken(t *testing.T) {
	exp := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)
	uc := &fakeAuthUsecase{login: func(_ context.Context, email, password string) (*usecase.LoginResult, error) {
		if email != "ada@example.com" || password != "pw" {
			t.Errorf("login(%q, %q)", email, password)
		}
		return &usecase.LoginResult{Token: "jwt-abc", ExpiresAt: exp, User: testUser}, nil
	}}

	w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"pw"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["access_token"] != "jwt-abc" || body["token_type"] != "bearer" || body["username"] != "ada" {
		t.Errorf("body = %v", body)
	}
	if body["expires_at"] != "2026-01-01T13:00:00Z" {
		t.Errorf("expires_at = %v", body["expires_at"])
	}
}

func TestLogin_InvalidCredentials_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{login: func(context.Context, string, string) (*usecase.LoginResult, error) {
		return nil, domain.ErrInvalidCredentials
	}}
	w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/login", `{"email":"a@b.co","password":"x"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := decode(t, w)["type"]; got != "invalid_credentials" {
		t.Errorf("type = %v", got)
	}
}

func TestLogout_RevokesPresentedToken(t *testing.T) {
	var revoked string
	uc := &fakeAuthUsecase{logout: func(_ context.Context, raw string) error {
		revoked = raw
		return nil
	}}
	w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if revoked != "test-token" {
		t.Errorf("revoked %q, want test-token", revoked)
	}
}

// ---- Me / Verify ----

func TestMe_And_Verify(t *testing.T) {
	uc := &fakeAuthUsecase{me: func(_ context.Context, id string) (*domain.User, error) {
		if id != testUserID {
			return nil, domain.ErrUserNotFound
		}
		return testUser, nil
	}}
	r := newAuthEngine(uc)

	w := doJSON(r, http.MethodGet, "/auth/me", "")
	if w.Code != http.StatusOK || decode(t, w)["email"] != "ada@example.com" {
		t.Errorf("me: %d %s", w.Code, w.Body)
	}

	w = doJSON(r, http.MethodGet, "/auth/verify", "")
	body := decode(t, w)
	if w.Code != http.StatusOK || body["valid"] != true {
		t.Errorf("verify: %d %v", w.Code, body)
	}
}

// ---- checks ----

func TestCheckPasswordPolicy(t *testing.T) {
	uc := &fakeAuthUsecase{policy: func(pw string) (credentials.PolicyResult, error) {
		return credentials.CheckPassword(pw), nil
	}}
	w := doJSON(newAuthEngine(uc), http.MethodPost, "/auth/check-password-policy", `{"password":"short"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["valid"] != false {
		t.Errorf("valid = %v, want false", body["valid"])
	}
	reqs, _ := body["requirements"].(map[string]any)
	if reqs["min_length"] != false || reqs["has_lowercase"] != true {
		t.Errorf("requirements = %v", reqs)
	}
}

func TestCheckAvailability(t *testing.T) {
	uc := &fakeAuthUsecase{
		emailAv: func(_ context.Context, email string) (usecase.Availability, error) {
			return usecase.Availability{Value: email, Message: "Email is already registered"}, nil
		},
		usernameAv: func(_ context.Context, username string) (usecase.Availability, error) {
			if username == "" {
				return usecase.Availability{}, &domain.ValidationError{Type: domain.ValidationTypeGeneric, Field: "username", Message: "Username is required"}
			}
			return usecase.Availability{Value: username, Available: true, Message: "Username is available"}, nil
		},
	}
	r := newAuthEngine(uc)

	w := doJSON(r, http.MethodPost, "/auth/check-email-availability", `{"email":"ada@example.com"}`)
	body := decode(t, w)
	if w.Code != http.StatusOK || body["is_available"] != false || body["email"] != "ada@example.com" {
		t.Errorf("email: %d %v", w.Code, body)
	}

	w = doJSON(r, http.MethodPost, "/auth/check-username-availability", `{"username":"grace"}`)
	body = decode(t, w)
	if w.Code != http.StatusOK || body["is_available"] != true {
		t.Errorf("username: %d %v", w.Code, body)
	}

	w = doJSON(r, http.MethodPost, "/auth/check-username-availability", `{"username":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty username: status = %d, want 400", w.Code)
	}
}
