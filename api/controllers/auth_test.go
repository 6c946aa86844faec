package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tamarLevanoni/couple-time-backend/internal/auth"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
)

type testAuthService struct {
	registerFn func(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error)
	loginFn    func(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error)
}

func (s *testAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, req)
	}
	return &auth.AuthResponse{}, nil
}

func (s *testAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return &auth.AuthResponse{}, nil
}

func TestAuthRegisterForwardsPayload(t *testing.T) {
	var captured auth.RegisterRequest
	svc := &testAuthService{
		registerFn: func(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
			captured = req
			return &auth.AuthResponse{AccessToken: "token"}, nil
		},
	}

	body := `{"first_name":"Dana","last_name":"Levi","email":"dana@example.com","password":"long-enough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRegister(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Email != "dana@example.com" || captured.FirstName != "Dana" {
		t.Fatalf("unexpected payload %+v", captured)
	}
	var envelope struct {
		Data auth.AuthResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.AccessToken != "token" {
		t.Fatalf("unexpected token %q", envelope.Data.AccessToken)
	}
}

func TestAuthRegisterRejectsShortPassword(t *testing.T) {
	body := `{"first_name":"Dana","last_name":"Levi","email":"dana@example.com","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRegister(&testAuthService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginMapsAuthError(t *testing.T) {
	svc := &testAuthService{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		},
	}

	body := `{"email":"dana@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLoginRejectsMissingEmail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"password":"whatever"}`))
	resp := httptest.NewRecorder()
	AuthLogin(&testAuthService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
