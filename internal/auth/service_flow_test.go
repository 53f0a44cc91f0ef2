package auth

import (
	"context"
	"testing"
	"time"
)

func TestRegisterLoginRefreshLogout(t *testing.T) {
	queries := newFakeQueries()
	svc, err := NewService(Config{
		Queries:         queries,
		Secret:          "super-secret-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	user, err := svc.Register(ctx, "Linh", "linh@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(user.Roles) == 0 || user.Roles[0] != "customer" {
		t.Fatalf("expected default customer role, got %v", user.Roles)
	}

	if _, err := svc.Login(ctx, "linh@example.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure with wrong password")
	}

	login, err := svc.Login(ctx, "linh@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Fatal("expected both tokens on login")
	}

	subject, err := svc.ParseAccessToken(login.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if subject != user.ID {
		t.Fatalf("token subject %q does not match user %q", subject, user.ID)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh must rotate the token")
	}

	// The rotated-out token is spent.
	if _, err := svc.Refresh(ctx, login.RefreshToken); err == nil {
		t.Fatal("expected replayed refresh token to be rejected")
	}

	if err := svc.Logout(ctx, refreshed.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, refreshed.RefreshToken); err == nil {
		t.Fatal("expected revoked token to be rejected")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, err := NewService(Config{Queries: newFakeQueries(), Secret: "super-secret-key"})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	if _, err := svc.Register(ctx, "", "a@b.com", "longenough"); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := svc.Register(ctx, "A", "", "longenough"); err == nil {
		t.Fatal("expected error for empty email")
	}
	if _, err := svc.Register(ctx, "A", "a@b.com", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
}
