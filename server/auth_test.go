package main

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestOperatorLogin(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)
	if err := auth.EnsureOperator("ops", "hunter22"); err != nil {
		t.Fatalf("EnsureOperator: %v", err)
	}

	token, err := auth.Login("ops", "hunter22", "10.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	user, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if user != "ops" {
		t.Errorf("expected ops, got %q", user)
	}

	if _, err := auth.Login("ops", "wrong", "10.0.0.1"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password should fail, got %v", err)
	}
	if _, err := auth.Login("ghost", "hunter22", "10.0.0.1"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown operator should fail, got %v", err)
	}
}

func TestEnsureOperatorResetsPassword(t *testing.T) {
	db := openTestDB(t)
	auth := NewAuth(db)
	if err := auth.EnsureOperator("ops", "first"); err != nil {
		t.Fatal(err)
	}
	if err := auth.EnsureOperator("ops", "second"); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.Login("ops", "first", "ip"); err == nil {
		t.Error("old password should no longer work")
	}
	if _, err := auth.Login("ops", "second", "ip"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
	if err := auth.EnsureOperator("x", "longenough"); err == nil {
		t.Error("one-letter username should be rejected")
	}
	if err := auth.EnsureOperator("ops", "abc"); err == nil {
		t.Error("short password should be rejected")
	}
}

func TestLoginRateLimit(t *testing.T) {
	auth := NewAuth(openTestDB(t))
	for i := 0; i < maxLoginAttempts; i++ {
		if _, err := auth.Login("ghost", "pw", "1.2.3.4"); errors.Is(err, ErrTooManyLogins) {
			t.Fatalf("attempt %d should not be limited", i+1)
		}
	}
	if _, err := auth.Login("ghost", "pw", "1.2.3.4"); !errors.Is(err, ErrTooManyLogins) {
		t.Errorf("expected rate limit, got %v", err)
	}
	if _, err := auth.Login("ghost", "pw", "5.6.7.8"); errors.Is(err, ErrTooManyLogins) {
		t.Error("other addresses should have their own budget")
	}
}

func TestSecretPersists(t *testing.T) {
	db := openTestDB(t)
	a1 := NewAuth(db)
	a2 := NewAuth(db)
	tok, err := a1.generateToken(1, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a2.ValidateToken(tok); err != nil {
		t.Errorf("token should survive a restart: %v", err)
	}
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	auth := NewAuth(openTestDB(t))

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"usr": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, _ := noRole.SignedString(auth.jwtSecret)
	if _, err := auth.ValidateToken(s); !errors.Is(err, ErrNotOperator) {
		t.Errorf("token without operator role should fail, got %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"usr":  "ops",
		"role": "operator",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})
	s, _ = expired.SignedString(auth.jwtSecret)
	if _, err := auth.ValidateToken(s); err == nil {
		t.Error("expired token should fail")
	}

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"usr": "ops", "role": "operator"})
	s, _ = other.SignedString([]byte("not the secret"))
	if _, err := auth.ValidateToken(s); err == nil {
		t.Error("token signed with another key should fail")
	}
}
