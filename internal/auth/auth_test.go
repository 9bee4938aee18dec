package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("alice@example.com", "Alice", "hash")

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Errorf("claims = %+v, want user %s", claims, user.ID)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}

	other, _ := m.Generate(user)
	otherClaims, _ := m.Validate(other)
	if otherClaims.ID == claims.ID {
		t.Error("two tokens share an id")
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("alice@example.com", "Alice", "hash")
	good, _ := m.Generate(user)

	expired := NewJWTManager("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Generate(user)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: user.ID})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		m     *JWTManager
		token string
	}{
		{"wrong secret", NewJWTManager("other-secret", time.Hour), good},
		{"expired", m, old},
		{"garbage", m, "not-a-token"},
		{"alg none", m, unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func newTestAuthenticator() *PasswordAuthenticator {
	a := NewPasswordAuthenticator(memory.New())
	a.cost = bcrypt.MinCost
	return a
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator()

	user, err := a.Register(ctx, " Alice@Example.com ", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized", user.Email)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in clear text")
	}

	if _, err := a.Register(ctx, "alice@example.com", "Alice 2", "another-pass"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate Register = %v, want ErrEmailExists", err)
	}
	if _, err := a.Register(ctx, "bob@example.com", "Bob", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak Register = %v, want ErrWeakPassword", err)
	}

	got, err := a.Authenticate(ctx, "ALICE@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated user %s, want %s", got.ID, user.ID)
	}

	if _, err := a.Authenticate(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if revoked, _ := r.IsRevoked(ctx, "t1"); revoked {
		t.Error("fresh token reported revoked")
	}

	r.Revoke(ctx, "t1", now.Add(time.Hour))
	if revoked, _ := r.IsRevoked(ctx, "t1"); !revoked {
		t.Error("revoked token not reported")
	}

	now = now.Add(2 * time.Hour)
	if revoked, _ := r.IsRevoked(ctx, "t1"); revoked {
		t.Error("entry should lapse once the token has expired")
	}

	r.Revoke(ctx, "t2", now.Add(time.Hour))
	if _, ok := r.revoked["t1"]; ok {
		t.Error("expired entry not pruned")
	}
}

func TestNewRedisRevoker_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewRedisRevoker(ctx, "not a url"); err == nil {
		t.Error("expected parse error")
	}
	// Nothing listens on port 1.
	if _, err := NewRedisRevoker(ctx, "redis://127.0.0.1:1/0"); err == nil {
		t.Error("expected ping error")
	}
}
