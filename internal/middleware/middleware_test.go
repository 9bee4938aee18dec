package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
)

type empty struct{}

func newToken(t *testing.T, m *auth.JWTManager) string {
	t.Helper()
	token, err := m.Generate(&models.User{ID: "user-1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return token
}

// capture runs interceptor around a handler that records the context it saw.
func capture(interceptor connect.UnaryInterceptorFunc, header string) (context.Context, error) {
	var seen context.Context
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = ctx
		return connect.NewResponse(&empty{}), nil
	}
	req := connect.NewRequest(&empty{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	_, err := interceptor(next)(context.Background(), req)
	return seen, err
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	revoker := auth.NewMemoryRevoker()
	token := newToken(t, jwtManager)

	ctx, err := capture(RequireAuth(jwtManager, revoker), "Bearer "+token)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if GetUserID(ctx) != "user-1" || GetEmail(ctx) != "user@example.com" {
		t.Errorf("unexpected identity %q %q", GetUserID(ctx), GetEmail(ctx))
	}
	tokenID, expiresAt := GetToken(ctx)
	if tokenID == "" || expiresAt.IsZero() {
		t.Errorf("expected token id and expiry in context, got %q %v", tokenID, expiresAt)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic " + token},
		{"extra parts", "Bearer " + token + " x"},
		{"garbage token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := capture(RequireAuth(jwtManager, revoker), tt.header)
			if connect.CodeOf(err) != connect.CodeUnauthenticated {
				t.Errorf("expected unauthenticated, got %v", err)
			}
		})
	}

	t.Run("revoked token", func(t *testing.T) {
		if err := revoker.Revoke(context.Background(), tokenID, expiresAt); err != nil {
			t.Fatalf("Revoke failed: %v", err)
		}
		_, err := capture(RequireAuth(jwtManager, revoker), "Bearer "+token)
		if !errors.Is(err, auth.ErrRevokedToken) {
			t.Errorf("expected revoked token error, got %v", err)
		}
	})
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token := newToken(t, jwtManager)

	ctx, err := capture(OptionalAuth(jwtManager, nil), "")
	if err != nil || GetUserID(ctx) != "" {
		t.Errorf("anonymous request: err=%v user=%q", err, GetUserID(ctx))
	}

	ctx, err = capture(OptionalAuth(jwtManager, nil), "Bearer broken")
	if err != nil || GetUserID(ctx) != "" {
		t.Errorf("bad token should proceed anonymously: err=%v user=%q", err, GetUserID(ctx))
	}

	ctx, err = capture(OptionalAuth(jwtManager, nil), "Bearer "+token)
	if err != nil || GetUserID(ctx) != "user-1" {
		t.Errorf("valid token: err=%v user=%q", err, GetUserID(ctx))
	}
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(context.Background(), "u-9")
	if GetUserID(ctx) != "u-9" {
		t.Errorf("expected u-9, got %q", GetUserID(ctx))
	}
	if GetUserID(context.Background()) != "" {
		t.Error("expected empty user id on a bare context")
	}
}

func TestLoggingInterceptor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"success", nil, "level=INFO"},
		{"client error", connect.NewError(connect.CodeNotFound, errors.New("missing")), "level=WARN"},
		{"server error", errors.New("boom"), "level=ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return connect.NewResponse(&empty{}), nil
			}

			ctx := WithUser(context.Background(), "user-7")
			_, err := LoggingInterceptor(logger)(next)(ctx, connect.NewRequest(&empty{}))
			if !errors.Is(err, tt.err) {
				t.Errorf("error not passed through: %v", err)
			}
			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) || !strings.Contains(out, "user_id=user-7") {
				t.Errorf("unexpected log line %q", out)
			}
		})
	}
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.New()
	interceptor := MetricsInterceptor(m)

	ok := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&empty{}), nil
	}
	failing := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("bad"))
	}

	interceptor(ok)(context.Background(), connect.NewRequest(&empty{}))
	interceptor(ok)(context.Background(), connect.NewRequest(&empty{}))
	interceptor(failing)(context.Background(), connect.NewRequest(&empty{}))

	procedure := connect.NewRequest(&empty{}).Spec().Procedure
	if got := testutil.ToFloat64(m.RPCRequests.WithLabelValues(procedure, "ok")); got != 2 {
		t.Errorf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.RPCRequests.WithLabelValues(procedure, "invalid_argument")); got != 1 {
		t.Errorf("expected 1 invalid_argument request, got %v", got)
	}
}
