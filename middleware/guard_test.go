package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goCred "github.com/MrEthical07/goCred"
)

type validatorFunc func(ctx context.Context, token string) (goCred.TokenValidation, error)

func (f validatorFunc) ValidateToken(ctx context.Context, token string) (goCred.TokenValidation, error) {
	return f(ctx, token)
}

func newEngine(t *testing.T) *goCred.Engine {
	t.Helper()

	engine, err := goCred.New().
		WithUserProvider(goCred.NewStaticUserProvider(goCred.UserRecord{UserID: "u1", Email: "u1@example.com"})).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	v, ok := TokenFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write([]byte(v.User.UserID))
}

func TestGuard(t *testing.T) {
	engine := newEngine(t)
	issued, err := engine.CreateToken(context.Background(), "u1", "ci", "", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	handler := Guard(engine)(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + issued.Secret, status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + issued.Secret, status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer not-a-token", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + issued.Secret, status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusOK && rec.Body.String() != "u1" {
				t.Fatalf("expected user u1 in context, got %q", rec.Body.String())
			}
		})
	}
}

func TestGuardRejectsRevokedToken(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()
	issued, err := engine.CreateToken(ctx, "u1", "ci", "", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if _, err := engine.RevokeToken(ctx, issued.Credential.ID); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Secret)
	rec := httptest.NewRecorder()
	Guard(engine)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardValidatorError(t *testing.T) {
	failing := validatorFunc(func(context.Context, string) (goCred.TokenValidation, error) {
		return goCred.TokenValidation{}, errors.New("store down")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	Guard(failing)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestOptional(t *testing.T) {
	engine := newEngine(t)
	issued, err := engine.CreateToken(context.Background(), "u1", "ci", "", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	handler := Optional(engine)(http.HandlerFunc(okHandler))

	for header, want := range map[string]int{
		"":                        http.StatusNoContent,
		"Bearer nope":             http.StatusNoContent,
		"Bearer " + issued.Secret: http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("header %q: expected %d, got %d", header, want, rec.Code)
		}
	}
}
