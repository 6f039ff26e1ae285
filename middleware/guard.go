package middleware

import (
	"context"
	"net/http"
	"strings"

	goCred "github.com/MrEthical07/goCred"
)

// TokenValidator is satisfied by *goCred.Engine.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (goCred.TokenValidation, error)
}

type tokenContextKey struct{}

// TokenFromContext returns the validation stored by Guard or Optional.
func TokenFromContext(ctx context.Context) (goCred.TokenValidation, bool) {
	v, ok := ctx.Value(tokenContextKey{}).(goCred.TokenValidation)
	return v, ok
}

// Guard answers 401 unless the request carries a valid API token, and 500
// when the token could not be checked.
func Guard(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !res.Valid {
				http.Error(w, goCred.GenericFailureMessage, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
