package middleware

import (
	"context"
	"net/http"
)

// Optional attaches a valid API token to the request context and otherwise
// passes the request through unchanged, including when validation fails.
func Optional(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			res, err := validator.ValidateToken(r.Context(), token)
			if err != nil || !res.Valid {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenContextKey{}, res)))
		})
	}
}
