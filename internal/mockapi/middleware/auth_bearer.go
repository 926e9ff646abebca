package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// CtxAuthToken — ключ контекста с «сырым» bearer-токеном запроса.
var CtxAuthToken ctxKey

// AuthBearer извлекает Bearer-токен из Authorization и кладёт "сырой" токен
// в контекст по ключу CtxAuthToken. Валидность токена здесь не проверяется.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if auth != "" {
				const prefix = "Bearer "
				if strings.HasPrefix(auth, prefix) && len(auth) > len(prefix) {
					token := strings.TrimSpace(auth[len(prefix):])

					if token != "" {
						ctx := context.WithValue(r.Context(), CtxAuthToken, token)
						r = r.WithContext(ctx)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenFrom возвращает bearer-токен из контекста запроса, если он там есть.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(CtxAuthToken).(string)
	return token, ok && token != ""
}
