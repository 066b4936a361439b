package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"plantobill/internal/apperr"
	"plantobill/internal/logs"
	"plantobill/internal/models"
)

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}

// AnyRole: allow-list для маршрутов, доступных любой назначенной роли.
var AnyRole = []string{models.RoleAdmin, models.RoleProjectManager, models.RoleTeamMember}

// Authenticate кладёт Identity из заголовка Authorization (Bearer) в контекст, иначе 401.
func Authenticate(tokens *Tokens) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const p = "Bearer "
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, p) || strings.TrimSpace(strings.TrimPrefix(h, p)) == "" {
				models.WriteError(w, r, apperr.Authentication("Access denied. No token provided."))
				return
			}
			id, err := tokens.Parse(strings.TrimSpace(strings.TrimPrefix(h, p)))
			if err != nil {
				logs.FromContext(r.Context()).WithError(err).Debug("token rejected")
				models.WriteError(w, r, apperr.Authentication("Invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRoles пропускает только роли из списка, иначе 403.
func RequireRoles(roles ...string) mux.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				models.WriteError(w, r, apperr.Authentication("Access denied. No token provided."))
				return
			}
			if _, ok := allowed[id.Role]; !ok || id.Role == "" {
				models.WriteError(w, r, apperr.Forbidden("Access denied. Insufficient permissions."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allow: RequireRoles для одиночного обработчика.
func Allow(h http.HandlerFunc, roles ...string) http.Handler {
	return RequireRoles(roles...)(h)
}
