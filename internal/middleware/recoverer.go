package middleware

import (
	"net/http"
	"runtime/debug"

	"plantobill/internal/apperr"
	"plantobill/internal/logs"
	"plantobill/internal/models"
)

// Recoverer перехватывает панику в обработчике, пишет лог со стеком
// и отвечает 500 в общем конверте; процесс продолжает работать.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logs.FromContext(r.Context()).Errorf("panic: %v uri=%s method=%s\nstack:\n%s",
					rec, r.RequestURI, r.Method, string(debug.Stack()))
				models.WriteJSON(w, http.StatusInternalServerError, models.Envelope{
					Success: false,
					Message: apperr.InternalMessage,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
