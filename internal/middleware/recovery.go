package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"langtutor/internal/services/news"
)

// Recovery middleware to handle panics
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			log.Error().
				Interface("panic", err).
				Str("stack", string(debug.Stack())).
				Str("url", r.URL.String()).
				Str("method", r.Method).
				Msg("Panic recovered")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)

			_ = json.NewEncoder(w).Encode(news.NewErrorResponse(news.ErrCodeInternal, "Internal server error"))
		}()

		next.ServeHTTP(w, r)
	})
}
