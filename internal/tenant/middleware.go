package tenant

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledgerly-in/ledgerly/internal/platform/httpx"
)

// Middleware authenticates requests by API key and stores the tenant in the
// request context.
type Middleware struct {
	logger  *slog.Logger
	service *Service
}

// NewMiddleware builds Middleware instance.
func NewMiddleware(logger *slog.Logger, service *Service) *Middleware {
	return &Middleware{logger: logger, service: service}
}

// Require rejects requests without a valid API key.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		key, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || key == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing API key")
			return
		}

		t, err := m.service.Authenticate(r.Context(), key)
		if err != nil {
			if err != ErrInvalidKey {
				m.logger.Error("authenticate tenant", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid API key")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithTenant(r.Context(), t)))
	})
}
