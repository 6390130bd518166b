package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sisarm/sisarm-search/internal/auth"
	"github.com/sisarm/sisarm-search/internal/license"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// LicenseChecker resolves the current licence standing of a user.
type LicenseChecker interface {
	StatusFor(ctx context.Context, userID string) (*license.Status, error)
}

// licenseExemptPrefixes are always reachable, licence or not: the user must
// be able to renew and to ask for help precisely when the licence is gone.
var licenseExemptPrefixes = []string{
	"/api/soporte",
	"/api/licencia",
	"/api/chat",
	"/ws",
	"/widget.js",
	"/health",
	"/metrics",
}

// LicenseGate blocks authenticated users whose licence is missing or expired.
// Exempt paths pass through, as do anonymous requests (authentication is
// enforced separately where needed). A failed lookup fails open with a
// warning: a licensing-store hiccup must not take the catalog down.
func LicenseGate(checker LicenseChecker, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range licenseExemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok || checker == nil {
				next.ServeHTTP(w, r)
				return
			}
			status, err := checker.StatusFor(r.Context(), userID)
			if err != nil {
				logger.Warn("license lookup failed, letting request through", "error", err, "user_id", userID)
				next.ServeHTTP(w, r)
				return
			}
			if status == nil || status.Estado == license.EstadoExpired {
				http.Error(w, "licencia expirada o inexistente: renueva en /api/licencia/renovar", http.StatusPaymentRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
