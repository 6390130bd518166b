package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sisarm/sisarm-search/internal/catalog"
	"github.com/sisarm/sisarm-search/internal/chat"
	httpmiddleware "github.com/sisarm/sisarm-search/internal/http/middleware"
	"github.com/sisarm/sisarm-search/internal/importer"
	"github.com/sisarm/sisarm-search/internal/license"
	"github.com/sisarm/sisarm-search/internal/support"
	"github.com/sisarm/sisarm-search/internal/webchat"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	CatalogHandler  *catalog.Handler
	ImportHandler   *importer.Handler
	ChatHandler     *chat.Handler
	WebChatHandler  *webchat.Handler
	SupportHandler  *support.Handler
	LicenseHandler  *license.Handler
	LicenseService  httpmiddleware.LicenseChecker
	JWTSecret       string
	AdminAuthSecret string
	MetricsHandler  http.Handler

	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(httpmiddleware.UserJWT(cfg.JWTSecret))

	// Public endpoints (health, metrics, chat widget)
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WebChatHandler != nil {
			public.Get("/ws", cfg.WebChatHandler.HandleWebSocket)
			public.Get("/widget.js", cfg.WebChatHandler.HandleWidgetJS)
		}
	})

	r.Route("/api", func(api chi.Router) {
		// Catalog search is licence-gated for authenticated users.
		api.Group(func(gated chi.Router) {
			if cfg.LicenseService != nil {
				gated.Use(httpmiddleware.LicenseGate(cfg.LicenseService, cfg.Logger))
			}
			if cfg.CatalogHandler != nil {
				gated.Get("/partidas", cfg.CatalogHandler.Search)
				gated.Get("/partidas/{codigo}", cfg.CatalogHandler.Get)
				gated.Get("/autocomplete", cfg.CatalogHandler.Autocomplete)
				gated.Get("/filtros", cfg.CatalogHandler.Filters)
				gated.Get("/stats/por-capitulo", cfg.CatalogHandler.StatsByChapter)
			}
		})

		if cfg.ChatHandler != nil {
			api.With(httpmiddleware.RateLimit(5, 10)).Post("/chat", cfg.ChatHandler.Message)
		}
		if cfg.SupportHandler != nil {
			api.Post("/soporte", cfg.SupportHandler.Submit)
		}

		if cfg.LicenseHandler != nil {
			api.Route("/licencia", func(lic chi.Router) {
				lic.Use(httpmiddleware.RequireUser)
				lic.Get("/", cfg.LicenseHandler.Status)
				lic.Post("/trial", cfg.LicenseHandler.Trial)
				lic.Post("/renovar", cfg.LicenseHandler.Renew)
			})
		}

		// Admin surface (catalog maintenance, import handshake, reports)
		if cfg.AdminAuthSecret != "" {
			api.Route("/admin", func(admin chi.Router) {
				admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
				if cfg.ImportHandler != nil {
					admin.Post("/import/preview", cfg.ImportHandler.Preview)
					admin.Post("/import/commit", cfg.ImportHandler.Commit)
					admin.Post("/import/cancel", cfg.ImportHandler.Cancel)
					admin.Get("/import/runs", cfg.ImportHandler.ListRuns)
					admin.Get("/export", cfg.ImportHandler.Export)
				}
				if cfg.CatalogHandler != nil {
					admin.Get("/stats/terminos", cfg.CatalogHandler.TopSearchTerms)
				}
				if cfg.SupportHandler != nil {
					admin.Get("/soporte", cfg.SupportHandler.List)
				}
			})
		}
	})

	return r
}
