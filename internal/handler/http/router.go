package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kodar11/Blog/internal/service"
	"github.com/Kodar11/Blog/pkg/health"
	"github.com/Kodar11/Blog/pkg/httputil"
	"github.com/Kodar11/Blog/pkg/middleware"
)

// RouterConfig holds the transport settings for NewRouter.
type RouterConfig struct {
	ServiceName       string
	CORS              middleware.CORSConfig
	Cookies           CookieConfig
	PprofEnabled      bool
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all blog API routes registered. Every
// protected route is mounted in a group behind Guard.
func NewRouter(
	sessions *service.SessionService,
	blogs *service.BlogService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Write(w, http.StatusNotFound, nil, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.Write(w, http.StatusMethodNotAllowed, nil, "Method not allowed")
	})

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	guard := Guard(sessions, logger)
	userHandler := NewUserHandler(sessions, cfg.Cookies, logger)
	blogHandler := NewBlogHandler(blogs, logger)

	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(guard)

			r.Post("/logout", userHandler.Logout)
			r.Get("/me", userHandler.Me)
			r.Patch("/me", userHandler.UpdateMe)
			r.Post("/change-password", userHandler.ChangePassword)
		})
	})

	r.Route("/blog", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(guard)

		r.Post("/write", blogHandler.Write)
		r.Get("/read", blogHandler.Read)
	})

	return r
}
