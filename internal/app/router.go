package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/novelforge/novelforge/internal/audit/http"
	"github.com/novelforge/novelforge/internal/auth"
	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/characters"
	"github.com/novelforge/novelforge/internal/dashboard"
	"github.com/novelforge/novelforge/internal/generation"
	"github.com/novelforge/novelforge/internal/novels"
	"github.com/novelforge/novelforge/internal/observability"
	"github.com/novelforge/novelforge/internal/platform/httpx"
	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/internal/users"
	"github.com/novelforge/novelforge/internal/worldnotes"
	"github.com/novelforge/novelforge/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Auth    auth.Middleware

	AuthHandler       *auth.Handler
	NovelHandler      *novels.Handler
	ChapterHandler    *chapters.Handler
	CharacterHandler  *characters.Handler
	WorldNoteHandler  *worldnotes.Handler
	GenerationHandler *generation.Handler
	DashboardHandler  *dashboard.Handler
	UsersHandler      *users.Handler
	AuditHandler      *audithttp.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with NovelForge defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, shared.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				params.AuthHandler.MountRoutes(r)
				r.Group(func(r chi.Router) {
					r.Use(params.Auth.RequireIdentity)
					params.AuthHandler.MountProtected(r)
				})
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(params.Auth.RequireIdentity)
			if params.NovelHandler != nil {
				params.NovelHandler.MountRoutes(r)
			}
			if params.ChapterHandler != nil {
				params.ChapterHandler.MountRoutes(r)
			}
			if params.CharacterHandler != nil {
				params.CharacterHandler.MountRoutes(r)
			}
			if params.WorldNoteHandler != nil {
				params.WorldNoteHandler.MountRoutes(r)
			}
			if params.GenerationHandler != nil {
				params.GenerationHandler.MountRoutes(r)
			}
			if params.DashboardHandler != nil {
				params.DashboardHandler.MountRoutes(r)
			}

			if params.UsersHandler != nil || params.AuditHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Use(params.Auth.RequireRole(shared.RoleAdmin))
					if params.UsersHandler != nil {
						params.UsersHandler.MountRoutes(r)
					}
					params.AuditHandler.MountRoutes(r)
				})
			}
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
