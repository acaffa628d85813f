package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/pkg/httpx"
	"github.com/aussiebroadwan/folio/pkg/jwtx"
	"github.com/aussiebroadwan/folio/pkg/slogx"

	_ "github.com/aussiebroadwan/folio/api/builder" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	keys         KeyStatus
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	database   Pinger
	draftCache Pinger

	WizardService    *service.WizardService
	CatalogueService *service.CatalogueService
	MediaService     *service.MediaService

	// MaxUpload caps multipart uploads in bytes. Zero means DefaultMaxUpload.
	MaxUpload int64

	// RequiredScopes, when set, must intersect the caller's token scopes on
	// every authenticated route.
	RequiredScopes []string

	streamsDone chan struct{}
	closeOnce   sync.Once
}

func NewRouter(
	verifier jwtx.Verifier,
	keys KeyStatus,
	buildVersion string,
	database, draftCache Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		database:     database,
		draftCache:   draftCache,
		logger:       logger,
		streamsDone:  make(chan struct{}),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// CloseStreams ends every open draft event stream and refuses new ones.
// Register it with http.Server.RegisterOnShutdown.
func (r *Router) CloseStreams() {
	r.closeOnce.Do(func() { close(r.streamsDone) })
}

func (r *Router) ApplyRoutes() {
	r.registerDrafts()
	r.registerCatalogue()
	r.registerMedia()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Folio Builder API
//	@version		0.1.0
//	@description	Backend for the portfolio builder wizard. Drafts live server side; the profile, projects and skills are saved to the portfolio API on the caller's behalf.
//	@description
//	@description				Every error body carries a kind (validation, unauthorized, conflict, transient, not_permitted, not_found) and a message.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/folio
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with authentication, the optional scope check and a
// per-user rate limit.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	mws := []httpx.Middleware{httpx.AuthnMiddleware(r.verifier)}
	if len(r.RequiredScopes) > 0 {
		mws = append(mws, httpx.RequireAnyScope(r.RequiredScopes...))
	}
	mws = append(mws, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, mws...)
}

func (r *Router) registerDrafts() {
	h := &DraftsHandler{Wizard: r.WizardService, MaxUpload: r.MaxUpload}

	// Opening drafts and publishing - moderate
	r.Mux.Handle("POST /v1/drafts", r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/drafts/{id}/publish", r.secured(http.HandlerFunc(h.HandlePublish), httpx.ModerateLimit))

	// Paid collaborators - strict
	r.Mux.Handle("POST /v1/drafts/{id}/generate", r.secured(http.HandlerFunc(h.HandleGenerate), httpx.StrictLimit))
	r.Mux.Handle("POST /v1/drafts/{id}/media", r.secured(http.HandlerFunc(h.HandleUpload), httpx.StrictLimit))

	// Editing and navigation - lenient
	r.Mux.Handle("GET /v1/drafts", r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/drafts/{id}", r.secured(http.HandlerFunc(h.HandleGet), httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/drafts/{id}", r.secured(http.HandlerFunc(h.HandleDelete), httpx.LenientLimit))
	r.Mux.Handle("PATCH /v1/drafts/{id}/profile", r.secured(http.HandlerFunc(h.HandleSetProfile), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/drafts/{id}/profile/submit", r.secured(http.HandlerFunc(h.HandleSubmitProfile), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/drafts/{id}/projects", r.secured(http.HandlerFunc(h.HandleAddProject), httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/drafts/{id}/projects/{childId}", r.secured(http.HandlerFunc(h.HandleRemoveProject), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/drafts/{id}/skills", r.secured(http.HandlerFunc(h.HandleAddSkill), httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/drafts/{id}/skills/{childId}", r.secured(http.HandlerFunc(h.HandleRemoveSkill), httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/drafts/{id}/template", r.secured(http.HandlerFunc(h.HandleSetTemplate), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/drafts/{id}/advance", r.secured(http.HandlerFunc(h.HandleAdvance), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/drafts/{id}/retreat", r.secured(http.HandlerFunc(h.HandleRetreat), httpx.LenientLimit))

	events := &EventsHandler{Wizard: r.WizardService, Done: r.streamsDone}
	r.Mux.Handle("GET /v1/drafts/{id}/events", r.secured(events, httpx.ModerateLimit))
}

func (r *Router) registerCatalogue() {
	h := &CatalogueHandler{CatalogueService: r.CatalogueService}

	r.Mux.Handle("GET /v1/templates", r.secured(http.HandlerFunc(h.HandleTemplates), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/portfolios", r.secured(http.HandlerFunc(h.HandlePortfolios), httpx.LenientLimit))

	// Public viewer - anonymous, limited by IP
	r.Mux.Handle("GET /v1/public/portfolios/{slug}",
		httpx.Chain(http.HandlerFunc(h.HandlePublic),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerMedia() {
	h := &MediaHandler{MediaService: r.MediaService, MaxUpload: r.MaxUpload}

	r.Mux.Handle("GET /v1/media", r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/media", r.secured(http.HandlerFunc(h.HandleUpload), httpx.StrictLimit))
	r.Mux.Handle("PUT /v1/media/{id}", r.secured(http.HandlerFunc(h.HandleReplace), httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/media/{id}", r.secured(http.HandlerFunc(h.HandleDelete), httpx.LenientLimit))
}

func (r *Router) registerSystem() {
	// Health check endpoints - public limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.database, r.draftCache, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
