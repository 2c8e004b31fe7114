package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paradel/internal/bulkdelete"
	"paradel/internal/cache"
	"paradel/internal/db"
	"paradel/internal/hooks"
	"paradel/internal/logging"
	"paradel/internal/ratelimit"
)

const (
	renderBin = cache.RenderBin
	entityBin = cache.EntityBin
)

// Deps are the services the router hands to its handlers.
type Deps struct {
	DB      *sql.DB
	Version string
	Logger  zerolog.Logger
	Hooks   *hooks.Dispatcher
	Caches  *cache.Registry
	Store   *db.Store
	Bulk    *bulkdelete.Service
	Limiter *ratelimit.Limiter
}

// NewDeps wires in-process LRU render and entity bins. See NewDepsWithBins.
func NewDeps(database *sql.DB, version string, logger zerolog.Logger, renderSize, entitySize int, extra ...cache.Bin) (Deps, error) {
	render, err := cache.NewMemoryBin(renderBin, renderSize)
	if err != nil {
		return Deps{}, err
	}
	entity, err := cache.NewMemoryBin(entityBin, entitySize)
	if err != nil {
		return Deps{}, err
	}
	return NewDepsWithBins(database, version, logger, render, entity, extra...)
}

// NewDepsWithBins registers the render and entity bins plus any extra bins,
// the node parent resolver and the webhook hooks. Store writes invalidate
// tags across every registered bin.
func NewDepsWithBins(database *sql.DB, version string, logger zerolog.Logger, render, entity cache.Bin, extra ...cache.Bin) (Deps, error) {
	if render == nil || render.Name() != renderBin || entity == nil || entity.Name() != entityBin {
		return Deps{}, fmt.Errorf("render and entity bins must be named %q and %q", renderBin, entityBin)
	}
	dispatcher := hooks.NewDispatcher()
	registry := cache.NewRegistry(dispatcher, logger)
	for _, b := range append([]cache.Bin{render, entity}, extra...) {
		if err := registry.Register(b); err != nil {
			return Deps{}, err
		}
	}

	store := db.NewStore(database, registry)
	svc := bulkdelete.NewService(store, registry, dispatcher)
	svc.RegisterParent("node", bulkdelete.NodeResolver{Loader: store, Cache: entity})

	RegisterWebhookHooks(dispatcher, database, logger)

	return Deps{
		DB:      database,
		Version: version,
		Logger:  logger,
		Hooks:   dispatcher,
		Caches:  registry,
		Store:   store,
		Bulk:    svc,
		Limiter: ratelimit.NewLimiter(),
	}, nil
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	routes := NewRoutes(mux)
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewLimiter()
	}
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(d.DB, rateLimitMiddleware(d.Limiter, h))
	}
	admin := func(h http.Handler) http.Handler {
		return withAuth(adminOnly(h))
	}

	routes.Guard(RouteTypeDeleteForm, multipleDeleteGuard(routes))

	routes.Handle(RouteTypeCollection, "/admin/structure/paragraphs_type",
		typeCollectionHandler(d, routes), admin)
	routes.Handle(RouteTypeDeleteForm, "/admin/structure/paragraphs_type/{paragraphs_type}/delete",
		typeDeleteFormHandler(d, routes), admin)
	routes.Handle(RouteMultipleDeleteConfirm, "/admin/structure/paragraphs_type/{paragraph_type}/multiple-delete",
		multipleDeleteConfirmHandler(d, routes), admin)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/status", statusHandler(d))
	api.Handle("/api/v1/whoami", withAuth(whoamiHandler()))
	api.Handle("/api/v1/paragraphs-types", withAuth(typesAPIHandler(d)))
	api.Handle("/api/v1/paragraphs-types/{id}/usages", admin(usagesAPIHandler(d)))
	api.Handle("/api/v1/paragraphs-types/{id}/bulk-delete", admin(bulkDeleteAPIHandler(d)))
	api.Handle("/api/v1/admin/cache/flush", admin(cacheFlushHandler(d)))
	api.Handle("/api/v1/admin/cache/invalidate", admin(cacheInvalidateHandler(d)))
	api.Handle("/api/v1/admin/webhooks", admin(webhooksCollectionHandler(d.DB)))
	api.Handle("/api/v1/admin/webhooks/{id}", admin(webhookItemHandler(d.DB)))
	mux.Handle("/api/v1/", corsMiddleware(api))
	mux.Handle("/mcp", mcpHandler(d))

	return logging.RequestLogger(d.Logger, mux)
}

func statusHandler(d Deps) http.HandlerFunc {
	type statusResponse struct {
		Status    string   `json:"status"`
		Version   string   `json:"version"`
		Timestamp string   `json:"timestamp"`
		CacheBins []string `json:"cache_bins"`
		Nodes     int      `json:"nodes"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		if err := d.DB.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		nodes, err := db.CountNodes(r.Context(), d.DB)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to count nodes")
			return
		}

		bins := make([]string, 0)
		for _, b := range d.Caches.Bins() {
			bins = append(bins, b.Name())
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Status:    "ok",
			Version:   d.Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			CacheBins: bins,
			Nodes:     nodes,
		})
	}
}

func whoamiHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, currentAccount(r.Context()))
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func serverError(d Deps, w http.ResponseWriter, err error, message string) {
	d.Logger.Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to %s", message))
}
