package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"paradel/internal/db"
	"paradel/internal/models"
)

type typeCollectionPage struct {
	Title      string
	Types      []models.ParagraphType
	DeleteURLs map[string]string
}

type typeDeletePage struct {
	Title     string
	Type      *models.ParagraphType
	InUse     bool
	Action    string
	CancelURL string
	FormToken string
}

func typeCollectionHandler(d Deps, routes *Routes) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		types, err := db.ListParagraphTypes(r.Context(), d.DB)
		if err != nil {
			serverError(d, w, err, "list paragraph types")
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, map[string]any{"paragraphs_types": types})
			return
		}
		deleteURLs := make(map[string]string, len(types))
		for _, pt := range types {
			deleteURLs[pt.ID], _ = routes.URL(RouteTypeDeleteForm, map[string]string{"paragraphs_type": pt.ID}, nil)
		}
		if err := renderPage(w, "type_collection", typeCollectionPage{
			Title:      "Paragraphs types",
			Types:      types,
			DeleteURLs: deleteURLs,
		}); err != nil {
			d.Logger.Error().Err(err).Msg("render paragraph type collection")
		}
	})
}

// typeDeleteFormHandler is the one-step delete of the paragraph type record.
// It refuses while instances of the type remain.
func typeDeleteFormHandler(d Deps, routes *Routes) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		typeID := r.PathValue("paragraphs_type")
		pt, err := db.GetParagraphType(r.Context(), d.DB, typeID)
		if err != nil {
			if errors.Is(err, db.ErrTypeNotFound) {
				writeError(w, http.StatusNotFound, "paragraph type not found")
				return
			}
			serverError(d, w, err, "load paragraph type")
			return
		}

		switch r.Method {
		case http.MethodGet:
			if wantsJSON(r) {
				writeJSON(w, http.StatusOK, map[string]any{
					"paragraphs_type": pt,
					"deletable":       pt.Instances == 0,
				})
				return
			}
			action, _ := routes.URL(RouteTypeDeleteForm, map[string]string{"paragraphs_type": typeID},
				url.Values{confirmQueryFlag: {"1"}})
			cancel, _ := routes.URL(RouteTypeCollection, nil, nil)
			if err := renderPage(w, "type_delete", typeDeletePage{
				Title:     "Delete " + pt.Label,
				Type:      pt,
				InUse:     pt.Instances > 0,
				Action:    action,
				CancelURL: cancel,
				FormToken: formToken(r, typeDeleteFormID(typeID)),
			}); err != nil {
				d.Logger.Error().Err(err).Msg("render paragraph type delete form")
			}
		case http.MethodPost:
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "invalid form payload")
				return
			}
			if !checkFormPost(w, r, typeDeleteFormID(typeID)) {
				return
			}
			if err := db.DeleteParagraphType(r.Context(), d.DB, typeID); err != nil {
				if errors.Is(err, db.ErrTypeInUse) {
					writeError(w, http.StatusConflict, "paragraph type still has instances")
					return
				}
				serverError(d, w, err, "delete paragraph type")
				return
			}
			emitWebhookEvent(d.DB, d.Logger, "paragraphs_type.deleted", map[string]any{"type": typeID})
			d.Logger.Info().Str("type", typeID).Msg("paragraph_type_deleted")
			target, err := routes.AbsoluteURL(r, RouteTypeCollection, nil, nil)
			if err != nil {
				serverError(d, w, err, "build collection url")
				return
			}
			http.Redirect(w, r, target, http.StatusFound)
		default:
			methodNotAllowed(w)
		}
	})
}

func typesAPIHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		types, err := db.ListParagraphTypes(r.Context(), d.DB)
		if err != nil {
			serverError(d, w, err, "list paragraph types")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"paragraphs_types": types})
	})
}

func usagesAPIHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		typeID := r.PathValue("id")
		if _, err := db.GetParagraphType(r.Context(), d.DB, typeID); err != nil {
			if errors.Is(err, db.ErrTypeNotFound) {
				writeError(w, http.StatusNotFound, "paragraph type not found")
				return
			}
			serverError(d, w, err, "load paragraph type")
			return
		}
		listing, err := cachedListing(r.Context(), d, typeID)
		if err != nil {
			serverError(d, w, err, "list paragraph usages")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type":   typeID,
			"usages": listing.Rows,
			"count":  len(listing.Rows),
		})
	})
}

func bulkDeleteAPIHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		typeID := r.PathValue("id")
		if _, err := db.GetParagraphType(r.Context(), d.DB, typeID); err != nil {
			if errors.Is(err, db.ErrTypeNotFound) {
				writeError(w, http.StatusNotFound, "paragraph type not found")
				return
			}
			serverError(d, w, err, "load paragraph type")
			return
		}
		report, err := d.Bulk.Delete(r.Context(), typeID)
		if report == nil {
			serverError(d, w, err, "delete paragraph data")
			return
		}
		if err != nil {
			d.Logger.Error().Err(err).Str("type", typeID).Msg("paragraph data deleted, cache flush incomplete")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":  "paragraph data deleted but cache flush incomplete",
				"report": report,
			})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
}

func cacheFlushHandler(d Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		flushed, err := d.Caches.FlushAll(r.Context())
		if err != nil {
			serverError(d, w, err, "flush caches")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"flushed": flushed})
	})
}

func cacheInvalidateHandler(d Deps) http.Handler {
	type invalidateRequest struct {
		Tags []string `json:"tags"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req invalidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}
		tags := make([]string, 0, len(req.Tags))
		for _, t := range req.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) == 0 {
			writeError(w, http.StatusBadRequest, "tags are required")
			return
		}
		if err := d.Caches.InvalidateTags(r.Context(), tags...); err != nil {
			serverError(d, w, err, "invalidate cache tags")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invalidated": tags})
	})
}
