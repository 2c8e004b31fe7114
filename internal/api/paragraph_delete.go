package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"paradel/internal/bulkdelete"
	"paradel/internal/cache"
	"paradel/internal/db"
	"paradel/internal/models"
)

const listingCachePrefix = "paragraph_delete:"

type multipleDeletePage struct {
	Title     string
	Type      *models.ParagraphType
	Rows      []models.ParentRow
	Action    string
	FormToken string
}

// multipleDeleteConfirmHandler lists the parents that embed a paragraph type
// and, on submit, either cancels or purges every instance of the type.
func multipleDeleteConfirmHandler(d Deps, routes *Routes) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		typeID := r.PathValue("paragraph_type")
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
			listing, err := cachedListing(r.Context(), d, typeID)
			if err != nil {
				serverError(d, w, err, "list paragraph usages")
				return
			}
			if len(listing.Rows) == 0 {
				redirectToConfirmedDelete(w, r, routes, typeID)
				return
			}
			if wantsJSON(r) {
				writeJSON(w, http.StatusOK, listing)
				return
			}
			action, _ := routes.URL(RouteMultipleDeleteConfirm, map[string]string{"paragraph_type": typeID}, nil)
			if err := renderPage(w, "multiple_delete", multipleDeletePage{
				Title:     "Delete content of paragraph type " + pt.Label,
				Type:      pt,
				Rows:      listing.Rows,
				Action:    action,
				FormToken: formToken(r, multipleDeleteFormID(typeID)),
			}); err != nil {
				d.Logger.Error().Err(err).Msg("render multiple delete page")
			}
		case http.MethodPost:
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "invalid form payload")
				return
			}
			if !checkFormPost(w, r, multipleDeleteFormID(typeID)) {
				return
			}
			switch r.PostFormValue("op") {
			case "cancel":
				target, err := routes.AbsoluteURL(r, RouteTypeCollection, nil, nil)
				if err != nil {
					serverError(d, w, err, "build collection url")
					return
				}
				http.Redirect(w, r, target, http.StatusFound)
			case "delete":
				report, err := d.Bulk.Delete(r.Context(), typeID)
				if report == nil {
					serverError(d, w, err, "delete paragraph data")
					return
				}
				if err != nil {
					// The purge committed; the confirmed delete form is still the next step.
					d.Logger.Error().Err(err).Str("type", typeID).Msg("paragraph data deleted, cache flush incomplete")
				}
				d.Logger.Info().
					Str("type", typeID).
					Int("instances", report.Instances).
					Int64("base_rows", report.BaseRows).
					Strs("truncated", report.TruncatedTables).
					Msg("paragraph_bulk_delete")
				redirectToConfirmedDelete(w, r, routes, typeID)
			default:
				writeError(w, http.StatusBadRequest, "op must be delete or cancel")
			}
		default:
			methodNotAllowed(w)
		}
	})
}

func redirectToConfirmedDelete(w http.ResponseWriter, r *http.Request, routes *Routes, typeID string) {
	target, err := routes.AbsoluteURL(r, RouteTypeDeleteForm,
		map[string]string{"paragraphs_type": typeID},
		url.Values{confirmQueryFlag: {"1"}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build delete url")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// cachedListing reads the listing from the render bin. Fresh listings are
// stored tagged with their parents so a parent change drops the entry.
func cachedListing(ctx context.Context, d Deps, typeID string) (*bulkdelete.Listing, error) {
	key := listingCachePrefix + typeID
	bin, ok := d.Caches.Bin(renderBin)
	if ok {
		raw, err := bin.Get(ctx, key)
		if err == nil {
			var listing bulkdelete.Listing
			if json.Unmarshal(raw, &listing) == nil {
				return &listing, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			d.Logger.Warn().Err(err).Str("bin", renderBin).Msg("cache read failed")
		}
	}

	listing, err := d.Bulk.List(ctx, typeID)
	if err != nil {
		return nil, err
	}
	// Empty listings redirect straight away and are not worth keeping.
	if ok && len(listing.Rows) > 0 {
		if raw, err := json.Marshal(listing); err == nil {
			if err := bin.Set(ctx, key, raw, listing.Tags); err != nil {
				d.Logger.Warn().Err(err).Str("bin", renderBin).Msg("cache write failed")
			}
		}
	}
	return listing, nil
}
