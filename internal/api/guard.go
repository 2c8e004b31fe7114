package api

import (
	"net/http"
)

// confirmQueryFlag marks a delete request the bulk delete form already confirmed.
const confirmQueryFlag = "delete"

// multipleDeleteGuard sends unconfirmed requests for the one-step delete form
// to the bulk delete confirmation of the same paragraph type.
func multipleDeleteGuard(routes *Routes) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			typeID := r.PathValue("paragraphs_type")
			if typeID == "" || r.URL.Query().Has(confirmQueryFlag) {
				next.ServeHTTP(w, r)
				return
			}
			target, err := routes.AbsoluteURL(r, RouteMultipleDeleteConfirm, map[string]string{
				"paragraph_type": typeID,
			}, nil)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to build confirmation url")
				return
			}
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}
