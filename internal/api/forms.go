package api

import (
	"net/http"
	"net/url"
	"strings"

	"paradel/internal/auth"
)

const formTokenField = "form_token"

func multipleDeleteFormID(typeID string) string {
	return "paragraph_delete_multiple_confirm:" + typeID
}

func typeDeleteFormID(typeID string) string {
	return "paragraphs_type_delete:" + typeID
}

// formToken is the token the page rendering formID embeds for the caller.
func formToken(r *http.Request, formID string) string {
	s := currentSession(r.Context())
	if s == nil {
		return ""
	}
	return auth.FormToken(s.keyHash, formID)
}

// checkFormPost rejects cookie authenticated submissions that come from
// another origin or do not carry the form token. Bearer callers pass.
func checkFormPost(w http.ResponseWriter, r *http.Request, formID string) bool {
	s := currentSession(r.Context())
	if s == nil || !s.viaCookie {
		return true
	}
	if !sameOrigin(r) {
		writeError(w, http.StatusForbidden, "cross-origin form submission")
		return false
	}
	if !auth.ValidFormToken(s.keyHash, formID, r.PostFormValue(formTokenField)) {
		writeError(w, http.StatusForbidden, "invalid form token")
		return false
	}
	return true
}

// sameOrigin checks Origin, or Referer when Origin is absent, against the
// host the request was sent to. Requests with neither header pass.
func sameOrigin(r *http.Request) bool {
	raw := strings.TrimSpace(r.Header.Get("Origin"))
	if raw == "" {
		raw = strings.TrimSpace(r.Header.Get("Referer"))
		if raw == "" {
			return true
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
