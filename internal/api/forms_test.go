package api

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"paradel/internal/db"
)

func TestCookieFormPostRejectsForeignOrigin(t *testing.T) {
	server, deps, adminKey := setupTestServer(t)
	importFixtureForTest(t, deps.DB)
	path := "/admin/structure/paragraphs_type/quote/multiple-delete"

	cases := []struct {
		name   string
		header string
		value  string
	}{
		{name: "origin", header: "Origin", value: "https://evil.example"},
		{name: "referer", header: "Referer", value: "https://evil.example/page"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newFormRequest(t, server.URL, adminKey, path, multipleDeleteFormID("quote"), url.Values{"op": {"delete"}})
			req.Header.Set(tc.header, tc.value)
			resp := sendNoRedirect(t, req)
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", resp.StatusCode)
			}
			if n, err := db.CountInstances(context.Background(), deps.DB, "quote"); err != nil || n != 3 {
				t.Fatalf("rejected post must not delete, got %d (%v)", n, err)
			}
		})
	}
}

func TestCookieFormPostRequiresFormToken(t *testing.T) {
	server, deps, adminKey := setupTestServer(t)
	importFixtureForTest(t, deps.DB)
	path := "/admin/structure/paragraphs_type/quote/multiple-delete"

	missing := doForm(t, server.URL, adminKey, path, "", url.Values{"op": {"delete"}})
	_ = missing.Body.Close()
	if missing.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", missing.StatusCode)
	}

	// A token minted for another type does not validate.
	wrong := doForm(t, server.URL, adminKey, path, multipleDeleteFormID("text"), url.Values{"op": {"delete"}})
	_ = wrong.Body.Close()
	if wrong.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a foreign token, got %d", wrong.StatusCode)
	}

	typeDelete := doForm(t, server.URL, adminKey, "/admin/structure/paragraphs_type/banner/delete?delete=1", "", url.Values{"op": {"delete"}})
	_ = typeDelete.Body.Close()
	if typeDelete.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for type delete without token, got %d", typeDelete.StatusCode)
	}
	if _, err := db.GetParagraphType(context.Background(), deps.DB, "banner"); err != nil {
		t.Fatalf("banner type must survive: %v", err)
	}
	if n, err := db.CountInstances(context.Background(), deps.DB, "quote"); err != nil || n != 3 {
		t.Fatalf("rejected posts must not delete, got %d (%v)", n, err)
	}

	req := newFormRequest(t, server.URL, adminKey, path, multipleDeleteFormID("quote"), url.Values{"op": {"delete"}})
	req.Header.Set("Origin", server.URL)
	ok := sendNoRedirect(t, req)
	_ = ok.Body.Close()
	if ok.StatusCode != http.StatusFound {
		t.Fatalf("expected same-origin post with token to redirect, got %d", ok.StatusCode)
	}
	if n, err := db.CountInstances(context.Background(), deps.DB, "quote"); err != nil || n != 0 {
		t.Fatalf("expected quote instances gone, got %d (%v)", n, err)
	}
}
