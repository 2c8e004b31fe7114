package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"paradel/internal/models"
)

func TestStatusIsPublic(t *testing.T) {
	server, deps, _ := setupTestServer(t)
	importFixtureForTest(t, deps.DB)

	resp := doReq(t, server.URL, "", http.MethodGet, "/api/v1/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Status    string   `json:"status"`
		CacheBins []string `json:"cache_bins"`
		Nodes     int      `json:"nodes"`
	}
	decodeJSON(t, resp, &body)
	if body.Status != "ok" || body.Nodes != 2 {
		t.Fatalf("unexpected status body: %+v", body)
	}
	if len(body.CacheBins) != 2 || body.CacheBins[0] != renderBin || body.CacheBins[1] != entityBin {
		t.Fatalf("unexpected cache bins: %v", body.CacheBins)
	}
}

func TestParagraphTypesAPI(t *testing.T) {
	server, deps, _ := setupTestServer(t)
	importFixtureForTest(t, deps.DB)
	editorKey := createAccountForTest(t, deps.DB, "editor", "editor")

	resp := doReq(t, server.URL, editorKey, http.MethodGet, "/api/v1/paragraphs-types", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list types status = %d", resp.StatusCode)
	}
	var body struct {
		Types []models.ParagraphType `json:"paragraphs_types"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Types) != 3 {
		t.Fatalf("expected 3 types, got %d", len(body.Types))
	}
	counts := map[string]int{}
	for _, pt := range body.Types {
		counts[pt.ID] = pt.Instances
	}
	if counts["quote"] != 3 || counts["text"] != 1 || counts["banner"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	usages := doReq(t, server.URL, editorKey, http.MethodGet, "/api/v1/paragraphs-types/quote/usages", nil)
	_ = usages.Body.Close()
	if usages.StatusCode != http.StatusForbidden {
		t.Fatalf("editor usages status = %d, want 403", usages.StatusCode)
	}
}

func TestUsagesAndBulkDeleteAPI(t *testing.T) {
	server, deps, adminKey := setupTestServer(t)
	importFixtureForTest(t, deps.DB)

	usages := doReq(t, server.URL, adminKey, http.MethodGet, "/api/v1/paragraphs-types/quote/usages", nil)
	if usages.StatusCode != http.StatusOK {
		t.Fatalf("usages status = %d", usages.StatusCode)
	}
	var usageBody struct {
		Count  int                `json:"count"`
		Usages []models.ParentRow `json:"usages"`
	}
	decodeJSON(t, usages, &usageBody)
	if usageBody.Count != 2 || len(usageBody.Usages) != 2 {
		t.Fatalf("unexpected usages: %+v", usageBody)
	}

	missing := doReq(t, server.URL, adminKey, http.MethodPost, "/api/v1/paragraphs-types/nope/bulk-delete", nil)
	_ = missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown type bulk delete status = %d", missing.StatusCode)
	}

	wrongMethod := doReq(t, server.URL, adminKey, http.MethodGet, "/api/v1/paragraphs-types/quote/bulk-delete", nil)
	_ = wrongMethod.Body.Close()
	if wrongMethod.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET bulk delete status = %d", wrongMethod.StatusCode)
	}

	resp := doReq(t, server.URL, adminKey, http.MethodPost, "/api/v1/paragraphs-types/quote/bulk-delete", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bulk delete status = %d", resp.StatusCode)
	}
	var report models.DeleteReport
	decodeJSON(t, resp, &report)
	if report.Instances != 3 || report.BaseRows != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.FlushedCacheBins) != 2 {
		t.Fatalf("expected both bins flushed, got %v", report.FlushedCacheBins)
	}

	again := doReq(t, server.URL, adminKey, http.MethodGet, "/api/v1/paragraphs-types/quote/usages", nil)
	decodeJSON(t, again, &usageBody)
	if usageBody.Count != 0 {
		t.Fatalf("expected no usages after delete, got %d", usageBody.Count)
	}
}

func TestCacheFlushEndpoint(t *testing.T) {
	server, deps, adminKey := setupTestServer(t)
	bin, _ := deps.Caches.Bin(renderBin)
	if err := bin.Set(context.Background(), "k", []byte("v"), nil); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	resp := doReq(t, server.URL, adminKey, http.MethodPost, "/api/v1/admin/cache/flush", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("flush status = %d", resp.StatusCode)
	}
	var body struct {
		Flushed []string `json:"flushed"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Flushed) != 2 {
		t.Fatalf("unexpected flushed bins: %v", body.Flushed)
	}
	if _, err := bin.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected render bin to be empty")
	}
}

func TestTypeCollectionPage(t *testing.T) {
	server, deps, adminKey := setupTestServer(t)
	importFixtureForTest(t, deps.DB)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/admin/structure/paragraphs_type", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+adminKey)
	resp, err := noRedirectClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	html := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("collection status = %d", resp.StatusCode)
	}
	for _, want := range []string{`href="/admin/structure/paragraphs_type/quote/delete"`, "Banner", "<td>3</td>"} {
		if !strings.Contains(html, want) {
			t.Fatalf("collection page missing %q", want)
		}
	}
}

func TestTypeDeleteRefusedWhileInUse(t *testing.T) {
	server, deps, adminKey := setupTestServer(t)
	importFixtureForTest(t, deps.DB)

	resp := doReq(t, server.URL, adminKey, http.MethodPost, "/admin/structure/paragraphs_type/quote/delete?delete=1", nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
