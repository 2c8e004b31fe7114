package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paradel/internal/models"
)

func TestWebhookManagementAndDispatch(t *testing.T) {
	server, deps, adminKey := setupTestServer(t)
	importFixtureForTest(t, deps.DB)

	const secret = "s3cret"
	eventCh := make(chan string, 8)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		raw, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte(secret))
		_, _ = mac.Write(raw)
		if r.Header.Get(signatureHeader) != hex.EncodeToString(mac.Sum(nil)) {
			eventCh <- "bad-signature"
			return
		}
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)
		if ev, ok := payload["event"].(string); ok {
			eventCh <- ev
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	bad := doReq(t, server.URL, adminKey, http.MethodPost, "/api/v1/admin/webhooks", map[string]any{
		"url":    sink.URL,
		"events": []string{"thread.created"},
	})
	_ = bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown event status = %d, want 400", bad.StatusCode)
	}

	createWH := doReq(t, server.URL, adminKey, http.MethodPost, "/api/v1/admin/webhooks", map[string]any{
		"url":    sink.URL,
		"events": []string{"paragraphs_type.purged", "cache.flushed"},
		"secret": secret,
	})
	if createWH.StatusCode != http.StatusCreated {
		t.Fatalf("create webhook status = %d", createWH.StatusCode)
	}
	var wh models.Webhook
	decodeJSON(t, createWH, &wh)

	purge := doReq(t, server.URL, adminKey, http.MethodPost, "/api/v1/paragraphs-types/quote/bulk-delete", nil)
	if purge.StatusCode != http.StatusOK {
		t.Fatalf("bulk delete status = %d", purge.StatusCode)
	}
	_ = purge.Body.Close()

	got := map[string]bool{}
	timeout := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-eventCh:
			if ev == "bad-signature" {
				t.Fatalf("webhook signature mismatch")
			}
			got[ev] = true
		case <-timeout:
			t.Fatalf("expected cache.flushed and paragraphs_type.purged, got %v", got)
		}
	}

	del := doReq(t, server.URL, adminKey, http.MethodDelete, "/api/v1/admin/webhooks/"+wh.ID, nil)
	_ = del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete webhook status = %d", del.StatusCode)
	}
	again := doReq(t, server.URL, adminKey, http.MethodDelete, "/api/v1/admin/webhooks/"+wh.ID, nil)
	_ = again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", again.StatusCode)
	}
}
