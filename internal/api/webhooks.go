package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paradel/internal/db"
	"paradel/internal/hooks"
)

const signatureHeader = "X-Paradel-Signature"

var webhookEvents = []string{
	"cache.flushed",
	"paragraphs_type.purged",
	"paragraphs_type.deleted",
}

type createWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

// RegisterWebhookHooks forwards the cache flush and purge hooks to webhooks.
func RegisterWebhookHooks(dispatcher *hooks.Dispatcher, database *sql.DB, logger zerolog.Logger) {
	dispatcher.Register(hooks.CacheFlush, "webhooks", func(ctx context.Context, payload map[string]any) error {
		emitWebhookEvent(database, logger, "cache.flushed", payload)
		return nil
	})
	dispatcher.Register(hooks.ParagraphsTypePurged, "webhooks", func(ctx context.Context, payload map[string]any) error {
		emitWebhookEvent(database, logger, "paragraphs_type.purged", payload)
		return nil
	})
}

func webhooksCollectionHandler(database *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			items, err := db.ListWebhooks(r.Context(), database, false)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to list webhooks")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"webhooks": items, "events": webhookEvents})
		case http.MethodPost:
			var req createWebhookRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid json payload")
				return
			}
			req.URL = strings.TrimSpace(req.URL)
			if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
				writeError(w, http.StatusBadRequest, "url must be http or https")
				return
			}
			for _, e := range req.Events {
				if !knownWebhookEvent(e) {
					writeError(w, http.StatusBadRequest, "unknown event: "+e)
					return
				}
			}
			wh, err := db.CreateWebhook(r.Context(), database, req.URL, req.Events, req.Secret)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, wh)
		default:
			methodNotAllowed(w)
		}
	})
}

func webhookItemHandler(database *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := db.DeleteWebhook(r.Context(), database, r.PathValue("id")); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "webhook not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to delete webhook")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// emitWebhookEvent delivers in the background; failures are only logged.
func emitWebhookEvent(database *sql.DB, logger zerolog.Logger, eventType string, payload map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		items, err := db.ListWebhooks(ctx, database, true)
		if err != nil {
			logger.Warn().Err(err).Str("event", eventType).Msg("list webhooks")
			return
		}
		b, err := json.Marshal(map[string]any{
			"event": eventType,
			"at":    time.Now().UTC().Format(time.RFC3339),
			"data":  payload,
		})
		if err != nil {
			return
		}
		client := &http.Client{Timeout: 5 * time.Second}
		for _, wh := range items {
			if !eventAllowed(wh.Events, eventType) {
				continue
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(b))
			if err != nil {
				continue
			}
			req.Header.Set("Content-Type", "application/json")
			if strings.TrimSpace(wh.Secret) != "" {
				mac := hmac.New(sha256.New, []byte(wh.Secret))
				_, _ = mac.Write(b)
				req.Header.Set(signatureHeader, hex.EncodeToString(mac.Sum(nil)))
			}
			resp, err := client.Do(req)
			if err != nil {
				logger.Warn().Err(err).Str("webhook", wh.ID).Str("event", eventType).Msg("webhook delivery failed")
				continue
			}
			_ = resp.Body.Close()
		}
	}()
}

func knownWebhookEvent(event string) bool {
	event = strings.TrimSpace(event)
	if event == "*" {
		return true
	}
	for _, e := range webhookEvents {
		if e == event {
			return true
		}
	}
	return false
}

func eventAllowed(events []string, event string) bool {
	for _, e := range events {
		if e == "*" || strings.EqualFold(strings.TrimSpace(e), event) {
			return true
		}
	}
	return false
}
