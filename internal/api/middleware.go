package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"paradel/internal/auth"
	"paradel/internal/db"
	"paradel/internal/models"
	"paradel/internal/ratelimit"
)

type contextKey string

const (
	accountContextKey contextKey = "account"
	sessionContextKey contextKey = "session"
)

// session records how the caller authenticated.
type session struct {
	keyHash   string
	viaCookie bool
}

type rateLimits struct {
	ReadsPerMinute int
	WritesPerHour  int
	PurgesPerHour  int
	FlushesPerHour int
}

var defaultRateLimits = rateLimits{
	ReadsPerMinute: 600,
	WritesPerHour:  200,
	PurgesPerHour:  20,
	FlushesPerHour: 60,
}

func authMiddleware(database *sql.DB, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, viaCookie := auth.RequestCredentials(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		keyHash := auth.HashAPIKey(token)
		account, err := db.GetAccountByAPIKeyHash(r.Context(), database, keyHash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		if err := db.TouchAccount(r.Context(), database, account.Name); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, account)
		ctx = context.WithValue(ctx, sessionContextKey, &session{keyHash: keyHash, viaCookie: viaCookie})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentAccount(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentAccount(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountContextKey).(*models.Account)
	return account
}

func currentSession(ctx context.Context) *session {
	s, _ := ctx.Value(sessionContextKey).(*session)
	return s
}

func rateLimitMiddleware(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := currentAccount(r.Context())
		if account == nil {
			writeError(w, http.StatusUnauthorized, "missing auth context")
			return
		}

		now := time.Now().UTC()
		for _, c := range classifyRateChecks(r) {
			res := limiter.Allow(account.Name+":"+c.name, c.limit, c.window, now)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				retryAfter := int(time.Until(res.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded: "+c.name)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

type rateCheck struct {
	name   string
	limit  int
	window time.Duration
}

func classifyRateChecks(r *http.Request) []rateCheck {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return []rateCheck{{
			name:   "reads",
			limit:  defaultRateLimits.ReadsPerMinute,
			window: time.Minute,
		}}
	}
	checks := []rateCheck{{
		name:   "writes",
		limit:  defaultRateLimits.WritesPerHour,
		window: time.Hour,
	}}
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && isPurgeRequest(r):
		checks = append(checks, rateCheck{
			name:   "purges",
			limit:  defaultRateLimits.PurgesPerHour,
			window: time.Hour,
		})
	case path == "/api/v1/admin/cache/flush" || path == "/api/v1/admin/cache/invalidate":
		checks = append(checks, rateCheck{
			name:   "flushes",
			limit:  defaultRateLimits.FlushesPerHour,
			window: time.Hour,
		})
	}
	return checks
}

// isPurgeRequest reports whether r deletes paragraph data. A cancel submitted
// from the confirmation page is not a purge.
func isPurgeRequest(r *http.Request) bool {
	switch {
	case strings.HasSuffix(r.URL.Path, "/bulk-delete"):
		return true
	case strings.HasSuffix(r.URL.Path, "/multiple-delete"):
		return r.PostFormValue("op") == "delete"
	}
	return false
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Max-Age", "86400")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
