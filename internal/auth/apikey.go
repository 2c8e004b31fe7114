package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

const (
	apiKeyPrefix = "pd_ak_"

	// CookieName carries the API key for browser sessions on the admin pages.
	CookieName = "paradel_key"
)

func GenerateAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

func BearerToken(authHeader string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
}

// RequestToken returns the bearer token, falling back to the session cookie.
func RequestToken(r *http.Request) string {
	token, _ := RequestCredentials(r)
	return token
}

// RequestCredentials is RequestToken that also reports whether the key came
// from the session cookie.
func RequestCredentials(r *http.Request) (token string, fromCookie bool) {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		return token, false
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	token = strings.TrimSpace(c.Value)
	return token, token != ""
}

// FormToken signs formID with the hash of the caller's API key. Admin forms
// post it back so another site cannot submit them with the session cookie.
func FormToken(keyHash, formID string) string {
	mac := hmac.New(sha256.New, []byte(keyHash))
	mac.Write([]byte("form:" + formID))
	return hex.EncodeToString(mac.Sum(nil))
}

func ValidFormToken(keyHash, formID, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	return hmac.Equal([]byte(FormToken(keyHash, formID)), []byte(token))
}
