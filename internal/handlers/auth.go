package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/downytube/backend/internal/logging"
)

const stateCookieName = "downytube_oauth_state"

// OAuthHandler implements the Google OAuth consent round trip. Tokens never
// reach the client as JSON; they live only inside the signed cookie.
type OAuthHandler struct {
	OAuth   OAuthService
	Cookies CookieIssuer
	BaseURL string
	Secure  bool
}

// Login handles GET /api/v1/auth/google/login by redirecting the browser to
// the consent screen.
func (h OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.OAuth == nil {
		logger.Error("oauth service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.OAuth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /api/v1/auth/google/callback. A successful code
// exchange stores the credentials in the cookie and sends the browser back
// to the app root; any failure lands on the login page with an error query.
func (h OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		logger.Warn("oauth consent denied", "error", errParam)
		h.redirectWithError(w, r, "access_denied")
		return
	}

	state, err := r.Cookie(stateCookieName)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		logger.Warn("oauth state mismatch")
		h.redirectWithError(w, r, "state_mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		logger.Warn("oauth callback missing code")
		h.redirectWithError(w, r, "missing_code")
		return
	}

	creds, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		logger.Error("oauth code exchange failed", "error", err)
		h.redirectWithError(w, r, "exchange_failed")
		return
	}

	if err := h.Cookies.Issue(w, creds); err != nil {
		logger.Error("issue auth cookie", "error", err)
		h.redirectWithError(w, r, "cookie_failed")
		return
	}

	clearStateCookie(w, h.Secure)
	http.Redirect(w, r, h.baseURL(), http.StatusTemporaryRedirect)
}

// Logout handles GET /api/v1/auth/google/logout by discarding the stored
// credentials.
func (h OAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	h.Cookies.Clear(w)
	http.Redirect(w, r, h.baseURL()+"/login", http.StatusTemporaryRedirect)
}

// Status handles GET /api/v1/auth/google/status. The response is an opaque
// boolean; token details never leave the server.
func (h OAuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session := h.Cookies.Session(w, r)
	respondJSON(r.Context(), w, http.StatusOK, map[string]bool{
		"authenticated": session.Authenticated(),
	})
}

func (h OAuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	clearStateCookie(w, h.Secure)
	http.Redirect(w, r, h.baseURL()+"/login?error="+url.QueryEscape(reason), http.StatusTemporaryRedirect)
}

func (h OAuthHandler) baseURL() string {
	return strings.TrimSuffix(h.BaseURL, "/")
}

func clearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
