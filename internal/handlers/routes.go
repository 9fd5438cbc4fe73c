package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Checks: deps.HealthChecks}
	oauth := OAuthHandler{
		OAuth:   deps.OAuth,
		Cookies: deps.Cookies,
		BaseURL: deps.BaseURL,
		Secure:  deps.SecureCookies,
	}
	clips := ClipHandler{
		Clips:   deps.Clips,
		Cookies: deps.Cookies,
		Shorts:  deps.Shorts,
		Uploads: deps.Uploads,
		Limiter: deps.Limiter,
	}
	videos := VideoHandler{Metadata: deps.Metadata}
	flows := FlowHandler{Flows: deps.Flows, Limiter: deps.Limiter}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/google/login", oauth.Login)
	mux.HandleFunc("/api/v1/auth/google/callback", oauth.Callback)
	mux.HandleFunc("/api/v1/auth/google/logout", oauth.Logout)
	mux.HandleFunc("/api/v1/auth/google/status", oauth.Status)
	mux.HandleFunc("/api/v1/clips", clips.CreateClip)
	mux.HandleFunc("/api/v1/sync", clips.Sync)
	mux.HandleFunc("/api/v1/uploads", clips.ListUploads)
	mux.HandleFunc("/api/v1/channels/shorts", clips.ListShorts)
	mux.HandleFunc("/api/v1/videos/metadata", videos.Lookup)
	mux.HandleFunc("/api/v1/flows/optimize-tags", flows.OptimizeTags)
	mux.HandleFunc("/api/v1/flows/rewrite", flows.Rewrite)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	OAuth         OAuthService
	Cookies       CookieIssuer
	Clips         ClipService
	Metadata      MetadataProvider
	Shorts        ShortsLister
	Uploads       UploadStore
	Flows         FlowService
	Limiter       RateLimiter
	HealthChecks  []HealthCheck
	BaseURL       string
	SecureCookies bool
}
