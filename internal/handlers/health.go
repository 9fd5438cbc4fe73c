package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthCheck reports the availability of one external tool or service the
// pipelines depend on, such as yt-dlp or ffmpeg.
type HealthCheck struct {
	Name  string
	Check func() error
}

// HealthHandler responds with service health information.
type HealthHandler struct {
	Checks []HealthCheck
}

// Handle implements GET /healthz. The endpoint stays 200 as long as the
// process serves traffic; failing tool checks are reported in the body so
// operators can spot a missing binary before uploads start failing.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload := map[string]any{
		"status": "ok",
	}

	if len(h.Checks) > 0 {
		tools := make(map[string]string, len(h.Checks))
		for _, check := range h.Checks {
			if err := check.Check(); err != nil {
				tools[check.Name] = err.Error()
				payload["status"] = "degraded"
				continue
			}
			tools[check.Name] = "ok"
		}
		payload["tools"] = tools
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
