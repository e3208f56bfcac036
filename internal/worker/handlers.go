package worker

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON decodes a request body, rejecting unknown fields so client
// typos surface as errors instead of silently dropped data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// handleHealth reports liveness plus store and model status.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		dbStatus = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":         map[bool]string{true: "healthy", false: "degraded"}[status == http.StatusOK],
		"version":        s.version,
		"database":       dbStatus,
		"models_loaded":  len(s.registry.Keys()),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

// handleVersion reports the binary version.
func (s *Service) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}
