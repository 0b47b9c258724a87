package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
)

type errorResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	DevError string `json:"dev_error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends the failure envelope. The underlying error is only
// included outside production.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Message: msg}
	if err != nil && !s.cfg.IsProduction() {
		resp.DevError = err.Error()
	}
	writeJSON(w, status, resp)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
