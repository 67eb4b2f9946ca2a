package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/nerrad567/iot-admin-core/internal/visuapp"
)

// handleAppMessage runs a visuApp message received over HTTP. The body is
// either {"command": ..., "message": ...} or a bare presence/devices report.
func (s *Server) handleAppMessage(w http.ResponseWriter, r *http.Request) {
	if s.app == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "app intake not configured")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	var req visuapp.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" && len(req.Message) == 0 {
		req.Message = body
	}

	result, err := s.app.Handle(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if raw, ok := result.(json.RawMessage); ok {
		writeRawJSON(w, http.StatusOK, raw)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
