package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/iot-admin-core/internal/auth"
	"github.com/nerrad567/iot-admin-core/internal/browse"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/iot-admin-core/internal/messagebox"
	"github.com/nerrad567/iot-admin-core/internal/objects"
	"github.com/nerrad567/iot-admin-core/internal/smartname"
	"github.com/nerrad567/iot-admin-core/internal/visuapp"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeTimeout        = "timeout"
	ErrCodeBadGateway     = "bad_gateway"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// User-facing messages for the errors the admin UI shows verbatim.
const (
	msgInvalidID   = "Invalid ID"
	msgInvalidJSON = "not correct JSON format"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeRawJSON writes an already encoded JSON document.
func writeRawJSON(w http.ResponseWriter, status int, body json.RawMessage) {
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck // Best-effort write to response
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// errorStatus maps a domain error onto a status, code and message. The
// bool result is false for errors with no specific mapping.
func errorStatus(err error) (int, string, string, bool) {
	switch {
	case errors.Is(err, objects.ErrInvalidID):
		return http.StatusBadRequest, ErrCodeValidation, msgInvalidID, true
	case errors.Is(err, smartname.ErrInvalidJSON):
		return http.StatusBadRequest, ErrCodeValidation, msgInvalidJSON, true
	case errors.Is(err, smartname.ErrInvalidAttributes),
		errors.Is(err, smartname.ErrInvalidPatch),
		errors.Is(err, objects.ErrInvalidObject),
		errors.Is(err, visuapp.ErrInvalidMessage):
		return http.StatusBadRequest, ErrCodeValidation, err.Error(), true
	case errors.Is(err, browse.ErrUnknownKind),
		errors.Is(err, messagebox.ErrUnknownCommand),
		errors.Is(err, messagebox.ErrInvalidTarget),
		errors.Is(err, visuapp.ErrUnknownMessage),
		errors.Is(err, smartname.ErrNoInstance):
		return http.StatusBadRequest, ErrCodeBadRequest, err.Error(), true
	case errors.Is(err, objects.ErrObjectNotFound),
		errors.Is(err, objects.ErrStateNotFound),
		errors.Is(err, browse.ErrStateNotFound):
		return http.StatusNotFound, ErrCodeNotFound, err.Error(), true
	case errors.Is(err, browse.ErrNotBrowsed):
		return http.StatusConflict, ErrCodeConflict, err.Error(), true
	case errors.Is(err, messagebox.ErrTimeout):
		return http.StatusGatewayTimeout, ErrCodeTimeout, err.Error(), true
	case errors.Is(err, messagebox.ErrRemote),
		errors.Is(err, browse.ErrInvalidResponse):
		return http.StatusBadGateway, ErrCodeBadGateway, err.Error(), true
	case errors.Is(err, messagebox.ErrClosed),
		errors.Is(err, visuapp.ErrNoSender),
		errors.Is(err, mqtt.ErrNotConnected):
		return http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error(), true
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden, err.Error(), true
	}
	return 0, "", "", false
}

// writeServiceError writes the response for an error returned by a domain
// package. Unmapped errors are logged and reported as 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if status, code, msg, ok := errorStatus(err); ok {
		writeError(w, status, code, msg)
		return
	}
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeInternalError(w, "internal server error")
}
