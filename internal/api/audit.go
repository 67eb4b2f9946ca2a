package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/iot-admin-core/internal/audit"
)

// auditChanSize is the buffer size for the async audit channel.
// Entries beyond this are dropped to avoid back-pressure on requests.
const auditChanSize = 256

// auditLog enqueues an audit entry for the caller of r (best-effort).
func (s *Server) auditLog(r *http.Request, action, objectID string, details map[string]any) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}

	entry := &audit.Entry{
		Action:   action,
		ObjectID: objectID,
		Source:   audit.SourceAPI,
		Details:  details,
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		entry.Subject = claims.Subject
	}

	select {
	case s.auditCh <- entry:
	default:
		s.logger.Warn("audit channel full, dropping entry",
			"action", action,
			"object_id", objectID,
		)
	}
}

// drainAuditLog writes queued entries serially until ctx is cancelled,
// then flushes what is left.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case entry := <-s.auditCh:
			s.writeAudit(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.auditCh:
					s.writeAudit(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) writeAudit(entry *audit.Entry) {
	if err := s.auditRepo.Create(context.Background(), entry); err != nil {
		s.logger.Error("audit write failed",
			"action", entry.Action,
			"object_id", entry.ObjectID,
			"error", err,
		)
	}
}

// handleListAudit returns paginated audit entries.
//
// Query parameters:
//   - action: filter by action (smartname.update, state.write, ...)
//   - object: filter by object id
//   - subject: filter by token subject
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		ObjectID: q.Get("object"),
		Subject:  q.Get("subject"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
