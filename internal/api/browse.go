package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/iot-admin-core/internal/audit"
	"github.com/nerrad567/iot-admin-core/internal/browse"
	"github.com/nerrad567/iot-admin-core/internal/messagebox"
)

// BrowseSummary describes the cached result of one browse kind.
type BrowseSummary struct {
	Kind    browse.Kind `json:"kind"`
	Command string      `json:"command"`
	Browsed bool        `json:"browsed"`
	Devices int         `json:"devices"`
	At      *time.Time  `json:"at,omitempty"`
}

// adapterCommands are the commands POST /adapter/{command} accepts.
// Browse commands go through /browse so their results are cached.
var adapterCommands = map[string]bool{
	messagebox.CommandUpdate:          true,
	messagebox.CommandDebug:           true,
	messagebox.CommandUpdateValidTill: true,
}

// handleListBrowse summarises the cache for every kind.
func (s *Server) handleListBrowse(w http.ResponseWriter, _ *http.Request) {
	if s.browser == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "browsing not configured")
		return
	}
	kinds := browse.Kinds()
	out := make([]BrowseSummary, 0, len(kinds))
	for _, k := range kinds {
		sum := BrowseSummary{Kind: k, Command: k.Command()}
		if res, ok := s.browser.Cache().Get(k); ok {
			at := res.At
			sum.Browsed = true
			sum.Devices = len(res.Devices)
			sum.At = &at
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleBrowse asks the adapter for a fresh device list.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.browseKind(w, r)
	if !ok {
		return
	}
	res, err := s.browser.Browse(r.Context(), kind)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	at := res.At
	s.hub.Broadcast(WSEventBrowse, BrowseSummary{
		Kind:    kind,
		Command: kind.Command(),
		Browsed: true,
		Devices: len(res.Devices),
		At:      &at,
	})
	writeJSON(w, http.StatusOK, res)
}

// handleGetBrowse returns the cached device list.
func (s *Server) handleGetBrowse(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.browseKind(w, r)
	if !ok {
		return
	}
	res, found := s.browser.Cache().Get(kind)
	if !found {
		s.writeServiceError(w, r, browse.ErrNotBrowsed)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleBrowseLookup finds the device and control holding ?id=.
func (s *Server) handleBrowseLookup(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.browseKind(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeBadRequest(w, "id query parameter is required")
		return
	}
	m, err := s.browser.Lookup(kind, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) browseKind(w http.ResponseWriter, r *http.Request) (browse.Kind, bool) {
	if s.browser == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "browsing not configured")
		return "", false
	}
	kind, err := browse.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", false
	}
	return kind, true
}

// handleAdapterCommand sends update, debug or updateValidTill to the
// adapter and relays its reply. An empty body sends no payload.
func (s *Server) handleAdapterCommand(w http.ResponseWriter, r *http.Request) {
	if s.adapter == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "adapter messaging not configured")
		return
	}
	command := chi.URLParam(r, "command")
	if !adapterCommands[command] {
		writeBadRequest(w, "unsupported adapter command: "+command)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	var payload any
	if len(body) > 0 {
		if !json.Valid(body) {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		payload = json.RawMessage(body)
	}

	reply, err := s.adapter.Send(r.Context(), command, payload)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("adapter command sent", "target", s.adapter.Target(), "command", command)
	s.auditLog(r, audit.ActionAdapterCommand, "", map[string]any{"target": s.adapter.Target(), "command": command})
	writeRawJSON(w, http.StatusOK, reply)
}
