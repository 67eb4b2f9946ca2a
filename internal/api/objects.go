package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/iot-admin-core/internal/audit"
	"github.com/nerrad567/iot-admin-core/internal/objects"
	"github.com/nerrad567/iot-admin-core/internal/smartname"
)

// SmartNameResponse is the display form of an object's smart name.
type SmartNameResponse struct {
	ID           string                `json:"id"`
	Kind         string                `json:"kind"`
	Skipped      bool                  `json:"skipped,omitempty"`
	SmartName    smartname.Descriptor  `json:"smartName,omitempty"`
	Name         string                `json:"name,omitempty"`
	SmartType    string                `json:"smartType,omitempty"`
	ByON         *string               `json:"byON,omitempty"`
	NoAutoDetect bool                  `json:"noAutoDetect"`
	GoogleHome   *smartname.GoogleHome `json:"googleHome,omitempty"`
}

// SetStateRequest is the body of PUT /states/{id}.
type SetStateRequest struct {
	Val json.RawMessage `json:"val"`
	Ack bool            `json:"ack"`
}

// handleListObjects lists objects filtered by ?prefix= and ?type=.
func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.registry.ListObjects(r.Context(), q.Get("prefix"), objects.Type(q.Get("type")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"objects": list,
		"count":   len(list),
	})
}

// handleGetObject returns one object.
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	obj, err := s.registry.GetObject(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// handleGetSmartName returns the normalized smart name of an object.
func (s *Server) handleGetSmartName(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	v, err := s.smartNames.GetSmartName(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.smartNameResponse(id, v))
}

// handlePatchSmartName applies a partial smart-name update.
func (s *Server) handlePatchSmartName(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	patch, err := smartname.DecodePatch(body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.applySmartName(w, r, id, patch, audit.ActionSmartNameUpdate)
}

// handleDeleteSmartName clears every smart-name field of an object.
func (s *Server) handleDeleteSmartName(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	s.applySmartName(w, r, id, smartname.ClearPatch(), audit.ActionSmartNameClear)
}

func (s *Server) applySmartName(w http.ResponseWriter, r *http.Request, id string, patch smartname.Patch, action string) {
	obj, err := s.smartNames.UpdateSmartName(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if obj != nil && !patch.IsEmpty() {
		s.auditLog(r, action, id, nil)
	}
	s.writeUpdated(w, r, id, obj)
}

// handlePutGoogleHome edits the Google Home keys of an object's smart name.
func (s *Server) handlePutGoogleHome(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	var patch smartname.GoogleHomePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	obj, err := s.smartNames.UpdateGoogleHome(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if obj != nil {
		s.auditLog(r, audit.ActionGoogleHome, id, nil)
	}
	s.writeUpdated(w, r, id, obj)
}

// writeUpdated answers a smart-name write. A nil object means the write was
// skipped because the object has no common section.
func (s *Server) writeUpdated(w http.ResponseWriter, r *http.Request, id string, obj *objects.Object) {
	if obj == nil {
		writeJSON(w, http.StatusOK, SmartNameResponse{ID: id, Kind: smartname.KindAbsent.String(), Skipped: true})
		return
	}
	v, err := smartname.Read(obj, s.smartNames.Options())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.smartNameResponse(id, v))
}

func (s *Server) smartNameResponse(id string, v smartname.Value) SmartNameResponse {
	resp := SmartNameResponse{ID: id, Kind: v.Kind.String()}
	if v.Kind != smartname.KindDescriptor {
		return resp
	}
	d := v.Descriptor
	resp.SmartName = d
	resp.Name = d.Name(s.smartNames.Options().Language)
	resp.SmartType = d.SmartType()
	resp.NoAutoDetect = d.NoAutoDetect()
	if byON, ok := d.ByON(); ok {
		resp.ByON = &byON
	}
	if gh := d.GoogleHome(); !gh.IsZero() {
		resp.GoogleHome = &gh
	}
	return resp
}

// handleGetState returns the current value of a state.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	st, err := s.registry.GetState(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSetState writes a state value.
func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}
	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Val) == 0 {
		writeBadRequest(w, "val is required")
		return
	}
	var val any
	if err := json.Unmarshal(req.Val, &val); err != nil {
		writeBadRequest(w, "invalid val")
		return
	}

	st, err := s.registry.SetState(r.Context(), id, val, req.Ack)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionStateWrite, id, map[string]any{"val": val, "ack": req.Ack})
	writeJSON(w, http.StatusOK, st)
}

// objectID reads and validates the {id} path parameter, writing a 400
// response when it is unusable.
func objectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err == nil {
		err = objects.ValidateID(id)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, msgInvalidID)
		return "", false
	}
	return id, true
}
