package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/iot-admin-core/internal/auth"
)

// defaultWSPath is used when the websocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil && s.metricsCfg.Enabled {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, s.metrics.Handler())
	}

	read := s.requirePermission(auth.PermObjectRead)
	writeNames := s.requirePermission(auth.PermSmartNameWrite)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.With(read).Get("/system", s.handleSystem)
			r.With(read).Get("/color", s.handleColor)

			r.Route("/objects", func(r chi.Router) {
				r.With(read).Get("/", s.handleListObjects)

				r.Route("/{id}", func(r chi.Router) {
					r.With(read).Get("/", s.handleGetObject)
					r.With(read).Get("/smartname", s.handleGetSmartName)
					r.With(writeNames).Patch("/smartname", s.handlePatchSmartName)
					r.With(writeNames).Delete("/smartname", s.handleDeleteSmartName)
					r.With(writeNames).Put("/googlehome", s.handlePutGoogleHome)
				})
			})

			r.Route("/states/{id}", func(r chi.Router) {
				r.With(read).Get("/", s.handleGetState)
				r.With(s.requirePermission(auth.PermStateWrite)).Put("/", s.handleSetState)
			})

			r.Route("/browse", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermBrowse))
				r.Get("/", s.handleListBrowse)
				r.Get("/{kind}", s.handleGetBrowse)
				r.Post("/{kind}", s.handleBrowse)
				r.Get("/{kind}/lookup", s.handleBrowseLookup)
			})

			r.With(s.requirePermission(auth.PermAdapterCommand)).Post("/adapter/{command}", s.handleAdapterCommand)
			r.With(s.requirePermission(auth.PermAppMessage)).Post("/app/message", s.handleAppMessage)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAudit)

			r.With(read).Get(s.wsPath(), s.handleWebSocket)
		})
	})

	return r
}

// wsPath returns the websocket route below /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return defaultWSPath
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	Subject     string            `json:"subject"`
	Role        auth.Role         `json:"role"`
	Permissions []auth.Permission `json:"permissions"`
}

// handleMe returns the caller's identity and permissions.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		Subject:     claims.Subject,
		Role:        claims.Role,
		Permissions: auth.PermissionsForRole(claims.Role),
	})
}
