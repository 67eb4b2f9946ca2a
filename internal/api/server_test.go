package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/iot-admin-core/internal/audit"
	"github.com/nerrad567/iot-admin-core/internal/auth"
	"github.com/nerrad567/iot-admin-core/internal/browse"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/database"
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/logging"
	"github.com/nerrad567/iot-admin-core/internal/metrics"
	"github.com/nerrad567/iot-admin-core/internal/objects"
	"github.com/nerrad567/iot-admin-core/internal/smartname"
	"github.com/nerrad567/iot-admin-core/internal/visuapp"
	_ "github.com/nerrad567/iot-admin-core/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

const testDevices = `[
	{
		"friendlyName": "Kitchen Light",
		"roomName": "Kitchen",
		"funcName": "Light",
		"controls": [
			{
				"type": "dimmer",
				"states": {
					"SET": {"id": "hue.0.kitchen.level"},
					"ON_SET": {"id": "hue.0.kitchen.on", "smartName": {"en": "Kitchen"}}
				}
			}
		]
	}
]`

// fakeSender answers browse commands from a fixed reply.
type fakeSender struct {
	mu       sync.Mutex
	commands []string
	reply    json.RawMessage
}

func (f *fakeSender) SendTo(_ context.Context, _, command string, _ any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	return f.reply, nil
}

// fakeAdapter records adapter commands.
type fakeAdapter struct {
	command string
	payload any
	reply   json.RawMessage
}

func (f *fakeAdapter) Target() string { return "iot.0" }

func (f *fakeAdapter) Send(_ context.Context, command string, payload any) (json.RawMessage, error) {
	f.command, f.payload = command, payload
	return f.reply, nil
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	registry *objects.Registry
	sender   *fakeSender
	adapter  *fakeAdapter
	audit    *audit.SQLiteRepository
}

// testServer creates a Server over a real registry backed by in-memory SQLite.
func testServer(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: ":memory:", BusyTimeout: 5})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	registry := objects.NewRegistry(objects.NewSQLiteRepository(db.DB))
	names := smartname.NewService(registry, smartname.Options{InstanceID: "iot.0", Language: "en"})
	sender := &fakeSender{reply: json.RawMessage(testDevices)}
	adapter := &fakeAdapter{reply: json.RawMessage(`{"result":"ok"}`)}
	auditRepo := audit.NewSQLiteRepository(db.DB)

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
		},
		Subscriptions: config.SubscriptionsConfig{BatchWindowMS: 10},
		MetricsConfig: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Logger:        logging.Discard(),
		Registry:      registry,
		SmartNames:    names,
		Browser:       browse.NewBrowser(sender, "iot.0", browse.NewCache()),
		Adapter:       adapter,
		App:           visuapp.NewHandler(registry, "iot.0"),
		DB:            db,
		Audit:         auditRepo,
		Metrics:       metrics.New(),
		Version:       "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	drainCtx, stopDrain := context.WithCancel(ctx)
	go srv.drainAuditLog(drainCtx)
	t.Cleanup(stopDrain)

	return &testEnv{
		srv:      srv,
		handler:  srv.Handler(),
		registry: registry,
		sender:   sender,
		adapter:  adapter,
		audit:    auditRepo,
	}
}

func tokenFor(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateToken("tester", role, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) seedState(t *testing.T, id, name string) {
	t.Helper()
	err := e.registry.SetObject(context.Background(), &objects.Object{
		ID:   id,
		Type: objects.TypeState,
		Common: map[string]any{
			"name": name,
			"role": "switch",
			"type": "boolean",
		},
	})
	if err != nil {
		t.Fatalf("SetObject(%s): %v", id, err)
	}
}

func TestHealth(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestRequestID(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-id" {
		t.Errorf("X-Request-ID = %q, want client-id", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/objects/x", nil)
	req.Header.Set("Origin", "http://admin.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://admin.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestAuth(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp")

	expired, err := auth.GenerateToken("tester", auth.RoleAdmin, testSecret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/objects/hue.0.lamp.on", "", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/objects/hue.0.lamp.on", "", "nope", http.StatusUnauthorized},
		{"expired token", http.MethodGet, "/api/v1/objects/hue.0.lamp.on", "", expired, http.StatusUnauthorized},
		{"viewer reads", http.MethodGet, "/api/v1/objects/hue.0.lamp.on", "", tokenFor(t, auth.RoleViewer), http.StatusOK},
		{"viewer cannot edit", http.MethodPatch, "/api/v1/objects/hue.0.lamp.on/smartname", `{"smartName":"x"}`, tokenFor(t, auth.RoleViewer), http.StatusForbidden},
		{"editor cannot command adapter", http.MethodPost, "/api/v1/adapter/update", "", tokenFor(t, auth.RoleEditor), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, tt.method, tt.path, tt.body, tt.token); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestMe(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", "", tokenFor(t, auth.RoleEditor))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	me := decodeBody[MeResponse](t, rec)
	if me.Subject != "tester" || me.Role != auth.RoleEditor {
		t.Errorf("me = %+v", me)
	}
	if len(me.Permissions) != len(auth.PermissionsForRole(auth.RoleEditor)) {
		t.Errorf("permissions = %v", me.Permissions)
	}
}

func TestGetObject(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp")
	token := tokenFor(t, auth.RoleViewer)

	rec := env.do(t, http.MethodGet, "/api/v1/objects/hue.0.lamp.on", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if obj := decodeBody[objects.Object](t, rec); obj.ID != "hue.0.lamp.on" {
		t.Errorf("ID = %q", obj.ID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/objects/hue.0.missing", "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing object status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/objects/hue..lamp", "", token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d, want 400", rec.Code)
	}
	if e := decodeBody[Error](t, rec); e.Message != "Invalid ID" {
		t.Errorf("message = %q, want Invalid ID", e.Message)
	}
}

func TestListObjects(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp")
	env.seedState(t, "zwave.0.plug.on", "Plug")

	rec := env.do(t, http.MethodGet, "/api/v1/objects?prefix=hue.0.", "", tokenFor(t, auth.RoleViewer))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[struct {
		Objects []objects.Object `json:"objects"`
		Count   int              `json:"count"`
	}](t, rec)
	if body.Count != 1 || body.Objects[0].ID != "hue.0.lamp.on" {
		t.Errorf("body = %+v", body)
	}
}

func TestSmartName_PatchGetDelete(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp object")
	token := tokenFor(t, auth.RoleEditor)
	path := "/api/v1/objects/hue.0.lamp.on/smartname"

	rec := env.do(t, http.MethodPatch, path, `{"smartName": "Lamp, lamp, Ceiling", "byON": 80}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[SmartNameResponse](t, rec)
	if resp.Kind != "descriptor" || resp.Name != "Lamp, Ceiling" {
		t.Errorf("PATCH response = %+v", resp)
	}
	if resp.ByON == nil || *resp.ByON != "80" {
		t.Errorf("byON = %v, want 80", resp.ByON)
	}

	rec = env.do(t, http.MethodGet, path, "", token)
	if got := decodeBody[SmartNameResponse](t, rec); got.Name != "Lamp, Ceiling" {
		t.Errorf("GET name = %q", got.Name)
	}

	rec = env.do(t, http.MethodDelete, path, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if got := decodeBody[SmartNameResponse](t, rec); got.Kind != "disabled" {
		t.Errorf("after DELETE kind = %q, want disabled", got.Kind)
	}
}

func TestSmartName_PatchErrors(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp")
	token := tokenFor(t, auth.RoleEditor)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"malformed body", "/api/v1/objects/hue.0.lamp.on/smartname", `{`, http.StatusBadRequest},
		{"unknown field", "/api/v1/objects/hue.0.lamp.on/smartname", `{"colour":"red"}`, http.StatusBadRequest},
		{"wrong type", "/api/v1/objects/hue.0.lamp.on/smartname", `{"noAutoDetect":"yes"}`, http.StatusBadRequest},
		{"missing object", "/api/v1/objects/hue.0.none/smartname", `{"smartName":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, http.MethodPatch, tt.path, tt.body, token); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestSmartName_SkipsObjectWithoutCommon(t *testing.T) {
	env := testServer(t)
	if err := env.registry.SetObject(context.Background(), &objects.Object{ID: "hue.0.bare", Type: objects.TypeState}); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPatch, "/api/v1/objects/hue.0.bare/smartname", `{"smartName":"x"}`, tokenFor(t, auth.RoleEditor))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody[SmartNameResponse](t, rec); !got.Skipped {
		t.Errorf("expected skipped response, got %+v", got)
	}
}

func TestGoogleHome(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp")
	token := tokenFor(t, auth.RoleEditor)
	path := "/api/v1/objects/hue.0.lamp.on/googlehome"

	rec := env.do(t, http.MethodPut, path, `{"type":"action.devices.types.LIGHT","traits":["action.devices.traits.OnOff"]}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[SmartNameResponse](t, rec)
	if resp.GoogleHome == nil || resp.GoogleHome.Type != "action.devices.types.LIGHT" {
		t.Errorf("googleHome = %+v", resp.GoogleHome)
	}

	before, err := env.registry.GetObject(context.Background(), "hue.0.lamp.on")
	if err != nil {
		t.Fatal(err)
	}

	rec = env.do(t, http.MethodPut, path, `{"attributes":"{not json"}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid attributes status = %d, want 400", rec.Code)
	}
	if e := decodeBody[Error](t, rec); e.Message != "not correct JSON format" {
		t.Errorf("message = %q", e.Message)
	}

	after, err := env.registry.GetObject(context.Background(), "hue.0.lamp.on")
	if err != nil {
		t.Fatal(err)
	}
	b1, _ := json.Marshal(before.Common) //nolint:errcheck // Test comparison
	b2, _ := json.Marshal(after.Common)  //nolint:errcheck // Test comparison
	if string(b1) != string(b2) {
		t.Errorf("object changed by rejected update:\n%s\n%s", b1, b2)
	}
}

func TestStates(t *testing.T) {
	env := testServer(t)
	token := tokenFor(t, auth.RoleEditor)
	path := "/api/v1/states/hue.0.lamp.on"

	if rec := env.do(t, http.MethodGet, path, "", token); rec.Code != http.StatusNotFound {
		t.Errorf("unwritten state status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, path, `{"ack":true}`, token); rec.Code != http.StatusBadRequest {
		t.Errorf("missing val status = %d, want 400", rec.Code)
	}

	rec := env.do(t, http.MethodPut, path, `{"val":true,"ack":true}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, path, "", token)
	st := decodeBody[objects.State](t, rec)
	if st.Val != true || !st.Ack {
		t.Errorf("state = %+v", st)
	}
}

func TestBrowse(t *testing.T) {
	env := testServer(t)
	token := tokenFor(t, auth.RoleViewer)

	if rec := env.do(t, http.MethodGet, "/api/v1/browse/google", "", token); rec.Code != http.StatusConflict {
		t.Errorf("unbrowsed kind status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/browse/siri", "", token); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/browse/alexa", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("browse status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[browse.Result](t, rec)
	if len(res.Devices) != 1 || res.Devices[0].FriendlyName != "Kitchen Light" {
		t.Errorf("devices = %+v", res.Devices)
	}
	if len(env.sender.commands) != 1 || env.sender.commands[0] != "browse" {
		t.Errorf("commands = %v", env.sender.commands)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/browse/alexa/lookup?id=hue.0.kitchen.level", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rec.Code)
	}
	if m := decodeBody[browse.Match](t, rec); m.RepresentativeID != "hue.0.kitchen.on" {
		t.Errorf("representativeId = %q, want hue.0.kitchen.on", m.RepresentativeID)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/browse/alexa/lookup?id=hue.0.other", "", token); rec.Code != http.StatusNotFound {
		t.Errorf("unknown state status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/browse", "", token)
	sums := decodeBody[[]BrowseSummary](t, rec)
	if len(sums) != len(browse.Kinds()) {
		t.Fatalf("summaries = %d", len(sums))
	}
	for _, s := range sums {
		if want := s.Kind == browse.KindAlexa; s.Browsed != want {
			t.Errorf("%s browsed = %v, want %v", s.Kind, s.Browsed, want)
		}
	}
}

func TestAdapterCommand(t *testing.T) {
	env := testServer(t)
	token := tokenFor(t, auth.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/v1/adapter/updateValidTill", `{"validTill":"2030-01-01"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if env.adapter.command != "updateValidTill" {
		t.Errorf("command = %q", env.adapter.command)
	}
	if raw, ok := env.adapter.payload.(json.RawMessage); !ok || !strings.Contains(string(raw), "2030") {
		t.Errorf("payload = %v", env.adapter.payload)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"result":"ok"}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/adapter/browse", "", token); rec.Code != http.StatusBadRequest {
		t.Errorf("browse via adapter status = %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/adapter/debug", "{", token); rec.Code != http.StatusBadRequest {
		t.Errorf("bad payload status = %d, want 400", rec.Code)
	}
}

func TestColor(t *testing.T) {
	env := testServer(t)
	token := tokenFor(t, auth.RoleViewer)

	rec := env.do(t, http.MethodGet, "/api/v1/color?h=0&s=1&b=1", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c := decodeBody[ColorResponse](t, rec); c.Hex != "#ff0000" || c.R != 255 {
		t.Errorf("color = %+v", c)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/color?h=0&s=1", "", token); rec.Code != http.StatusBadRequest {
		t.Errorf("missing b status = %d, want 400", rec.Code)
	}
}

func TestAppMessage(t *testing.T) {
	env := testServer(t)
	token := tokenFor(t, auth.RoleEditor)

	rec := env.do(t, http.MethodPost, "/api/v1/app/message", `{"presence":{"home":true}}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[visuapp.ReportResult](t, rec)
	if len(res.Written) != 1 || res.Written[0] != "iot.0.app.geofence.home" {
		t.Errorf("written = %v", res.Written)
	}

	st, err := env.registry.GetState(context.Background(), "iot.0.app.geofence.home")
	if err != nil {
		t.Fatal(err)
	}
	if st.Val != true || !st.Ack {
		t.Errorf("state = %+v", st)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/app/message", `{"command":"selfDestruct"}`, token); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown command status = %d, want 400", rec.Code)
	}
}

func TestSystemAndMetrics(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp")

	rec := env.do(t, http.MethodGet, "/api/v1/system", "", tokenFor(t, auth.RoleViewer))
	if rec.Code != http.StatusOK {
		t.Fatalf("system status = %d", rec.Code)
	}
	sys := decodeBody[SystemMetrics](t, rec)
	if sys.Version != "test" || sys.Objects.Cached != 1 || sys.MQTT.Configured {
		t.Errorf("system = %+v", sys)
	}

	rec = env.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	want := `iotadmin_http_requests_total{method="GET",route="/api/v1/system",status="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics missing %q", want)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	env := testServer(t)
	names := smartname.NewService(env.registry, smartname.Options{InstanceID: "iot.0"})
	secure := config.SecurityConfig{JWT: config.JWTConfig{Secret: testSecret}}

	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Registry: env.registry, SmartNames: names, Security: secure}},
		{"no registry", Deps{Logger: logging.Discard(), SmartNames: names, Security: secure}},
		{"no smart names", Deps{Logger: logging.Discard(), Registry: env.registry, Security: secure}},
		{"no secret", Deps{Logger: logging.Discard(), Registry: env.registry, SmartNames: names}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAudit_RecordsEdits(t *testing.T) {
	env := testServer(t)
	env.seedState(t, "hue.0.lamp.on", "Lamp object")
	editor := tokenFor(t, auth.RoleEditor)
	admin := tokenFor(t, auth.RoleAdmin)

	if rec := env.do(t, http.MethodPatch, "/api/v1/objects/hue.0.lamp.on/smartname", `{"smartName": "Lamp"}`, editor); rec.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPut, "/api/v1/states/hue.0.lamp.on", `{"val": true}`, editor); rec.Code != http.StatusOK {
		t.Fatalf("PUT state status = %d: %s", rec.Code, rec.Body.String())
	}
	// Rejected writes leave no trail.
	if rec := env.do(t, http.MethodPatch, "/api/v1/objects/hue.0.lamp.on/smartname", `{"noAutoDetect":"yes"}`, editor); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad PATCH status = %d", rec.Code)
	}

	waitFor(t, "audit entries", func() bool {
		res, err := env.audit.List(context.Background(), audit.Filter{})
		return err == nil && res.Total == 2
	})

	if rec := env.do(t, http.MethodGet, "/api/v1/audit", "", editor); rec.Code != http.StatusForbidden {
		t.Errorf("editor audit status = %d, want 403", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/audit?object=hue.0.lamp.on&action=smartname.update", "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET audit status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[audit.ListResult](t, rec)
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("audit result = %+v", res)
	}
	if e := res.Entries[0]; e.Subject != "tester" || e.ObjectID != "hue.0.lamp.on" || e.Source != audit.SourceAPI {
		t.Errorf("entry = %+v", e)
	}
}
