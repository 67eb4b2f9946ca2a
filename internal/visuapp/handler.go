package visuapp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/iot-admin-core/internal/objects"
)

// Commands the app sends.
const (
	CommandSendToAdapter = "sendToAdapter"
	CommandGetInstances  = "getInstances"
)

// Message kinds reported to the observer.
const (
	KindSendToAdapter = "sendToAdapter"
	KindGetInstances  = "getInstances"
	KindPresence      = "presence"
	KindDevices       = "devices"
	KindUnknown       = "unknown"
)

// instancePrefix is the id prefix of adapter instance objects.
const instancePrefix = "system.adapter."

// Store is the object/state access the handler needs. *objects.Registry
// satisfies it.
type Store interface {
	SetObjectNotExists(ctx context.Context, obj *objects.Object) (bool, error)
	SetState(ctx context.Context, id string, val any, ack bool) (*objects.State, error)
	ListObjects(ctx context.Context, prefix string, objType objects.Type) ([]objects.Object, error)
}

// Sender forwards a command to an adapter instance.
type Sender interface {
	SendTo(ctx context.Context, target, command string, payload any) (json.RawMessage, error)
}

// Telemetry records app readings as time series. *influxdb.Client
// satisfies it.
type Telemetry interface {
	WritePresence(namespace, name string, present bool)
	WriteAppDevice(namespace string, r influxdb.AppDeviceReading)
}

// Logger defines the logging interface used by the handler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Request is one message from the app. Command is empty for raw reports;
// Message then holds the report itself.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

// SendToAdapterMessage is the body of sendToAdapter.
type SendToAdapterMessage struct {
	Instance string          `json:"instance"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// GetInstancesMessage is the body of getInstances.
type GetInstancesMessage struct {
	AdapterName string `json:"adapterName"`
}

// DeviceReport is what the app knows about one of its devices. Missing
// fields are not written.
type DeviceReport struct {
	SSID           *string  `json:"ssid,omitempty"`
	ConnectionType *string  `json:"connectionType,omitempty"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty"`
	BatteryState   *string  `json:"batteryState,omitempty"`
}

// Report is a raw presence and/or device report.
type Report struct {
	Presence map[string]bool         `json:"presence,omitempty"`
	Devices  map[string]DeviceReport `json:"devices,omitempty"`
}

// ReportResult lists the state ids a report wrote.
type ReportResult struct {
	Written []string `json:"written"`
}

// Handler executes app messages.
type Handler struct {
	store     Store
	sender    Sender
	telemetry Telemetry
	namespace string
	logger    Logger
	observer  func(kind string)
}

// NewHandler creates a handler writing under namespace, e.g. "iot.0".
func NewHandler(store Store, namespace string) *Handler {
	return &Handler{store: store, namespace: namespace, logger: noopLogger{}}
}

// SetSender wires sendToAdapter to a messagebox.
func (h *Handler) SetSender(s Sender) {
	h.sender = s
}

// SetTelemetry enables time-series recording of reports.
func (h *Handler) SetTelemetry(t Telemetry) {
	h.telemetry = t
}

// SetLogger sets the logger for the handler.
func (h *Handler) SetLogger(logger Logger) {
	h.logger = logger
}

// SetObserver registers a callback run with the kind of every handled message.
func (h *Handler) SetObserver(o func(kind string)) {
	h.observer = o
}

// Namespace returns the id prefix reports are written under.
func (h *Handler) Namespace() string {
	return h.namespace
}

// Handle executes req and returns the value to answer the app with.
func (h *Handler) Handle(ctx context.Context, req Request) (any, error) {
	switch req.Command {
	case CommandSendToAdapter:
		h.observe(KindSendToAdapter)
		return h.sendToAdapter(ctx, req.Message)
	case CommandGetInstances:
		h.observe(KindGetInstances)
		return h.getInstances(ctx, req.Message)
	case "":
		return h.report(ctx, req.Message)
	default:
		h.observe(KindUnknown)
		return nil, fmt.Errorf("%w: command %q", ErrUnknownMessage, req.Command)
	}
}

func (h *Handler) sendToAdapter(ctx context.Context, raw json.RawMessage) (any, error) {
	var msg SendToAdapterMessage
	if err := decode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Instance == "" || msg.Message == "" {
		return nil, fmt.Errorf("%w: instance and message required", ErrInvalidMessage)
	}
	if h.sender == nil {
		return nil, ErrNoSender
	}

	var data any
	if len(msg.Data) > 0 {
		data = msg.Data
	}
	reply, err := h.sender.SendTo(ctx, strings.TrimPrefix(msg.Instance, instancePrefix), msg.Message, data)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (h *Handler) getInstances(ctx context.Context, raw json.RawMessage) (any, error) {
	var msg GetInstancesMessage
	if err := decode(raw, &msg); err != nil {
		return nil, err
	}
	if msg.AdapterName == "" {
		return nil, fmt.Errorf("%w: adapterName required", ErrInvalidMessage)
	}

	objs, err := h.store.ListObjects(ctx, instancePrefix+msg.AdapterName+".", objects.TypeInstance)
	if err != nil {
		return nil, fmt.Errorf("listing instances of %s: %w", msg.AdapterName, err)
	}
	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		ids = append(ids, strings.TrimPrefix(o.ID, instancePrefix))
	}
	sort.Strings(ids)
	return ids, nil
}

func (h *Handler) report(ctx context.Context, raw json.RawMessage) (any, error) {
	var r Report
	if err := decode(raw, &r); err != nil {
		h.observe(KindUnknown)
		return nil, fmt.Errorf("%w: %w", ErrUnknownMessage, err)
	}
	if r.Presence == nil && r.Devices == nil {
		h.observe(KindUnknown)
		return nil, ErrUnknownMessage
	}

	result := ReportResult{Written: []string{}}
	if r.Presence != nil {
		h.observe(KindPresence)
		written, err := h.writePresence(ctx, r.Presence)
		result.Written = append(result.Written, written...)
		if err != nil {
			return result, err
		}
	}
	if r.Devices != nil {
		h.observe(KindDevices)
		written, err := h.writeDevices(ctx, r.Devices)
		result.Written = append(result.Written, written...)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (h *Handler) observe(kind string) {
	if h.observer != nil {
		h.observer(kind)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return nil
}

// sortedNames returns the keys of m in order so writes are deterministic.
func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
