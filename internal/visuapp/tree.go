package visuapp

import (
	"context"
	"fmt"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/iot-admin-core/internal/objects"
)

// Tree segments under the instance namespace.
const (
	segmentApp      = "app"
	segmentGeofence = "geofence"
	segmentDevices  = "devices"
)

// deviceField describes one state created for a DeviceReport field.
type deviceField struct {
	key    string
	common map[string]any
}

var (
	fieldBatteryLevel = deviceField{key: "batteryLevel", common: map[string]any{
		"type": "number", "role": "value.battery", "unit": "%", "min": 0, "max": 100,
	}}
	fieldBatteryState = deviceField{key: "batteryState", common: map[string]any{
		"type": "string", "role": "text",
	}}
	fieldConnectionType = deviceField{key: "connectionType", common: map[string]any{
		"type": "string", "role": "text",
	}}
	fieldSSID = deviceField{key: "ssid", common: map[string]any{
		"type": "string", "role": "text",
	}}
)

// PresenceID returns the state id for a geofence name.
func (h *Handler) PresenceID(name string) string {
	return objects.JoinID(h.namespace, segmentApp, segmentGeofence, objects.SanitizeID(name))
}

// DeviceID returns the device object id for an app device name.
func (h *Handler) DeviceID(name string) string {
	return objects.JoinID(h.namespace, segmentApp, segmentDevices, objects.SanitizeID(name))
}

func (h *Handler) writePresence(ctx context.Context, presence map[string]bool) ([]string, error) {
	var written []string
	for _, name := range sortedNames(presence) {
		present := presence[name]
		id := h.PresenceID(name)

		err := h.ensure(ctx, &objects.Object{
			ID:   id,
			Type: objects.TypeState,
			Common: map[string]any{
				"name":  name,
				"type":  "boolean",
				"role":  "indicator",
				"read":  true,
				"write": false,
			},
			Native: map[string]any{},
		})
		if err != nil {
			return written, err
		}
		if _, err := h.store.SetState(ctx, id, present, true); err != nil {
			return written, fmt.Errorf("writing presence %s: %w", id, err)
		}
		written = append(written, id)

		if h.telemetry != nil {
			h.telemetry.WritePresence(h.namespace, name, present)
		}
		h.logger.Debug("presence updated", "id", id, "present", present)
	}
	return written, nil
}

func (h *Handler) writeDevices(ctx context.Context, devices map[string]DeviceReport) ([]string, error) {
	var written []string
	for _, name := range sortedNames(devices) {
		report := devices[name]
		deviceID := h.DeviceID(name)

		err := h.ensure(ctx, &objects.Object{
			ID:     deviceID,
			Type:   objects.TypeDevice,
			Common: map[string]any{"name": name},
			Native: map[string]any{},
		})
		if err != nil {
			return written, err
		}

		for _, fv := range report.fields() {
			id := objects.JoinID(deviceID, fv.field.key)
			common := copyCommon(fv.field.common)
			common["name"] = name + " " + fv.field.key
			common["read"] = true
			common["write"] = false

			if err := h.ensure(ctx, &objects.Object{ID: id, Type: objects.TypeState, Common: common, Native: map[string]any{}}); err != nil {
				return written, err
			}
			if _, err := h.store.SetState(ctx, id, fv.value, true); err != nil {
				return written, fmt.Errorf("writing %s: %w", id, err)
			}
			written = append(written, id)
		}

		if h.telemetry != nil {
			h.telemetry.WriteAppDevice(h.namespace, report.reading(name))
		}
	}
	return written, nil
}

// ensure creates obj unless an object with its id exists.
func (h *Handler) ensure(ctx context.Context, obj *objects.Object) error {
	created, err := h.store.SetObjectNotExists(ctx, obj)
	if err != nil {
		return fmt.Errorf("creating %s: %w", obj.ID, err)
	}
	if created {
		h.logger.Info("app object created", "id", obj.ID, "type", obj.Type)
	}
	return nil
}

type fieldValue struct {
	field deviceField
	value any
}

// fields returns the provided fields in a fixed order.
func (r DeviceReport) fields() []fieldValue {
	var out []fieldValue
	if r.BatteryLevel != nil {
		out = append(out, fieldValue{fieldBatteryLevel, *r.BatteryLevel})
	}
	if r.BatteryState != nil {
		out = append(out, fieldValue{fieldBatteryState, *r.BatteryState})
	}
	if r.ConnectionType != nil {
		out = append(out, fieldValue{fieldConnectionType, *r.ConnectionType})
	}
	if r.SSID != nil {
		out = append(out, fieldValue{fieldSSID, *r.SSID})
	}
	return out
}

func (r DeviceReport) reading(name string) influxdb.AppDeviceReading {
	reading := influxdb.AppDeviceReading{Device: name, BatteryLevel: r.BatteryLevel}
	if r.BatteryState != nil {
		reading.BatteryState = *r.BatteryState
	}
	if r.ConnectionType != nil {
		reading.ConnectionType = *r.ConnectionType
	}
	if r.SSID != nil {
		reading.SSID = *r.SSID
	}
	return reading
}

func copyCommon(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+3)
	for k, v := range m {
		out[k] = v
	}
	return out
}
