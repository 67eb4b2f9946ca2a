package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the service.
const (
	measurementPresence  = "app_presence"
	measurementAppDevice = "app_device"
	measurementState     = "state_value"
)

// AppDeviceReading is one telemetry report from a mobile-app device.
// Unset pointer fields are omitted from the point.
type AppDeviceReading struct {
	Device         string
	BatteryLevel   *float64
	BatteryState   string
	ConnectionType string
	SSID           string
}

// WritePresence records a geofence presence change for one person/place.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WritePresence("iot.0", "home", true)
func (c *Client) WritePresence(namespace, name string, present bool) {
	c.write(presencePoint(namespace, name, present, time.Now()))
}

// WriteAppDevice records the battery and connectivity readings of an app device.
// Readings without any field are dropped.
func (c *Client) WriteAppDevice(namespace string, r AppDeviceReading) {
	c.write(appDevicePoint(namespace, r, time.Now()))
}

// WriteStateValue records a numeric or boolean state value. Other value
// types are not charted and are ignored.
func (c *Client) WriteStateValue(id string, val any) {
	c.write(statePoint(id, val, time.Now()))
}

func presencePoint(namespace, name string, present bool, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementPresence,
		map[string]string{
			"namespace": namespace,
			"name":      name,
		},
		map[string]interface{}{
			"present": present,
		},
		ts,
	)
}

func appDevicePoint(namespace string, r AppDeviceReading, ts time.Time) *write.Point {
	fields := make(map[string]interface{})
	if r.BatteryLevel != nil {
		fields["battery_level"] = *r.BatteryLevel
	}
	if r.BatteryState != "" {
		fields["battery_state"] = r.BatteryState
	}
	if r.ConnectionType != "" {
		fields["connection_type"] = r.ConnectionType
	}
	if r.SSID != "" {
		fields["ssid"] = r.SSID
	}
	if len(fields) == 0 {
		return nil
	}

	return write.NewPoint(
		measurementAppDevice,
		map[string]string{
			"namespace": namespace,
			"device":    r.Device,
		},
		fields,
		ts,
	)
}

func statePoint(id string, val any, ts time.Time) *write.Point {
	var field interface{}
	switch v := val.(type) {
	case bool:
		field = v
	case float64:
		field = v
	case float32:
		field = float64(v)
	case int:
		field = float64(v)
	case int64:
		field = float64(v)
	default:
		return nil
	}

	return write.NewPoint(
		measurementState,
		map[string]string{"id": id},
		map[string]interface{}{"value": field},
		ts,
	)
}
