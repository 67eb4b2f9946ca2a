// Package influxdb provides InfluxDB connectivity for the IoT admin core.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, non-blocking point writes and health monitoring.
//
// # Purpose
//
// The object tree keeps only the latest value of each state. This package
// records the history behind it:
//   - Geofence presence changes reported by the mobile app
//   - App device battery and connectivity readings
//   - Numeric and boolean state values
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePresence("iot.0", "home", true)
//
// Every writer is a no-op on a nil or closed client, so callers can hold a
// *Client that was never connected when InfluxDB is disabled.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered to the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
