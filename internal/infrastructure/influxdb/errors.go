package influxdb

import "errors"

var (
	// ErrNotConnected is returned by HealthCheck after Close or before Connect.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps the reason the first ping did not succeed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
