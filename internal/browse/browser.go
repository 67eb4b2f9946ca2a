package browse

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sender delivers a command to an adapter instance and returns its reply.
type Sender interface {
	SendTo(ctx context.Context, target, command string, payload any) (json.RawMessage, error)
}

// Logger defines the logging interface used by the browse package.
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

// Browser asks the adapter for device lists and caches them.
type Browser struct {
	sender Sender
	target string
	cache  *Cache
	logger Logger
}

// NewBrowser creates a Browser sending to the adapter instance target,
// e.g. "iot.0".
func NewBrowser(sender Sender, target string, cache *Cache) *Browser {
	if cache == nil {
		cache = NewCache()
	}
	return &Browser{sender: sender, target: target, cache: cache, logger: noopLogger{}}
}

// SetLogger sets the logger for the browser.
func (b *Browser) SetLogger(logger Logger) {
	b.logger = logger
}

// Cache returns the cache results are stored in.
func (b *Browser) Cache() *Cache {
	return b.cache
}

// Browse runs the browse command for kind and caches the result.
func (b *Browser) Browse(ctx context.Context, kind Kind) (Result, error) {
	command := kind.Command()
	if command == "" {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	reply, err := b.sender.SendTo(ctx, b.target, command, nil)
	if err != nil {
		return Result{}, fmt.Errorf("browsing %s: %w", kind, err)
	}

	devices, err := DecodeDevices(reply)
	if err != nil {
		return Result{}, err
	}
	if len(devices) > MaxDevices {
		b.logger.Warn("browse result above device cap", "kind", kind, "devices", len(devices))
	}

	b.logger.Debug("browse result cached", "kind", kind, "devices", len(devices))
	return b.cache.Store(kind, devices), nil
}

// Lookup finds stateID in the cached result for kind.
func (b *Browser) Lookup(kind Kind, stateID string) (Match, error) {
	return b.cache.Find(kind, stateID)
}

// DecodeDevices parses an adapter reply. Both a bare device list and an
// object wrapping it under "devices" are accepted; null is an empty list.
func DecodeDevices(data json.RawMessage) ([]DeviceDescription, error) {
	if len(data) == 0 || string(data) == "null" {
		return []DeviceDescription{}, nil
	}

	var devices []DeviceDescription
	if err := json.Unmarshal(data, &devices); err == nil {
		return devices, nil
	}

	var wrapped struct {
		Devices *[]DeviceDescription `json:"devices"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if wrapped.Devices == nil {
		return nil, fmt.Errorf("%w: no device list", ErrInvalidResponse)
	}
	return *wrapped.Devices, nil
}
