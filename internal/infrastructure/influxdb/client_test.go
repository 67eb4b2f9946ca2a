package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
)

// fakeWriteAPI records points instead of sending them.
type fakeWriteAPI struct {
	api.WriteAPI

	mu      sync.Mutex
	points  []*write.Point
	flushes int
	errs    chan error
}

func newFakeWriteAPI() *fakeWriteAPI {
	return &fakeWriteAPI{errs: make(chan error, 1)}
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakeWriteAPI) Errors() <-chan error {
	return f.errs
}

func (f *fakeWriteAPI) written() []*write.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*write.Point(nil), f.points...)
}

func tagsOf(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func fieldsOf(p *write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, field := range p.FieldList() {
		out[field.Key] = field.Value
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "token",
		Org:     "org",
		Bucket:  "bucket",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWritePresence(t *testing.T) {
	fake := newFakeWriteAPI()
	c := newClient(nil, fake, config.InfluxDBConfig{})

	c.WritePresence("iot.0", "home", true)

	points := fake.written()
	if len(points) != 1 {
		t.Fatalf("wrote %d points, want 1", len(points))
	}
	p := points[0]
	if p.Name() != measurementPresence {
		t.Errorf("measurement = %q, want %q", p.Name(), measurementPresence)
	}
	if tags := tagsOf(p); tags["namespace"] != "iot.0" || tags["name"] != "home" {
		t.Errorf("tags = %v", tags)
	}
	if fields := fieldsOf(p); fields["present"] != true {
		t.Errorf("fields = %v", fields)
	}
}

func TestWriteAppDevice(t *testing.T) {
	level := 87.0
	tests := []struct {
		name       string
		reading    AppDeviceReading
		wantPoints int
		wantFields map[string]interface{}
	}{
		{
			name: "all fields",
			reading: AppDeviceReading{
				Device:         "pixel",
				BatteryLevel:   &level,
				BatteryState:   "charging",
				ConnectionType: "wifi",
				SSID:           "home-net",
			},
			wantPoints: 1,
			wantFields: map[string]interface{}{
				"battery_level":   87.0,
				"battery_state":   "charging",
				"connection_type": "wifi",
				"ssid":            "home-net",
			},
		},
		{
			name:       "battery only",
			reading:    AppDeviceReading{Device: "pixel", BatteryLevel: &level},
			wantPoints: 1,
			wantFields: map[string]interface{}{"battery_level": 87.0},
		},
		{
			name:       "no fields dropped",
			reading:    AppDeviceReading{Device: "pixel"},
			wantPoints: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeWriteAPI()
			c := newClient(nil, fake, config.InfluxDBConfig{})

			c.WriteAppDevice("iot.0", tt.reading)

			points := fake.written()
			if len(points) != tt.wantPoints {
				t.Fatalf("wrote %d points, want %d", len(points), tt.wantPoints)
			}
			if tt.wantPoints == 0 {
				return
			}
			fields := fieldsOf(points[0])
			if len(fields) != len(tt.wantFields) {
				t.Errorf("fields = %v, want %v", fields, tt.wantFields)
			}
			for k, v := range tt.wantFields {
				if fields[k] != v {
					t.Errorf("field %s = %v, want %v", k, fields[k], v)
				}
			}
			if tagsOf(points[0])["device"] != "pixel" {
				t.Errorf("device tag = %q", tagsOf(points[0])["device"])
			}
		})
	}
}

func TestWriteStateValue(t *testing.T) {
	tests := []struct {
		name  string
		val   any
		write bool
	}{
		{"bool", true, true},
		{"float", 21.5, true},
		{"int", 3, true},
		{"string ignored", "on", false},
		{"nil ignored", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeWriteAPI()
			c := newClient(nil, fake, config.InfluxDBConfig{})

			c.WriteStateValue("hue.0.lamp.level", tt.val)

			if got := len(fake.written()) == 1; got != tt.write {
				t.Errorf("written = %v, want %v", got, tt.write)
			}
		})
	}
}

func TestWriteAfterClose(t *testing.T) {
	fake := newFakeWriteAPI()
	c := newClient(nil, fake, config.InfluxDBConfig{})

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if fake.flushes != 1 {
		t.Errorf("Close() flushed %d times, want 1", fake.flushes)
	}

	c.WritePresence("iot.0", "home", false)
	c.WriteStateValue("hue.0.lamp.level", 1.0)
	c.Flush()

	if len(fake.written()) != 0 {
		t.Error("writes after Close() should be dropped")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client

	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	c.WritePresence("iot.0", "home", true)
	c.WriteAppDevice("iot.0", AppDeviceReading{Device: "pixel", SSID: "x"})
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestOnErrorCallback(t *testing.T) {
	fake := newFakeWriteAPI()
	c := newClient(nil, fake, config.InfluxDBConfig{})

	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	want := errors.New("bucket not found")
	fake.errs <- want

	select {
	case err := <-got:
		if !errors.Is(err, want) {
			t.Errorf("callback error = %v, want %v", err, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error callback")
	}
}

func TestStats(t *testing.T) {
	fake := newFakeWriteAPI()
	c := newClient(nil, fake, config.InfluxDBConfig{})

	c.WritePresence("iot.0", "home", true)
	c.WriteStateValue("hue.0.lamp.level", 42.0)
	c.WriteStateValue("hue.0.lamp.name", "kitchen") // not charted

	done := make(chan struct{})
	c.SetOnError(func(error) { close(done) })
	fake.errs <- errors.New("timeout")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error callback")
	}

	got := c.Stats()
	if !got.Connected || got.Points != 2 || got.WriteErrors != 1 {
		t.Errorf("Stats() = %+v, want connected with 2 points and 1 error", got)
	}

	var nilClient *Client
	if s := nilClient.Stats(); s != (Stats{}) {
		t.Errorf("nil Stats() = %+v", s)
	}
}
