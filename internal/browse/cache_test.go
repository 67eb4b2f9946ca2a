package browse

import (
	"encoding/json"
	"errors"
	"testing"
)

func loadSample(t *testing.T) []DeviceDescription {
	t.Helper()
	var devices []DeviceDescription
	if err := json.Unmarshal([]byte(sampleDevices), &devices); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return devices
}

func TestCache_Find(t *testing.T) {
	c := NewCache()
	c.Store(KindAlexa3, loadSample(t))

	m, err := c.Find(KindAlexa3, "hue.0.kitchen.actual")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if m.Device.FriendlyName != "Kitchen Light" || m.Control.Type != "dimmer" {
		t.Errorf("Find() = %s/%s", m.Device.FriendlyName, m.Control.Type)
	}
	if m.RepresentativeID != "hue.0.kitchen.on" {
		t.Errorf("RepresentativeID = %q, want hue.0.kitchen.on", m.RepresentativeID)
	}

	m, err = c.Find(KindAlexa3, "zwave.0.hall.switch")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if m.DeviceIndex != 1 || m.ControlIndex != 0 {
		t.Errorf("indexes = %d/%d, want 1/0", m.DeviceIndex, m.ControlIndex)
	}
}

func TestCache_FindErrors(t *testing.T) {
	c := NewCache()

	if _, err := c.Find(KindGoogle, "x"); !errors.Is(err, ErrNotBrowsed) {
		t.Errorf("Find() before browse error = %v, want ErrNotBrowsed", err)
	}

	c.Store(KindGoogle, loadSample(t))
	if _, err := c.Find(KindGoogle, "missing.0.x"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("Find() error = %v, want ErrStateNotFound", err)
	}
	if _, err := c.Find(KindAlexa, "hue.0.kitchen.on"); !errors.Is(err, ErrNotBrowsed) {
		t.Errorf("Find() other kind error = %v, want ErrNotBrowsed", err)
	}
}

func TestCache_StoreReplaces(t *testing.T) {
	c := NewCache()
	c.Store(KindAlexa, loadSample(t))
	c.Store(KindAlexa, nil)

	r, ok := c.Get(KindAlexa)
	if !ok {
		t.Fatal("Get() missing result")
	}
	if len(r.Devices) != 0 {
		t.Errorf("Devices = %d, want 0", len(r.Devices))
	}
	if r.At.IsZero() {
		t.Error("At not set")
	}
}
