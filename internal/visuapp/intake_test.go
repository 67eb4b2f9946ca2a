package visuapp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
)

type fakeBus struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published map[string]any
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler), published: make(map[string]any)}
}

func (b *fakeBus) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = h
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	return nil
}

func (b *fakeBus) PublishJSON(topic string, v any, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic] = v
	return nil
}

func (b *fakeBus) deliver(t *testing.T, topic, payload string) error {
	t.Helper()
	b.mu.Lock()
	h, ok := b.handlers[topic]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no handler for %s", topic)
	}
	return h(topic, []byte(payload))
}

func TestIntake_BareReport(t *testing.T) {
	reg := newTestRegistry(t)
	bus := newFakeBus()
	in := NewIntake(bus, NewHandler(reg, "iot.0"))
	if err := in.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := bus.deliver(t, "iotadmin/app/message", `{"presence": {"home": true}}`); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("reply published without request id: %v", bus.published)
	}
	if _, err := reg.GetObject(context.Background(), "iot.0.app.geofence.home"); err != nil {
		t.Errorf("presence object missing: %v", err)
	}
}

func TestIntake_ReplyWithID(t *testing.T) {
	bus := newFakeBus()
	h := NewHandler(newTestRegistry(t), "iot.0")
	h.SetSender(&fakeSender{reply: json.RawMessage(`"pong"`)})
	in := NewIntake(bus, h)
	if err := in.Start(); err != nil {
		t.Fatal(err)
	}

	payload := `{"id": "r1", "command": "sendToAdapter", "message": {"instance": "ping.0", "message": "ping"}}`
	if err := bus.deliver(t, "iotadmin/app/message", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	reply, ok := bus.published["iotadmin/app/reply/r1"].(Reply)
	if !ok {
		t.Fatalf("no reply published: %v", bus.published)
	}
	if reply.Error != "" || string(reply.Result.(json.RawMessage)) != `"pong"` {
		t.Errorf("reply = %+v", reply)
	}
}

func TestIntake_ErrorReply(t *testing.T) {
	bus := newFakeBus()
	in := NewIntake(bus, NewHandler(newTestRegistry(t), "iot.0"))
	if err := in.Start(); err != nil {
		t.Fatal(err)
	}

	if err := bus.deliver(t, "iotadmin/app/message", `{"id": "r2", "command": "nope"}`); err == nil {
		t.Error("expected handler error")
	}
	reply := bus.published["iotadmin/app/reply/r2"].(Reply)
	if reply.Error == "" || reply.Result != nil {
		t.Errorf("reply = %+v, want error only", reply)
	}

	if err := bus.deliver(t, "iotadmin/app/message", `not json`); err == nil {
		t.Error("expected decode error")
	}

	if err := in.Stop(); err != nil {
		t.Fatal(err)
	}
	if len(bus.handlers) != 0 {
		t.Error("still subscribed after Stop")
	}
}
