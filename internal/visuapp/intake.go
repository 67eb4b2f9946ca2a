package visuapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
)

// intakeTimeout bounds the handling of one MQTT message.
const intakeTimeout = 30 * time.Second

// Bus is the MQTT surface Intake needs. *mqtt.Client satisfies it.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishJSON(topic string, v any, retained bool) error
}

// Reply is published on the reply topic of a request that carries an id.
type Reply struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Intake feeds app messages received over MQTT into a Handler.
type Intake struct {
	bus     Bus
	handler *Handler
	topics  mqtt.Topics
}

// NewIntake creates an Intake.
func NewIntake(bus Bus, handler *Handler) *Intake {
	return &Intake{bus: bus, handler: handler}
}

// Start subscribes to the app message topic.
func (in *Intake) Start() error {
	if err := in.bus.Subscribe(in.topics.AppMessage(), 1, in.handleMessage); err != nil {
		return fmt.Errorf("subscribing to app messages: %w", err)
	}
	return nil
}

// Stop unsubscribes from the app message topic.
func (in *Intake) Stop() error {
	return in.bus.Unsubscribe(in.topics.AppMessage())
}

func (in *Intake) handleMessage(_ string, payload []byte) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding app message: %w", err)
	}
	// A bare report has no envelope; treat the whole payload as the message.
	if req.Command == "" && len(req.Message) == 0 {
		req.Message = payload
	}

	ctx, cancel := context.WithTimeout(context.Background(), intakeTimeout)
	defer cancel()

	result, err := in.handler.Handle(ctx, req)
	if req.ID == "" {
		return err
	}

	reply := Reply{ID: req.ID, Result: result}
	if err != nil {
		reply.Error = err.Error()
		reply.Result = nil
	}
	if pubErr := in.bus.PublishJSON(in.topics.AppReply(req.ID), reply, false); pubErr != nil {
		return fmt.Errorf("publishing app reply: %w", pubErr)
	}
	return err
}
