package objects

import (
	"github.com/nerrad567/iot-admin-core/internal/infrastructure/mqtt"
)

// Publisher mirrors registry writes onto an external bus.
type Publisher interface {
	PublishState(id string, state *State) error
	PublishObject(id string, obj *Object) error
}

// JSONPublisher is the subset of the MQTT client used for mirroring.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTPublisher publishes state changes retained on iotadmin/state/<id> and
// object changes on iotadmin/object/<id>.
type MQTTPublisher struct {
	client JSONPublisher
}

// NewMQTTPublisher creates a publisher on top of an MQTT client.
func NewMQTTPublisher(client JSONPublisher) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// PublishState publishes a state change as a retained message.
func (p *MQTTPublisher) PublishState(id string, state *State) error {
	return p.client.PublishJSON(mqtt.Topics{}.State(id), state, true)
}

// PublishObject publishes an object change. Deletions publish JSON null.
func (p *MQTTPublisher) PublishObject(id string, obj *Object) error {
	return p.client.PublishJSON(mqtt.Topics{}.Object(id), obj, false)
}
