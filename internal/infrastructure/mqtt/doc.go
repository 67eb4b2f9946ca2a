// Package mqtt provides MQTT client connectivity for the IoT admin core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is the bus between the admin core and the adapters it talks to.
// State and object changes are mirrored onto it, sendTo requests to the
// voice-assistant adapter travel over it, and the mobile app posts its
// visuApp messages to it.
//
//	Admin Core ↔ MQTT Broker ↔ Adapters / Mobile App
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AppMessage(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
//
//	client.PublishJSON(mqtt.Topics{}.State(id), state, true)
//
// Identifiers embedded as a topic level have "+", "#" and "/" replaced
// with "_" so they can never widen a subscription.
package mqtt
