package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the IoT admin bus.
//
// Every topic shares the iotadmin/ root so a broker ACL can scope the
// service with a single pattern.
const (
	// TopicRoot is the base of every topic the service publishes or consumes.
	TopicRoot = "iotadmin"

	// TopicPrefixState carries state changes, one retained message per state id.
	TopicPrefixState = TopicRoot + "/state"

	// TopicPrefixObject carries object changes, one message per object id.
	TopicPrefixObject = TopicRoot + "/object"

	// TopicPrefixMessagebox carries sendTo requests and their replies.
	TopicPrefixMessagebox = TopicRoot + "/messagebox"

	// TopicPrefixApp carries mobile-app (visuApp) traffic.
	TopicPrefixApp = TopicRoot + "/app"

	// TopicPrefixSystem is the base for service status topics.
	TopicPrefixSystem = TopicRoot + "/system"
)

// segmentReplacer strips MQTT wildcard and level characters out of ids used
// as a single topic level.
var segmentReplacer = strings.NewReplacer("+", "_", "#", "_", "/", "_")

// segment makes an arbitrary identifier safe to embed as one topic level.
func segment(s string) string {
	return segmentReplacer.Replace(s)
}

// Topics provides builders for IoT admin MQTT topics.
// Using these helpers keeps publishers and subscribers in agreement.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("hue.0.lamp.on")
//	// Returns: "iotadmin/state/hue.0.lamp.on"
type Topics struct{}

// State returns the topic for value changes of one state.
//
// Example: iotadmin/state/hue.0.lamp.on
func (Topics) State(id string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixState, segment(id))
}

// Object returns the topic for changes to one object definition.
//
// Example: iotadmin/object/hue.0.lamp.on
func (Topics) Object(id string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixObject, segment(id))
}

// MessageboxRequest returns the topic a sendTo request is published on.
//
// Example: iotadmin/messagebox/iot.0/browse
func (Topics) MessageboxRequest(target, command string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixMessagebox, segment(target), segment(command))
}

// MessageboxReply returns the topic replies for one client are published on.
//
// Example: iotadmin/messagebox/reply/iotadmin-core
func (Topics) MessageboxReply(clientID string) string {
	return fmt.Sprintf("%s/reply/%s", TopicPrefixMessagebox, segment(clientID))
}

// AppMessage returns the topic the mobile app publishes visuApp messages on.
//
// Example: iotadmin/app/message
func (Topics) AppMessage() string {
	return TopicPrefixApp + "/message"
}

// AppReply returns the topic the reply to one app message is published on.
//
// Example: iotadmin/app/reply/7f3c
func (Topics) AppReply(requestID string) string {
	return fmt.Sprintf("%s/reply/%s", TopicPrefixApp, segment(requestID))
}

// SystemStatus returns the service status topic (online/offline, LWT).
//
// Example: iotadmin/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllStates returns a pattern matching every state change.
//
// Pattern: iotadmin/state/+
func (Topics) AllStates() string {
	return TopicPrefixState + "/+"
}

// AllObjects returns a pattern matching every object change.
//
// Pattern: iotadmin/object/+
func (Topics) AllObjects() string {
	return TopicPrefixObject + "/+"
}

// AllMessageboxRequests returns a pattern matching requests for one target.
//
// Pattern: iotadmin/messagebox/iot.0/+
func (Topics) AllMessageboxRequests(target string) string {
	return fmt.Sprintf("%s/%s/+", TopicPrefixMessagebox, segment(target))
}

// AllTopics returns a pattern matching all IoT admin topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: iotadmin/#
func (Topics) AllTopics() string {
	return TopicRoot + "/#"
}

// LastSegment returns the final level of a topic, e.g. the state id of a
// State topic or the command of a MessageboxRequest topic.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
