package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the bridge uses.
const TopicPrefix = "midea"

// Topics builds the bridge's MQTT topics. Use it rather than formatting
// topic strings by hand.
//
//	mqtt.Topics{}.State("sim-ac-1") // "midea/state/sim-ac-1"
type Topics struct{}

// Command is where clients send commands for a device.
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// Ack is where the bridge acknowledges commands for a device.
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, deviceID)
}

// State carries the retained climate representation of a device.
func (Topics) State(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// Request is where clients send read/update/refresh requests for a device.
func (Topics) Request(deviceID string) string {
	return fmt.Sprintf("%s/request/%s", TopicPrefix, deviceID)
}

// Response answers the request with the given ID.
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefix, requestID)
}

// Health carries the retained bridge health, and is the LWT topic.
func (Topics) Health() string {
	return TopicPrefix + "/health"
}

// AllCommands matches the command topic of every device.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// AllRequests matches the request topic of every device.
func (Topics) AllRequests() string {
	return TopicPrefix + "/request/+"
}

// AllStates matches the state topic of every device.
func (Topics) AllStates() string {
	return TopicPrefix + "/state/+"
}

// DeviceIDFromTopic returns the last level of a per-device topic such as
// "midea/command/sim-ac-1". It reports false when the topic does not have
// exactly three levels under the prefix.
func DeviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
