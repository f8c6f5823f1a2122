package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixDevice is the root of every printer topic.
const TopicPrefixDevice = "device"

// Topics builds the per-device topic names. The printer publishes telemetry
// on the report topic and accepts commands on the request topic.
//
//	topics := mqtt.Topics{Serial: "01S00C123456789"}
//	topics.Report() // device/01S00C123456789/report
type Topics struct {
	Serial string
}

// Report returns the topic the device publishes telemetry on.
func (t Topics) Report() string {
	return fmt.Sprintf("%s/%s/report", TopicPrefixDevice, t.Serial)
}

// Request returns the topic the device reads commands from.
func (t Topics) Request() string {
	return fmt.Sprintf("%s/%s/request", TopicPrefixDevice, t.Serial)
}

// AllReports matches the report topic of every device on a shared broker.
//
// Pattern: device/+/report
func (Topics) AllReports() string {
	return TopicPrefixDevice + "/+/report"
}

// SerialFromTopic extracts the serial from a device topic. It returns ""
// for topics outside the device tree.
func SerialFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefixDevice || parts[1] == "" {
		return ""
	}
	if parts[2] != "report" && parts[2] != "request" {
		return ""
	}
	return parts[1]
}
