package mqtt

import "fmt"

// Topic prefixes for the BSEC-Conduit MQTT hierarchy.
//
// All topics use the flat scheme: bsec-conduit/{category}/{id}
const (
	// TopicPrefix is the base for all BSEC-Conduit topics.
	TopicPrefix = "bsec-conduit"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "bsec-conduit/system"
)

// Topics provides builders for BSEC-Conduit MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Measurement("greenhouse-bme680")
//	// Returns: "bsec-conduit/measurement/greenhouse-bme680"
type Topics struct{}

// Measurement returns the topic carrying parsed sensor measurements.
//
// Example: bsec-conduit/measurement/greenhouse-bme680
func (Topics) Measurement(sensorID string) string {
	return fmt.Sprintf("%s/measurement/%s", TopicPrefix, sensorID)
}

// SensorStatus returns the topic carrying per-sensor session state
// (running, stopped, error).
//
// Example: bsec-conduit/status/greenhouse-bme680
func (Topics) SensorStatus(sensorID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, sensorID)
}

// SystemStatus returns the daemon online/offline status topic. The LWT is
// registered against this topic so subscribers can tell a crash from a
// graceful shutdown.
//
// Example: bsec-conduit/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
