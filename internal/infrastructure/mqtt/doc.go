// Package mqtt provides MQTT client connectivity for BSEC-Conduit.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// BSEC-Conduit is a pure publisher: it pushes parsed measurements and
// session status onto the broker and never subscribes. Home-automation
// platforms (Home Assistant, openHAB) consume the measurement topics.
//
//	BSEC-Conduit → MQTT Broker → Consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//   - Message volume: one measurement every 3s (LP) or 300s (ULP)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Measurement("greenhouse-bme680")
//	client.Publish(topic, payload, 1, true)
package mqtt
