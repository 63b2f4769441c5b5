// Package influxdb provides InfluxDB connectivity for BSEC-Conduit.
//
// It wraps the official influxdb-client-go v2 library with BSEC-Conduit
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for fused BME680 readings:
// IAQ, temperature, humidity, pressure and gas resistance land in the
// air_quality measurement tagged by sensor_id.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "home",
//	    Bucket: "sensors",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteAirQuality(influxdb.AirQualitySample{
//	    SensorID: "greenhouse-bme680", IAQ: 76.4,
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// Batching matters little at one record per 3-300 seconds, but keeps the
// daemon well-behaved if a backlog flushes after an outage.
package influxdb
