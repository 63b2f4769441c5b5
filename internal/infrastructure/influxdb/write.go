package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// AirQualitySample is one fused BME680 reading destined for the air_quality
// measurement. The field names match the JSON the daemon publishes over MQTT
// so dashboards can be built against either source.
type AirQualitySample struct {
	SensorID     string
	IAQ          float64
	IAQAccuracy  int
	TemperatureC float64
	HumidityPct  float64
	PressureHPa  float64
	GasOhms      float64
	Time         time.Time
}

// WriteAirQuality writes a single fused sensor reading to InfluxDB.
//
// This is the primary method for recording sensor telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteAirQuality(influxdb.AirQualitySample{
//	    SensorID: "greenhouse-bme680",
//	    IAQ:      76.4, IAQAccuracy: 2,
//	    TemperatureC: 21.5, HumidityPct: 41.7,
//	    PressureHPa: 1013.2, GasOhms: 542891,
//	    Time: time.Now(),
//	})
func (c *Client) WriteAirQuality(s AirQualitySample) {
	if !c.IsConnected() {
		return
	}

	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	point := write.NewPoint(
		"air_quality",
		map[string]string{
			"sensor_id": s.SensorID,
		},
		map[string]interface{}{
			"iaq":           s.IAQ,
			"iaq_accuracy":  s.IAQAccuracy,
			"temperature_c": s.TemperatureC,
			"humidity_pct":  s.HumidityPct,
			"pressure_hpa":  s.PressureHPa,
			"gas_ohms":      s.GasOhms,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("daemon_stats",
//	    map[string]string{"host": "pi-greenhouse"},
//	    map[string]interface{}{"records_published": 1042})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
