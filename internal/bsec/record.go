package bsec

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Measurement is one parsed line of child output.
//
// The child emits every field as a JSON string ("Pressure": "1013.25"); the
// parser converts them to native types. Pressure arrives already divided to
// hectopascals by the child.
type Measurement struct {
	// IAQAccuracy is the fusion algorithm's confidence in the IAQ value,
	// 0 (stabilising) to 3 (fully calibrated).
	IAQAccuracy int `json:"iaq_accuracy"`

	// IAQ is the Indicated Air Quality index.
	IAQ float64 `json:"iaq"`

	// Temperature in degrees Celsius, offset-compensated.
	Temperature float64 `json:"temperature_c"`

	// Humidity as relative percent.
	Humidity float64 `json:"humidity_pct"`

	// Pressure in hectopascals.
	Pressure float64 `json:"pressure_hpa"`

	// GasResistance is the raw gas sensor resistance in ohms.
	GasResistance float64 `json:"gas_ohms"`

	// Status is the BSEC library return code. Zero is the only non-error
	// value; the supervisor terminates the stream on anything else.
	Status int `json:"status"`
}

// wireRecord mirrors the child's exact wire format: one JSON object per
// line, all values string-encoded.
type wireRecord struct {
	IAQAccuracy string `json:"IAQ_Accuracy"`
	IAQ         string `json:"IAQ"`
	Temperature string `json:"Temperature"`
	Humidity    string `json:"Humidity"`
	Pressure    string `json:"Pressure"`
	Gas         string `json:"Gas"`
	Status      string `json:"Status"`
}

// ParseMeasurement decodes one line of child output.
func ParseMeasurement(line []byte) (Measurement, error) {
	var w wireRecord
	if err := json.Unmarshal(line, &w); err != nil {
		return Measurement{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}

	var (
		m      Measurement
		err    error
		numErr = func(field string, cause error) error {
			return fmt.Errorf("%w: field %s: %v", ErrBadRecord, field, cause)
		}
	)

	if m.IAQAccuracy, err = strconv.Atoi(w.IAQAccuracy); err != nil {
		return Measurement{}, numErr("IAQ_Accuracy", err)
	}
	if m.IAQ, err = strconv.ParseFloat(w.IAQ, 64); err != nil {
		return Measurement{}, numErr("IAQ", err)
	}
	if m.Temperature, err = strconv.ParseFloat(w.Temperature, 64); err != nil {
		return Measurement{}, numErr("Temperature", err)
	}
	if m.Humidity, err = strconv.ParseFloat(w.Humidity, 64); err != nil {
		return Measurement{}, numErr("Humidity", err)
	}
	if m.Pressure, err = strconv.ParseFloat(w.Pressure, 64); err != nil {
		return Measurement{}, numErr("Pressure", err)
	}
	if m.GasResistance, err = strconv.ParseFloat(w.Gas, 64); err != nil {
		return Measurement{}, numErr("Gas", err)
	}
	if m.Status, err = strconv.Atoi(w.Status); err != nil {
		return Measurement{}, numErr("Status", err)
	}

	return m, nil
}
