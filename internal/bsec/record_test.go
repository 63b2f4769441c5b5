package bsec

import (
	"errors"
	"testing"
)

func TestParseMeasurement(t *testing.T) {
	line := []byte(`{"IAQ_Accuracy": "2", "IAQ": "76.43", "Temperature": "21.48", "Humidity": "41.72", "Pressure": "1013.25", "Gas": "542891", "Status": "0"}`)

	m, err := ParseMeasurement(line)
	if err != nil {
		t.Fatalf("ParseMeasurement() error: %v", err)
	}

	if m.IAQAccuracy != 2 {
		t.Errorf("IAQAccuracy = %d, want 2", m.IAQAccuracy)
	}
	if m.IAQ != 76.43 {
		t.Errorf("IAQ = %v, want 76.43", m.IAQ)
	}
	if m.Temperature != 21.48 {
		t.Errorf("Temperature = %v, want 21.48", m.Temperature)
	}
	if m.Humidity != 41.72 {
		t.Errorf("Humidity = %v, want 41.72", m.Humidity)
	}
	if m.Pressure != 1013.25 {
		t.Errorf("Pressure = %v, want 1013.25", m.Pressure)
	}
	if m.GasResistance != 542891 {
		t.Errorf("GasResistance = %v, want 542891", m.GasResistance)
	}
	if m.Status != 0 {
		t.Errorf("Status = %d, want 0", m.Status)
	}
}

func TestParseMeasurement_NonZeroStatus(t *testing.T) {
	// Parsing succeeds for any integer status; the supervisor decides what
	// is fatal.
	line := []byte(`{"IAQ_Accuracy": "0", "IAQ": "25.00", "Temperature": "20.00", "Humidity": "40.00", "Pressure": "1000.00", "Gas": "100000", "Status": "-2"}`)

	m, err := ParseMeasurement(line)
	if err != nil {
		t.Fatalf("ParseMeasurement() error: %v", err)
	}
	if m.Status != -2 {
		t.Errorf("Status = %d, want -2", m.Status)
	}
}

func TestParseMeasurement_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", "pressure went sideways"},
		{"truncated object", `{"IAQ_Accuracy": "1", "IAQ"`},
		{"non-numeric field", `{"IAQ_Accuracy": "1", "IAQ": "high", "Temperature": "20", "Humidity": "40", "Pressure": "1000", "Gas": "100000", "Status": "0"}`},
		{"missing field", `{"IAQ_Accuracy": "1", "IAQ": "25.0", "Temperature": "20", "Humidity": "40", "Pressure": "1000", "Gas": "100000"}`},
		{"numeric instead of string", `{"IAQ_Accuracy": 1, "IAQ": "25.0", "Temperature": "20", "Humidity": "40", "Pressure": "1000", "Gas": "100000", "Status": "0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMeasurement([]byte(tt.line))
			if !errors.Is(err, ErrBadRecord) {
				t.Errorf("ParseMeasurement() error = %v, want ErrBadRecord", err)
			}
		})
	}
}
