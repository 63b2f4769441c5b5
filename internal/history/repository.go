// Package history provides access to the measurements table for
// recording and querying locally retained sensor readings.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry represents a single persisted BME680 reading.
type Entry struct {
	ID           int64     `json:"id"`
	SensorID     string    `json:"sensor_id"`
	RecordedAt   time.Time `json:"recorded_at"`
	IAQ          float64   `json:"iaq"`
	IAQAccuracy  int       `json:"iaq_accuracy"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	PressureHPa  float64   `json:"pressure_hpa"`
	GasOhms      float64   `json:"gas_ohms"`
}

// Repository defines the interface for measurement history operations.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, sensorID string, limit int) ([]Entry, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SQLiteRepository stores measurement history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new measurement history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a new measurement. RecordedAt is generated if zero,
// and the entry's ID is populated from the inserted row.
func (r *SQLiteRepository) Record(ctx context.Context, entry *Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO measurements (sensor_id, recorded_at, iaq, iaq_accuracy, temperature_c, humidity_pct, pressure_hpa, gas_ohms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SensorID,
		entry.RecordedAt.UTC().Format(time.RFC3339),
		entry.IAQ, entry.IAQAccuracy,
		entry.TemperatureC, entry.HumidityPct, entry.PressureHPa, entry.GasOhms,
	)
	if err != nil {
		return fmt.Errorf("inserting measurement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading measurement id: %w", err)
	}
	entry.ID = id

	return nil
}

// Recent returns the latest measurements for a sensor, most recent first.
// A limit of 0 or less defaults to 50; the maximum is 200.
func (r *SQLiteRepository) Recent(ctx context.Context, sensorID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 { //nolint:mnd // max page size for history queries
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sensor_id, recorded_at, iaq, iaq_accuracy, temperature_c, humidity_pct, pressure_hpa, gas_ohms
		 FROM measurements
		 WHERE sensor_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		sensorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var recordedAt string

		if err := rows.Scan(&entry.ID, &entry.SensorID, &recordedAt,
			&entry.IAQ, &entry.IAQAccuracy,
			&entry.TemperatureC, &entry.HumidityPct, &entry.PressureHPa, &entry.GasOhms); err != nil {
			return nil, fmt.Errorf("scanning measurement: %w", err)
		}

		t, err := time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing measurement timestamp %q: %w", recordedAt, err)
		}
		entry.RecordedAt = t

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating measurements: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}

// Prune deletes measurements recorded before the given cutoff and
// returns the number of rows removed.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM measurements WHERE recorded_at < ?`,
		olderThan.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning measurements: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned measurements: %w", err)
	}

	return deleted, nil
}
