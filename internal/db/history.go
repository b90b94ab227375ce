package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/firewatch/internal/history"
	"github.com/banshee-data/firewatch/internal/sensor"
)

var _ history.Persister = (*DB)(nil)

// SaveRecord inserts one classified reading.
func (db *DB) SaveRecord(r history.Record) error {
	var conf sql.NullFloat64
	if r.AIConfidence != nil {
		conf = sql.NullFloat64{Float64: *r.AIConfidence, Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO sensor_readings (timestamp_ms, temperature, humidity, gas_level, status, ai_confidence)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Reading.Timestamp.UnixMilli(), r.Reading.Temperature, r.Reading.Humidity, r.Reading.GasLevel,
		r.Status.String(), conf,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}
	return nil
}

// SaveEvent inserts one detection event.
func (db *DB) SaveEvent(e history.DetectionEvent) error {
	_, err := db.Exec(`
		INSERT INTO detection_events (event_id, timestamp_ms, from_status, to_status, temperature, humidity, gas_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixMilli(), e.From.String(), e.To.String(),
		e.Reading.Temperature, e.Reading.Humidity, e.Reading.GasLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection event %s: %w", e.ID, err)
	}
	return nil
}

// ClearHistory deletes every reading and event in one transaction.
func (db *DB) ClearHistory() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"detection_events", "sensor_readings"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// LoadRecords returns the newest limit readings oldest first, or all of
// them when limit <= 0.
func (db *DB) LoadRecords(limit int) ([]history.Record, error) {
	query := `
		SELECT timestamp_ms, temperature, humidity, gas_level, status, ai_confidence
		FROM (
			SELECT id, timestamp_ms, temperature, humidity, gas_level, status, ai_confidence
			FROM sensor_readings
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var (
			ms     int64
			rec    history.Record
			status string
			conf   sql.NullFloat64
		)
		if err := rows.Scan(&ms, &rec.Reading.Temperature, &rec.Reading.Humidity, &rec.Reading.GasLevel, &status, &conf); err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		rec.Reading.Timestamp = time.UnixMilli(ms).UTC()
		if rec.Status, err = sensor.ParseStatus(status); err != nil {
			return nil, err
		}
		if conf.Valid {
			c := conf.Float64
			rec.AIConfidence = &c
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LoadEvents returns every stored detection event oldest first.
func (db *DB) LoadEvents() ([]history.DetectionEvent, error) {
	rows, err := db.Query(`
		SELECT event_id, timestamp_ms, from_status, to_status, temperature, humidity, gas_level
		FROM detection_events
		ORDER BY timestamp_ms ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection events: %w", err)
	}
	defer rows.Close()

	var events []history.DetectionEvent
	for rows.Next() {
		var (
			e        history.DetectionEvent
			ms       int64
			from, to string
		)
		if err := rows.Scan(&e.ID, &ms, &from, &to, &e.Reading.Temperature, &e.Reading.Humidity, &e.Reading.GasLevel); err != nil {
			return nil, fmt.Errorf("failed to scan detection event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ms).UTC()
		e.Reading.Timestamp = e.Timestamp
		if e.From, err = sensor.ParseStatus(from); err != nil {
			return nil, err
		}
		if e.To, err = sensor.ParseStatus(to); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountRows returns the number of stored readings and events.
func (db *DB) CountRows() (readings, events int, err error) {
	if err = db.QueryRow("SELECT COUNT(*) FROM sensor_readings").Scan(&readings); err != nil {
		return 0, 0, fmt.Errorf("failed to count sensor readings: %w", err)
	}
	if err = db.QueryRow("SELECT COUNT(*) FROM detection_events").Scan(&events); err != nil {
		return 0, 0, fmt.Errorf("failed to count detection events: %w", err)
	}
	return readings, events, nil
}
