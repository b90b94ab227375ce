package history

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the header row of exported history files.
var CSVHeader = []string{"Timestamp", "Temperature", "Humidity", "Gas Level", "Fire Status", "AI Confidence"}

// TimestampLayout formats record timestamps in exports.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ExportFilename names an export produced at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("fire_detection_data_%d.csv", t.UnixMilli())
}

// ExportCSV serialises every record in insertion order. It reports false,
// and returns no data, when the store is empty: an empty history produces
// no file rather than a header-only one.
func (s *Store) ExportCSV() ([]byte, bool) {
	records := s.Records()
	if len(records) == 0 {
		return nil, false
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		// bytes.Buffer writes cannot fail
		panic(err)
	}
	return buf.Bytes(), true
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r Record) []string {
	confidence := ""
	if r.AIConfidence != nil {
		confidence = formatFloat(*r.AIConfidence)
	}
	return []string{
		r.Reading.Timestamp.UTC().Format(TimestampLayout),
		formatFloat(r.Reading.Temperature),
		formatFloat(r.Reading.Humidity),
		formatFloat(r.Reading.GasLevel),
		r.Status.String(),
		confidence,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
