// Package export renders activities as CSV tables, a categorized ZIP and
// Parquet record files.
package export

import (
	"bytes"
	"encoding/csv"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/ttu-dot/fitanalysis"
)

// IQPrefix prefixes developer field columns.
const IQPrefix = fitanalysis.IQFieldPrefix

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WithBOM prefixes data with a UTF-8 byte order mark so spreadsheet
// applications detect the encoding.
func WithBOM(data []byte) []byte {
	if bytes.HasPrefix(data, utf8BOM) {
		return data
	}
	out := make([]byte, 0, len(data)+len(utf8BOM))
	out = append(out, utf8BOM...)
	return append(out, data...)
}

// row maps column names to cells; a nil-valued column renders empty.
type row map[string]string

// writeTable writes rows under the sorted union of their columns. No rows
// gives empty output.
func writeTable(rows []row) ([]byte, error) {
	if len(rows) == 0 {
		return []byte{}, nil
	}
	columns := map[string]struct{}{}
	for _, r := range rows {
		for k := range r {
			columns[k] = struct{}{}
		}
	}
	header := slices.Sorted(maps.Keys(columns))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	line := make([]string, len(header))
	for _, r := range rows {
		for i, col := range header {
			line[i] = r[col]
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addIQ(r row, fields map[string]float64) {
	for k, v := range fields {
		r[IQPrefix+k] = formatFloat(v)
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func timeCell(ts *fitanalysis.Timestamp) string {
	if ts == nil {
		return ""
	}
	return ts.Display()
}

// kmCell renders metres as kilometres rounded to three places. Zero and
// missing distances render empty.
func kmCell(m *float64) string {
	if m == nil || *m == 0 {
		return ""
	}
	return formatFloat(math.RoundToEven(*m) / 1000)
}

// durationCell renders positive durations as a clock.
func durationCell(sec *float64) string {
	if sec == nil || *sec == 0 {
		return ""
	}
	return fitanalysis.FormatClock(*sec)
}

func paceCell(speed *float64) string {
	if speed == nil || *speed <= 0 {
		return ""
	}
	return fitanalysis.SpeedToPace(*speed)
}
