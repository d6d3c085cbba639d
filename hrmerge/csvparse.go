package hrmerge

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ttu-dot/fitanalysis"
)

const (
	summaryScanRows    = 50
	standaloneScanRows = 200
	standaloneLookRows = 5
)

var dateTimeLayouts = []string{
	"2006-1-2 15:4:5",
	"2006/1/2 15:4:5",
	"2006-1-2T15:4:5",
}

var timeOnlyLayouts = []string{
	"15:4:5",
	"15:4",
}

// Sample is one corrected heart-rate reading. T is naive: the CSV carries
// no zone information.
type Sample struct {
	T   fitanalysis.Timestamp
	BPM int
}

// ParsedCSV is the outcome of parsing an offline heart-rate CSV.
type ParsedCSV struct {
	SourceFileName *string
	DeviceName     *string
	Samples        []Sample
	// SkippedRows counts data rows dropped because a cell did not parse.
	SkippedRows int
}

// ParseCSV decodes an offline heart-rate CSV: an optional summary block
// (Name,Sport,Date,Start time,...), an optional device name, a mandatory
// Time,Second,HR (bpm) header and data rows below it.
//
// The wall clock of each sample is rebuilt from the Second column relative
// to the first row, and samples are stably sorted by that corrected time.
func ParseCSV(data []byte, sourceFileName *string) (*ParsedCSV, error) {
	rows := readRows(DecodeText(data))

	baseDate, hasDate := summaryDate(rows)
	out := &ParsedCSV{
		SourceFileName: sourceFileName,
		DeviceName:     deviceName(rows),
	}

	headerIdx := dataHeaderIndex(rows)
	if headerIdx < 0 {
		return nil, ErrMissingHeader
	}

	type rawSample struct {
		t   time.Time
		sec float64
		bpm int
	}
	raw := make([]rawSample, 0, len(rows)-headerIdx)
	for _, row := range rows[headerIdx+1:] {
		if len(row) < 3 {
			continue
		}
		t, ok := parseTimeCell(row[0], baseDate, hasDate)
		if !ok {
			out.SkippedRows++
			continue
		}
		sec, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			out.SkippedRows++
			continue
		}
		bpm, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
			out.SkippedRows++
			continue
		}
		raw = append(raw, rawSample{t: t, sec: sec, bpm: int(bpm)})
	}
	if len(raw) == 0 {
		return nil, ErrNoSamples
	}

	t0, s0 := raw[0].t, raw[0].sec
	out.Samples = make([]Sample, 0, len(raw))
	for _, r := range raw {
		corrected := t0.Add(secondsToDuration(r.sec - s0))
		out.Samples = append(out.Samples, Sample{T: fitanalysis.NaiveTime(corrected), BPM: r.bpm})
	}
	slices.SortStableFunc(out.Samples, func(a, b Sample) int {
		return a.T.Compare(b.T.Time)
	})
	return out, nil
}

// readRows splits text into CSV rows. Rows the CSV reader rejects are
// skipped; blank lines never produce a row.
func readRows(text string) [][]string {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			break
		}
		rows = append(rows, row)
	}
	return rows
}

func normalizedCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

// summaryDate reads the Date column of a Name,Sport,Date,Start time block
// near the top of the file.
func summaryDate(rows [][]string) (time.Time, bool) {
	limit := min(len(rows)-1, summaryScanRows)
	for i := 0; i < limit; i++ {
		header := normalizedCells(rows[i])
		if len(header) < 4 || !slices.Equal(header[:4], []string{"name", "sport", "date", "start time"}) {
			continue
		}
		values := rows[i+1]
		if len(values) < 3 {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(values[2]))
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	return time.Time{}, false
}

// deviceName finds a device name either as a "Device Name" column of a
// header row, or as a standalone "Device Name" label followed within a
// few rows by the value.
func deviceName(rows [][]string) *string {
	limit := min(len(rows)-1, summaryScanRows)
	for i := 0; i < limit; i++ {
		idx := slices.Index(normalizedCells(rows[i]), "device name")
		if idx < 0 {
			continue
		}
		if next := rows[i+1]; len(next) > idx {
			if v := strings.TrimSpace(next[idx]); v != "" {
				return &v
			}
		}
	}

	limit = min(len(rows)-1, standaloneScanRows)
	for i := 0; i < limit; i++ {
		if len(rows[i]) == 0 || strings.ToLower(strings.TrimSpace(rows[i][0])) != "device name" {
			continue
		}
		end := min(i+1+standaloneLookRows, len(rows))
		for j := i + 1; j < end; j++ {
			if len(rows[j]) == 0 {
				continue
			}
			v := strings.TrimSpace(rows[j][0])
			if v != "" && strings.ToLower(v) != "device name" {
				return &v
			}
		}
		return nil
	}
	return nil
}

func dataHeaderIndex(rows [][]string) int {
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		c := normalizedCells(row[:3])
		if c[0] == "time" && c[1] == "second" && (strings.HasPrefix(c[2], "hr") || strings.Contains(c[2], "bpm")) {
			return i
		}
	}
	return -1
}

// parseTimeCell parses a full date-time, or a time of day combined with
// the summary date. Time-only cells without a summary date are rejected.
func parseTimeCell(cell string, date time.Time, hasDate bool) (time.Time, bool) {
	v := strings.TrimSpace(cell)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	for _, layout := range timeOnlyLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		if !hasDate {
			return time.Time{}, false
		}
		return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
	}
	return time.Time{}, false
}

// secondsToDuration rounds to whole microseconds.
func secondsToDuration(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1e6)) * time.Microsecond
}
