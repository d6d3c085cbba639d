package fitanalysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	naiveLayout    = "2006-01-02T15:04:05.999999999"
	naiveLayoutNoT = "2006-01-02 15:04:05"
	displayLayout  = "2006-01-02 15:04:05"
)

// Timestamp is a wall-clock instant that is either zoned or naive.
//
// Naive values carry no zone information; their wall clock is stored in
// the embedded time.Time with location UTC and must not be compared with
// zoned values without first reconciling them.
type Timestamp struct {
	time.Time
	Naive bool
}

// Zoned wraps t as a zone-aware timestamp.
func Zoned(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// NaiveTime builds a naive timestamp from the wall clock of t.
func NaiveTime(t time.Time) Timestamp {
	return Timestamp{
		Time:  time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC),
		Naive: true,
	}
}

// Ptr returns a pointer to a copy of ts.
func (ts Timestamp) Ptr() *Timestamp {
	return &ts
}

// Add returns ts shifted by d, keeping its naive flag.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return Timestamp{Time: ts.Time.Add(d), Naive: ts.Naive}
}

// Display renders ts for human-facing output (CSV cells, notes).
func (ts Timestamp) Display() string {
	if ts.Time.IsZero() {
		return ""
	}
	return ts.Time.Format(displayLayout)
}

func (ts Timestamp) String() string {
	if ts.Naive {
		return ts.Time.Format(naiveLayout)
	}
	return ts.Time.Format(time.RFC3339Nano)
}

// MarshalJSON encodes zoned values as RFC 3339 and naive values without an offset.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON accepts RFC 3339 strings and offset-less ISO strings.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// ParseTimestamp parses an RFC 3339 string as zoned, or an offset-less
// date-time as naive.
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return Zoned(t), nil
	}
	for _, layout := range []string{naiveLayout, naiveLayoutNoT} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t, Naive: true}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", raw)
}
