package fitanalysis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ttu-dot/fitanalysis/devices"
)

func TestBuildActivityNotesIncludesMerge(t *testing.T) {
	start := Zoned(time.Date(2025, 12, 15, 12, 18, 18, 0, time.UTC))
	elapsed := 3723.0
	distance := 10000.0
	speed := 2.5
	hr := 151
	interp := 0.0
	dropped := 0.05
	name := "hr.csv"
	device := "Polar H10"

	a := &Activity{
		Name: "Evening run",
		Session: Session{
			Sport:            "running",
			StartTime:        &start,
			TotalElapsedTime: &elapsed,
			TotalDistance:    &distance,
			AvgSpeed:         &speed,
			AvgHeartRate:     &hr,
		},
		Laps:              []Lap{{LapNumber: 1, TotalElapsedTime: &elapsed, TotalDistance: &distance, AvgSpeed: &speed}},
		AvailableIQFields: []string{"dr_gct", "imported_polar_h10_hr"},
		MergeProvenance: &MergeProvenance{
			Version:  "1",
			Method:   "metadata_align",
			Decision: "auto",
			Sources:  []MergeSource{{FileName: &name, DeviceName: &device}},
			Criteria: MergeCriteria{MaxShiftSec: 8},
			Stats:    MergeStats{OffsetSec: -0.3, MatchRatio: 1, InterpRatio: &interp, DroppedRatio: &dropped},
		},
	}

	notes := BuildActivityNotes(a, devices.DefaultRegistry())
	for _, want := range []string{
		"Activity: Evening run",
		"Session: running",
		"Start: 2025-12-15 12:18:18",
		"Duration 1h02m03s | Distance 10.00 km",
		"Pace 6:40 /km",
		"HR 151 avg / - max bpm",
		"- Lap 1: 1h02m03s, 10.00 km, 6:40 /km, HR -",
		"DR_",
		"imported_polar_h10_hr",
		"Source: hr.csv (device Polar H10)",
		"Method metadata_align (auto), offset -0.3 s, match ratio 100%",
		"Interpolated 0% | Dropped 5%",
	} {
		if !strings.Contains(notes, want) {
			t.Fatalf("notes missing %q:\n%s", want, notes)
		}
	}
}

func TestBuildActivityNotesWithoutMerge(t *testing.T) {
	a := &Activity{Name: "x", Session: Session{Sport: "running"}}
	notes := BuildActivityNotes(a, nil)
	if strings.Contains(notes, "Heart Rate Merge") {
		t.Fatalf("unexpected merge section:\n%s", notes)
	}
	if !strings.Contains(notes, "Pace --:-- /km") {
		t.Fatalf("expected placeholder pace:\n%s", notes)
	}
	if BuildActivityNotes(nil, nil) != "" {
		t.Fatal("nil activity should give empty notes")
	}
}

func TestSpeedToPace(t *testing.T) {
	cases := map[float64]string{
		2.5:    "6:40",
		3.3333: "5:00",
		4:      "4:10",
		0:      NoPace,
		-1:     NoPace,
	}
	for in, want := range cases {
		if got := SpeedToPace(in); got != want {
			t.Fatalf("SpeedToPace(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[float64]string{
		0:      "0:00",
		59.9:   "0:59",
		125:    "2:05",
		3723.4: "1:02:03",
		-1:     "",
	}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Fatalf("FormatClock(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTimestampJSONKeepsNaiveFlag(t *testing.T) {
	wall := time.Date(2025, 12, 15, 20, 18, 18, 0, time.UTC)
	for _, ts := range []Timestamp{NaiveTime(wall), Zoned(wall.In(time.FixedZone("UTC+8", 8*3600)))} {
		data, err := json.Marshal(ts)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var got Timestamp
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got.Naive != ts.Naive || !got.Equal(ts.Time) {
			t.Fatalf("round trip of %s gave %v", data, got)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	hr := 140
	a := &Activity{
		Records:           []Record{{HeartRate: &hr, IQFields: map[string]float64{"dr_gct": 240}}},
		AvailableIQFields: []string{"dr_gct"},
	}
	c := a.Clone()
	*c.Records[0].HeartRate = 99
	c.Records[0].IQFields["imported_default_hr"] = 150
	c.AvailableIQFields[0] = "changed"

	if *a.Records[0].HeartRate != 140 {
		t.Fatal("clone shares heart rate pointer")
	}
	if _, ok := a.Records[0].IQFields["imported_default_hr"]; ok {
		t.Fatal("clone shares IQ field map")
	}
	if a.AvailableIQFields[0] != "dr_gct" {
		t.Fatal("clone shares available IQ fields")
	}
}

func TestRecordValue(t *testing.T) {
	hr := 150
	speed := 3.1
	r := Record{HeartRate: &hr, Speed: &speed, IQFields: map[string]float64{"dr_gct": 241}}

	cases := []struct {
		field string
		want  float64
		ok    bool
	}{
		{"heart_rate", 150, true},
		{"speed", 3.1, true},
		{"iq_dr_gct", 241, true},
		{"iq_missing", 0, false},
		{"power", 0, false},
		{"no_such_field", 0, false},
	}
	for _, tc := range cases {
		got, ok := r.Value(tc.field)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Value(%q) = %v, %v; want %v, %v", tc.field, got, ok, tc.want, tc.ok)
		}
	}
}
