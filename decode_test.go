package fitanalysis

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tormoder/fit"

	"github.com/ttu-dot/fitanalysis/devices"
	"github.com/ttu-dot/fitanalysis/fitscan"
	"github.com/ttu-dot/fitanalysis/internal/fittest"
)

var decodeStart = time.Date(2025, 12, 15, 12, 18, 18, 0, time.UTC)

func buildRunFIT(t *testing.T, records int) []byte {
	t.Helper()
	data, err := fittest.RunActivity(decodeStart, records)
	if err != nil {
		t.Fatalf("build fit: %v", err)
	}
	return data
}

func TestDecodeBytesRunningActivity(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a, err := DecodeBytes(buildRunFIT(t, 5), DecodeOptions{
		ID:       "a1",
		FileName: "morning_run.fit",
		Now:      func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("DecodeBytes error: %v", err)
	}

	if a.Name != "morning_run" {
		t.Fatalf("name = %q", a.Name)
	}
	if !a.CreatedAt.Equal(fixed) {
		t.Fatalf("created_at = %v", a.CreatedAt)
	}
	if a.Session.Sport != "running" {
		t.Fatalf("sport = %q", a.Session.Sport)
	}
	if a.Session.StartTime == nil || !a.Session.StartTime.Equal(decodeStart) || a.Session.StartTime.Naive {
		t.Fatalf("unexpected session start: %v", a.Session.StartTime)
	}
	if a.Session.TotalElapsedTime == nil || *a.Session.TotalElapsedTime != 5 {
		t.Fatalf("unexpected elapsed: %v", a.Session.TotalElapsedTime)
	}
	if a.Session.AvgPower == nil || *a.Session.AvgPower != 250 {
		t.Fatalf("unexpected avg power: %v", a.Session.AvgPower)
	}
	if len(a.Laps) != 1 || a.Laps[0].LapNumber != 1 {
		t.Fatalf("unexpected laps: %+v", a.Laps)
	}

	if len(a.Records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(a.Records))
	}
	last := a.Records[4]
	if last.ElapsedTime == nil || *last.ElapsedTime != 4 {
		t.Fatalf("unexpected elapsed time: %v", last.ElapsedTime)
	}
	if last.HeartRate == nil || *last.HeartRate != 144 {
		t.Fatalf("unexpected heart rate: %v", last.HeartRate)
	}
	if last.Cadence == nil || *last.Cadence != 176 {
		t.Fatalf("cadence should be doubled to steps per minute: %v", last.Cadence)
	}
	if last.Speed == nil || math.Abs(*last.Speed-3) > 1e-9 {
		t.Fatalf("unexpected speed: %v", last.Speed)
	}
	if last.Distance == nil || math.Abs(*last.Distance-12) > 1e-9 {
		t.Fatalf("unexpected distance: %v", last.Distance)
	}
	if last.PositionLat != nil {
		t.Fatalf("invalid position should be nil, got %v", *last.PositionLat)
	}

	want := []string{"cadence", "distance", "elapsed_time", "heart_rate", "power", "speed"}
	if len(a.AvailableFields) != len(want) {
		t.Fatalf("available fields = %v, want %v", a.AvailableFields, want)
	}
	for i := range want {
		if a.AvailableFields[i] != want[i] {
			t.Fatalf("available fields = %v, want %v", a.AvailableFields, want)
		}
	}
	if len(a.AvailableIQFields) != 0 {
		t.Fatalf("unexpected IQ fields: %v", a.AvailableIQFields)
	}
}

func TestDecodeFileUsesBaseName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.fit")
	if err := os.WriteFile(path, buildRunFIT(t, 2), 0o644); err != nil {
		t.Fatalf("write sample fit: %v", err)
	}
	a, err := DecodeFile(path, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeFile error: %v", err)
	}
	if a.FileName != "track.fit" || a.Name != "track" {
		t.Fatalf("unexpected names: %q %q", a.FileName, a.Name)
	}
}

func TestDecodeBytesRejectsGarbage(t *testing.T) {
	if _, err := DecodeBytes([]byte("not a fit file"), DecodeOptions{}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeBytesRejectsEmptyActivity(t *testing.T) {
	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		t.Fatalf("new fit file: %v", err)
	}
	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		t.Fatalf("encode fit: %v", err)
	}
	_, err = DecodeBytes(buf.Bytes(), DecodeOptions{})
	if !errors.Is(err, ErrEmptyActivity) {
		t.Fatalf("expected ErrEmptyActivity, got %v", err)
	}
}

func buildDynamicsFIT(t *testing.T) []byte {
	t.Helper()

	var b fittest.Builder
	b.Define(0, fitscan.MesgNumFieldDescription, []fittest.FieldDef{
		{Num: 0, Size: 1, Base: fittest.Uint8},
		{Num: 1, Size: 1, Base: fittest.Uint8},
		{Num: 2, Size: 1, Base: fittest.Uint8},
		{Num: 3, Size: 16, Base: fittest.String},
		{Num: 6, Size: 1, Base: fittest.Uint8},
	}, nil)
	b.Data(0, fittest.U8(0), fittest.U8(0), fittest.U8(fittest.Uint16), fittest.Str("dr_stance", 16), fittest.U8(1))
	b.Data(0, fittest.U8(0), fittest.U8(1), fittest.U8(fittest.Uint16), fittest.Str("Leg Spring (kN)", 16), fittest.U8(10))
	b.Data(0, fittest.U8(0), fittest.U8(2), fittest.U8(fittest.Uint16), fittest.Str("v_osc", 16), fittest.U8(10))

	b.Define(1, fitscan.MesgNumRecord, []fittest.FieldDef{
		{Num: 253, Size: 4, Base: fittest.Uint32},
		{Num: 9, Size: 2, Base: fittest.Sint16},
		{Num: 39, Size: 2, Base: fittest.Uint16},
		{Num: 41, Size: 2, Base: fittest.Uint16},
		{Num: 83, Size: 2, Base: fittest.Uint16},
		{Num: 85, Size: 2, Base: fittest.Uint16},
	}, []fittest.DevFieldDef{
		{Num: 0, Size: 2, DevIndex: 0},
		{Num: 1, Size: 2, DevIndex: 0},
		{Num: 2, Size: 2, DevIndex: 0},
	})
	b.Data(1, fittest.U32(1_000_000_000), fittest.S16(-150), fittest.U16(812), fittest.U16(2455), fittest.U16(815), fittest.U16(11800),
		fittest.U16(245), fittest.U16(105), fittest.U16(78))
	return b.Bytes()
}

func TestDecoderAppliesScannedFields(t *testing.T) {
	data := buildDynamicsFIT(t)
	d := newDecoder(data, DecodeOptions{})
	scanned, err := fitscan.Scan(data)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	records := scanned.ByGlobal(fitscan.MesgNumRecord)
	if len(records) != 1 {
		t.Fatalf("expected 1 scanned record, got %d", len(records))
	}

	r := d.record(fit.NewRecordMsg(), &records[0])
	if r.Grade == nil || math.Abs(*r.Grade+1.5) > 1e-9 {
		t.Fatalf("unexpected grade: %v", r.Grade)
	}
	if r.VerticalOscillation == nil || math.Abs(*r.VerticalOscillation-8.12) > 1e-9 {
		t.Fatalf("vertical oscillation should be in cm: %v", r.VerticalOscillation)
	}
	if r.StanceTime == nil || math.Abs(*r.StanceTime-245.5) > 1e-9 {
		t.Fatalf("unexpected stance time: %v", r.StanceTime)
	}
	if r.VerticalRatio == nil || math.Abs(*r.VerticalRatio-8.15) > 1e-9 {
		t.Fatalf("unexpected vertical ratio: %v", r.VerticalRatio)
	}
	if r.StepLength == nil || math.Abs(*r.StepLength-1.18) > 1e-9 {
		t.Fatalf("step length should be in metres: %v", r.StepLength)
	}
	if r.Timestamp != nil || r.HeartRate != nil {
		t.Fatal("typed fields should stay empty for a blank typed record")
	}

	if got := r.IQFields["dr_gct"]; got != 245 {
		t.Fatalf("dr_stance should map to dr_gct, got %v (%v)", got, r.IQFields)
	}
	if got := r.IQFields["leg_spring_kn"]; math.Abs(got-10.5) > 1e-9 {
		t.Fatalf("unexpected cleaned developer field: %v", r.IQFields)
	}
	if got := r.IQFields["v_osc"]; math.Abs(got-7.8) > 1e-9 {
		t.Fatalf("unexpected v_osc: %v", got)
	}
}

func TestDeveloperFieldName(t *testing.T) {
	reg := devices.DefaultRegistry()
	cases := map[string]string{
		"dr_stance":       "dr_gct",
		"dr_SSL%":         "dr_SSL_percent",
		"DR_STANCE":       "dr_gct",
		"Leg Spring (kN)": "leg_spring_kn",
		"Power":           "power",
	}
	for in, want := range cases {
		if got := developerFieldName(in, reg); got != want {
			t.Fatalf("developerFieldName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFillElapsed(t *testing.T) {
	start := Zoned(decodeStart)
	later := Zoned(decodeStart.Add(90 * time.Second))
	speed := 2.5
	dist := 50.0

	records := []Record{{Timestamp: &start}, {Timestamp: &later}, {Distance: &dist}}
	fillElapsed(records, &speed)
	if *records[1].ElapsedTime != 90 || *records[2].ElapsedTime != 20 {
		t.Fatalf("unexpected elapsed: %v %v", *records[1].ElapsedTime, *records[2].ElapsedTime)
	}

	records = []Record{{Distance: &dist}, {Distance: &dist}}
	fillElapsed(records, nil)
	if *records[1].ElapsedTime != 1 {
		t.Fatalf("index fallback expected, got %v", *records[1].ElapsedTime)
	}
}

func TestCollectAvailableFieldsSkipsSummaryKeys(t *testing.T) {
	hr := 150
	records := []Record{
		{HeartRate: &hr, IQFields: map[string]float64{"dr_gct": 240, "lap_dr_gct": 241}},
		{IQFields: map[string]float64{"s_dr_power": 300, "dr_power": 310}},
	}
	standard, iq := collectAvailableFields(records)
	if len(standard) != 1 || standard[0] != "heart_rate" {
		t.Fatalf("unexpected standard fields: %v", standard)
	}
	if len(iq) != 2 || iq[0] != "dr_gct" || iq[1] != "dr_power" {
		t.Fatalf("unexpected IQ fields: %v", iq)
	}
}

func TestEnumName(t *testing.T) {
	cases := map[string]string{
		"Running":       "running",
		"SportRunning":  "running",
		"TrailRunning":  "trail_running",
		"Invalid":       "",
		"Sport(77)":     "",
		"SportInvalid":  "",
		"IndoorRunning": "indoor_running",
	}
	for in, want := range cases {
		if got := enumName(in, "Sport"); got != want {
			t.Fatalf("enumName(%q) = %q, want %q", in, got, want)
		}
	}
}
