package fitanalysis

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/tormoder/fit"

	"github.com/ttu-dot/fitanalysis/devices"
	"github.com/ttu-dot/fitanalysis/fitscan"
)

var (
	// ErrNotActivity is returned for FIT files whose type is not activity.
	ErrNotActivity = errors.New("activity FIT expected")
	// ErrEmptyActivity is returned when a file has neither a session nor records.
	ErrEmptyActivity = errors.New("activity file has no session or record messages")
)

// Standard record fields reported in Activity.AvailableFields when present
// on the first record. fractional_cadence is deliberately absent.
var standardRecordFields = []string{
	"elapsed_time", "distance", "heart_rate", "speed", "cadence",
	"power", "altitude", "grade", "temperature", "vertical_oscillation",
	"vertical_ratio", "stance_time", "stance_time_balance", "step_length",
	"position_lat", "position_long",
}

// DecodeOptions controls how a FIT file becomes an Activity.
type DecodeOptions struct {
	ID string
	// Name defaults to the file name without extension.
	Name     string
	FileName string
	// Registry normalizes developer field names. Nil uses devices.DefaultRegistry.
	Registry   *devices.Registry
	Normalizer *devices.Normalizer
	// Now stamps CreatedAt. Nil uses time.Now.
	Now func() time.Time
}

// DecodeFile reads and decodes an activity FIT file.
func DecodeFile(path string, opts DecodeOptions) (*Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open FIT file: %w", err)
	}
	if opts.FileName == "" {
		opts.FileName = filepath.Base(path)
	}
	return DecodeBytes(data, opts)
}

// DecodeBytes decodes an activity FIT file held in memory.
//
// Typed session, lap and record values come from the FIT profile decoder.
// Running dynamics, grade and developer (Connect IQ) fields are read from
// a raw message scan and joined to the typed records.
func DecodeBytes(data []byte, opts DecodeOptions) (*Activity, error) {
	decoded, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	file, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotActivity, err)
	}
	if len(file.Sessions) == 0 && len(file.Records) == 0 {
		return nil, ErrEmptyActivity
	}

	d := newDecoder(data, opts)

	activity := &Activity{
		ID:        opts.ID,
		Name:      opts.Name,
		FileName:  opts.FileName,
		CreatedAt: Zoned(d.now()),
		Laps:      make([]Lap, 0, len(file.Laps)),
		Records:   make([]Record, 0, len(file.Records)),
	}
	if activity.Name == "" {
		activity.Name = strings.TrimSuffix(opts.FileName, filepath.Ext(opts.FileName))
	}

	activity.Session = Session{Sport: defaultSport, IQFields: map[string]float64{}}
	if len(file.Sessions) > 0 {
		activity.Session = d.session(file.Sessions[0], d.extra(fitscan.MesgNumSession, 0, len(file.Sessions), time.Time{}))
	}

	lapNumber := 0
	for i, lap := range file.Laps {
		if lap == nil {
			continue
		}
		lapNumber++
		activity.Laps = append(activity.Laps, d.lap(lap, lapNumber, d.extra(fitscan.MesgNumLap, i, len(file.Laps), time.Time{})))
	}

	for i, rec := range file.Records {
		if rec == nil {
			continue
		}
		r := d.record(rec, d.extra(fitscan.MesgNumRecord, i, len(file.Records), rec.Timestamp))
		if r.Timestamp == nil && r.Distance == nil {
			continue
		}
		activity.Records = append(activity.Records, r)
	}

	fillElapsed(activity.Records, activity.Session.AvgSpeed)
	activity.AvailableFields, activity.AvailableIQFields = collectAvailableFields(activity.Records)
	return activity, nil
}

type decoder struct {
	registry   *devices.Registry
	normalizer *devices.Normalizer
	now        func() time.Time

	developer *fitscan.Developer
	byGlobal  map[uint16][]fitscan.Message
	byTime    map[uint32]fitscan.Message
}

func newDecoder(data []byte, opts DecodeOptions) *decoder {
	d := &decoder{
		registry:   opts.Registry,
		normalizer: opts.Normalizer,
		now:        opts.Now,
		byGlobal:   make(map[uint16][]fitscan.Message),
		byTime:     make(map[uint32]fitscan.Message),
	}
	if d.registry == nil {
		d.registry = devices.DefaultRegistry()
	}
	if d.normalizer == nil {
		d.normalizer = devices.NewNormalizer(nil)
	}
	if d.now == nil {
		d.now = time.Now
	}

	// The typed decode already succeeded; a scan failure only costs the
	// extra fields.
	scanned, err := fitscan.Scan(data)
	if err != nil {
		return d
	}
	d.developer = fitscan.NewDeveloper(scanned)
	for _, global := range []uint16{fitscan.MesgNumSession, fitscan.MesgNumLap, fitscan.MesgNumRecord} {
		d.byGlobal[global] = scanned.ByGlobal(global)
	}
	for _, m := range d.byGlobal[fitscan.MesgNumRecord] {
		if _, seen := d.byTime[m.Timestamp]; !seen && m.Timestamp != 0 {
			d.byTime[m.Timestamp] = m
		}
	}
	return d
}

// extra returns the scanned message matching the i-th typed message of a
// kind. Messages are joined by position when both decoders saw the same
// count, and records fall back to their timestamp otherwise.
func (d *decoder) extra(global uint16, i, typedCount int, ts time.Time) *fitscan.Message {
	scanned := d.byGlobal[global]
	if len(scanned) == typedCount && i < len(scanned) {
		return &scanned[i]
	}
	if global != fitscan.MesgNumRecord || !validTime(ts) {
		return nil
	}
	raw := ts.Sub(fitscan.TimestampToUTC(0)) / time.Second
	if m, ok := d.byTime[uint32(raw)]; ok {
		return &m
	}
	return nil
}

func (d *decoder) iqFields(m *fitscan.Message) map[string]float64 {
	out := map[string]float64{}
	if m == nil || d.developer == nil {
		return out
	}
	for name, v := range d.developer.Values(*m) {
		if !isFinite(v) {
			continue
		}
		key := developerFieldName(name, d.registry)
		if key == "v_osc" {
			v = d.normalizer.Normalize(key, v, true)
		}
		out[key] = v
	}
	return out
}

// developerFieldName maps a developer field name to its IQ field key.
// Device-prefixed names go through the registry aliases; others are
// cleaned into identifier form.
func developerFieldName(raw string, reg *devices.Registry) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := reg.DeviceByPrefix(lower); ok {
		if canonical := reg.NormalizeFieldName(raw); canonical != raw {
			return canonical
		}
		return reg.NormalizeFieldName(lower)
	}
	cleaned := strings.NewReplacer(" ", "_", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	return strings.ToLower(cleaned)
}

func (d *decoder) record(rec *fit.RecordMsg, m *fitscan.Message) Record {
	r := Record{IQFields: d.iqFields(m)}

	if ts := rec.Timestamp; validTime(ts) {
		r.Timestamp = Zoned(ts.UTC()).Ptr()
	}
	r.Distance = finitePtr(rec.GetDistanceScaled())
	if rec.HeartRate != math.MaxUint8 {
		r.HeartRate = intPtr(int(rec.HeartRate))
	}
	r.Speed = finitePtr(rec.GetEnhancedSpeedScaled())
	if r.Speed == nil {
		r.Speed = finitePtr(rec.GetSpeedScaled())
	}
	if rec.Cadence != math.MaxUint8 {
		r.Cadence = intPtr(int(rec.Cadence) * 2)
	}
	if rec.Power != math.MaxUint16 {
		r.Power = intPtr(int(rec.Power))
	}
	r.Altitude = finitePtr(rec.GetEnhancedAltitudeScaled())
	if r.Altitude == nil {
		r.Altitude = finitePtr(rec.GetAltitudeScaled())
	}
	if !rec.PositionLat.Invalid() && rec.PositionLat.Semicircles() != 0 {
		r.PositionLat = floatPtr(rec.PositionLat.Degrees())
	}
	if !rec.PositionLong.Invalid() && rec.PositionLong.Semicircles() != 0 {
		r.PositionLong = floatPtr(rec.PositionLong.Degrees())
	}
	if rec.Temperature != math.MaxInt8 {
		r.Temperature = intPtr(int(rec.Temperature))
	}

	if m == nil {
		return r
	}
	r.Grade = scaledPtr(m, 9, 100)
	if vo := scaledPtr(m, 39, 10); vo != nil {
		r.VerticalOscillation = floatPtr(d.normalizer.Normalize("vertical_oscillation", *vo, false))
	}
	r.StanceTime = scaledPtr(m, 41, 10)
	r.FractionalCadence = scaledPtr(m, 53, 128)
	r.VerticalRatio = scaledPtr(m, 83, 100)
	r.StanceTimeBalance = scaledPtr(m, 84, 100)
	if sl := scaledPtr(m, 85, 10); sl != nil {
		r.StepLength = floatPtr(d.normalizer.Normalize("step_length", *sl, false))
	}
	return r
}

func (d *decoder) lap(lap *fit.LapMsg, number int, m *fitscan.Message) Lap {
	l := Lap{
		LapNumber:        number,
		TotalElapsedTime: finitePtr(lap.GetTotalElapsedTimeScaled()),
		TotalDistance:    finitePtr(lap.GetTotalDistanceScaled()),
		AvgHeartRate:     validUint8Ptr(lap.AvgHeartRate),
		MaxHeartRate:     validUint8Ptr(lap.MaxHeartRate),
		AvgSpeed:         firstFinite(lap.GetEnhancedAvgSpeedScaled(), lap.GetAvgSpeedScaled()),
		MaxSpeed:         firstFinite(lap.GetEnhancedMaxSpeedScaled(), lap.GetMaxSpeedScaled()),
		AvgCadence:       doubledCadence(lap.GetAvgCadence()),
		MaxCadence:       doubledCadence(lap.GetMaxCadence()),
		AvgPower:         validUint16Ptr(lap.AvgPower),
		MaxPower:         validUint16Ptr(lap.MaxPower),
		TotalAscent:      validUint16FloatPtr(lap.TotalAscent),
		TotalDescent:     validUint16FloatPtr(lap.TotalDescent),
		TotalCalories:    validUint16Ptr(lap.TotalCalories),
		IQFields:         d.iqFields(m),
	}
	if validTime(lap.StartTime) {
		l.StartTime = Zoned(lap.StartTime.UTC()).Ptr()
	}
	if m != nil {
		if vo := scaledPtr(m, 77, 10); vo != nil {
			l.AvgVerticalOscillation = floatPtr(d.normalizer.Normalize("avg_vertical_oscillation", *vo, false))
		}
		l.AvgStanceTime = scaledPtr(m, 79, 10)
	}
	return l
}

func (d *decoder) session(s *fit.SessionMsg, m *fitscan.Message) Session {
	out := Session{
		Sport:            enumName(fmt.Sprint(s.Sport), "Sport"),
		TotalElapsedTime: finitePtr(s.GetTotalElapsedTimeScaled()),
		TotalTimerTime:   finitePtr(s.GetTotalTimerTimeScaled()),
		TotalDistance:    finitePtr(s.GetTotalDistanceScaled()),
		AvgHeartRate:     validUint8Ptr(s.AvgHeartRate),
		MaxHeartRate:     validUint8Ptr(s.MaxHeartRate),
		AvgSpeed:         firstFinite(s.GetEnhancedAvgSpeedScaled(), s.GetAvgSpeedScaled()),
		MaxSpeed:         firstFinite(s.GetEnhancedMaxSpeedScaled(), s.GetMaxSpeedScaled()),
		AvgCadence:       doubledCadence(s.GetAvgCadence()),
		MaxCadence:       doubledCadence(s.GetMaxCadence()),
		AvgPower:         validUint16Ptr(s.AvgPower),
		MaxPower:         validUint16Ptr(s.MaxPower),
		TotalAscent:      validUint16FloatPtr(s.TotalAscent),
		TotalDescent:     validUint16FloatPtr(s.TotalDescent),
		TotalCalories:    validUint16Ptr(s.TotalCalories),
		IQFields:         d.iqFields(m),
	}
	if out.Sport == "" {
		out.Sport = defaultSport
	}
	if sub := enumName(fmt.Sprint(s.SubSport), "SubSport"); sub != "" {
		out.SubSport = &sub
	}
	if validTime(s.StartTime) {
		out.StartTime = Zoned(s.StartTime.UTC()).Ptr()
	}
	if s.AvgTemperature != math.MaxInt8 {
		out.AvgTemperature = intPtr(int(s.AvgTemperature))
	}
	if m != nil {
		if vo := scaledPtr(m, 89, 10); vo != nil {
			out.AvgVerticalOscillation = floatPtr(d.normalizer.Normalize("avg_vertical_oscillation", *vo, false))
		}
		out.AvgStanceTime = scaledPtr(m, 91, 10)
	}
	return out
}

// fillElapsed derives elapsed_time from the first timestamp, else from
// distance over the session average speed, else from the record index.
func fillElapsed(records []Record, avgSpeed *float64) {
	var start *Timestamp
	for _, r := range records {
		if r.Timestamp != nil {
			start = r.Timestamp
			break
		}
	}
	for i := range records {
		r := &records[i]
		if r.ElapsedTime != nil {
			continue
		}
		switch {
		case r.Timestamp != nil && start != nil:
			r.ElapsedTime = floatPtr(r.Timestamp.Sub(start.Time).Seconds())
		case r.Distance != nil && avgSpeed != nil && *avgSpeed > 0:
			r.ElapsedTime = floatPtr(*r.Distance / *avgSpeed)
		default:
			r.ElapsedTime = floatPtr(float64(i))
		}
	}
}

// collectAvailableFields lists standard fields present on the first record
// and IQ fields holding a value on any record. Lap and session summary keys
// (lap_, s_) are not time series and are skipped.
func collectAvailableFields(records []Record) ([]string, []string) {
	standard := []string{}
	iq := []string{}
	if len(records) == 0 {
		return standard, iq
	}
	present := records[0].presentFields()
	for _, f := range standardRecordFields {
		if present[f] {
			standard = append(standard, f)
		}
	}
	seen := map[string]bool{}
	for _, r := range records {
		for k := range r.IQFields {
			if strings.HasPrefix(k, "lap_") || strings.HasPrefix(k, "s_") || seen[k] {
				continue
			}
			seen[k] = true
			iq = append(iq, k)
		}
	}
	slices.Sort(standard)
	slices.Sort(iq)
	return standard, iq
}

func (r Record) presentFields() map[string]bool {
	return map[string]bool{
		"elapsed_time":         r.ElapsedTime != nil,
		"distance":             r.Distance != nil,
		"heart_rate":           r.HeartRate != nil,
		"speed":                r.Speed != nil,
		"cadence":              r.Cadence != nil,
		"power":                r.Power != nil,
		"altitude":             r.Altitude != nil,
		"grade":                r.Grade != nil,
		"temperature":          r.Temperature != nil,
		"vertical_oscillation": r.VerticalOscillation != nil,
		"vertical_ratio":       r.VerticalRatio != nil,
		"stance_time":          r.StanceTime != nil,
		"stance_time_balance":  r.StanceTimeBalance != nil,
		"step_length":          r.StepLength != nil,
		"position_lat":         r.PositionLat != nil,
		"position_long":        r.PositionLong != nil,
	}
}

const defaultSport = "running"

// enumName turns a profile enum string such as "SportRunning" or
// "TrailRunning" into "running" / "trail_running". Invalid values yield "".
func enumName(s, prefix string) string {
	s = strings.TrimPrefix(s, prefix)
	if s == "" || s == "Invalid" || strings.Contains(s, "(") {
		return ""
	}
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func validTime(t time.Time) bool {
	return !t.IsZero() && !fit.IsBaseTime(t)
}

func scaledPtr(m *fitscan.Message, num uint8, scale float64) *float64 {
	v, ok := m.Scaled(num, scale)
	if !ok {
		return nil
	}
	return finitePtr(v)
}

func doubledCadence(v any) *int {
	c, ok := cadenceFromAny(v)
	if !ok {
		return nil
	}
	return intPtr(int(c) * 2)
}

func cadenceFromAny(v any) (float64, bool) {
	switch x := v.(type) {
	case uint8:
		return float64(x), x != math.MaxUint8
	case uint16:
		return float64(x), x != math.MaxUint16
	case int:
		return float64(x), x >= 0
	case float64:
		return x, isFinite(x) && x >= 0
	default:
		return 0, false
	}
}

func validUint8Ptr(v uint8) *int {
	if v == math.MaxUint8 {
		return nil
	}
	return intPtr(int(v))
}

func validUint16Ptr(v uint16) *int {
	if v == math.MaxUint16 {
		return nil
	}
	return intPtr(int(v))
}

func validUint16FloatPtr(v uint16) *float64 {
	if v == math.MaxUint16 {
		return nil
	}
	return floatPtr(float64(v))
}

func firstFinite(values ...float64) *float64 {
	for _, v := range values {
		if p := finitePtr(v); p != nil {
			return p
		}
	}
	return nil
}

func finitePtr(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
