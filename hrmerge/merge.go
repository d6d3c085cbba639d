// Package hrmerge merges heart rate from an offline CSV export into a
// decoded activity by aligning the CSV clock with the activity's record
// timeline.
//
// The activity's record cadence is never changed. The engine estimates a
// constant offset between the two timelines, picks nearest-sample
// correspondence or linear interpolation from the exact-match ratio, and
// writes one value per resolvable record into the record's IQ fields under
// imported_<device>_hr.
package hrmerge

import (
	"fmt"
	"slices"
	"time"

	"github.com/ttu-dot/fitanalysis"
)

// Config configures an Engine.
type Config struct {
	// Defaults are the criteria used where per-call Options leave a field unset.
	Defaults Criteria
	// Local is the zone naive CSV times are re-read in when they drift more
	// than six hours from a zoned activity. Nil means time.Local.
	Local *time.Location
}

// Engine merges offline heart-rate CSVs. It holds no mutable state and is
// safe for concurrent use on distinct activities.
type Engine struct {
	defaults   Criteria
	reconciler Reconciler
}

// New returns an engine. A zero Config uses DefaultCriteria and time.Local.
func New(cfg Config) *Engine {
	defaults := cfg.Defaults
	if defaults == (Criteria{}) {
		defaults = DefaultCriteria()
	}
	local := cfg.Local
	if local == nil {
		local = time.Local
	}
	return &Engine{defaults: defaults, reconciler: Reconciler{Local: local}}
}

// Defaults returns the engine's default criteria.
func (e *Engine) Defaults() Criteria {
	return e.defaults
}

// Result describes one completed merge.
type Result struct {
	DeviceKey string
	FieldName string
	Method    string
	OffsetSec float64
	// MatchRatio is the exact-match ratio that decided Method.
	MatchRatio float64
	// Records is the number of activity records.
	Records int
	// Resolvable counts records with a timestamp or elapsed time.
	Resolvable   int
	NearMatches  int
	Written      int
	Interpolated int
	// Dropped counts records that received no value, unresolvable ones included.
	Dropped     int
	Samples     int
	SkippedRows int
	Criteria    Criteria
}

// Merge parses data and writes merged heart rate into a, then attaches
// merge provenance to a.
//
// Merge mutates a in place and does not copy it. Callers that must keep
// the original intact, such as a stored activity, pass a.Clone().
// On error a is left untouched.
func (e *Engine) Merge(a *fitanalysis.Activity, data []byte, sourceFileName *string, opts *Options) (*Result, error) {
	parsed, err := ParseCSV(data, sourceFileName)
	if err != nil {
		return nil, err
	}
	criteria := opts.Resolve(e.defaults)

	base, err := BaseTimestamp(a)
	if err != nil {
		return nil, err
	}

	csvTimes, csvValues := SecondaryTimeline(parsed.Samples, base, e.reconciler)
	if len(csvTimes) == 0 {
		return nil, fmt.Errorf("%w: heart-rate samples are empty", ErrFormat)
	}
	points := PrimaryTimeline(a, base, e.reconciler)

	offset := EstimateOffset(points, csvTimes, criteria)
	match := Match(points, csvTimes, offset, criteria)
	method := SelectMethod(match, criteria)

	res := &Result{
		DeviceKey:   SanitizeDeviceName(derefString(parsed.DeviceName)),
		FieldName:   FieldName(parsed.DeviceName),
		Method:      method,
		OffsetSec:   offset,
		MatchRatio:  match.Ratio(),
		Records:     len(a.Records),
		Resolvable:  match.Total,
		NearMatches: match.Near,
		Samples:     len(parsed.Samples),
		SkippedRows: parsed.SkippedRows,
		Criteria:    criteria,
	}

	r := newResolver(csvTimes, csvValues, method, criteria)
	for i, p := range points {
		if !p.Valid {
			res.Dropped++
			continue
		}
		v, ok := r.resolve(p.Offset + offset)
		if !ok {
			res.Dropped++
			continue
		}
		if method == MethodLinearInterpolate {
			res.Interpolated++
		}
		rec := &a.Records[i]
		if rec.IQFields == nil {
			rec.IQFields = make(map[string]float64)
		}
		rec.IQFields[res.FieldName] = float64(v)
		res.Written++
	}

	if !slices.Contains(a.AvailableIQFields, res.FieldName) {
		a.AvailableIQFields = append(a.AvailableIQFields, res.FieldName)
		slices.Sort(a.AvailableIQFields)
	}
	a.MergeProvenance = NewProvenance(parsed, criteria, res)
	return res, nil
}

// MergeOfflineHeartRateCSV merges with DefaultCriteria and time.Local and
// returns a, mutated in place.
func MergeOfflineHeartRateCSV(a *fitanalysis.Activity, data []byte, sourceFileName *string, opts *Options) (*fitanalysis.Activity, error) {
	if _, err := New(Config{}).Merge(a, data, sourceFileName, opts); err != nil {
		return nil, err
	}
	return a, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
