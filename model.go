package fitanalysis

import (
	"maps"
	"slices"
)

// Record is one per-second sample of an activity.
type Record struct {
	Timestamp           *Timestamp         `json:"timestamp"`
	ElapsedTime         *float64           `json:"elapsed_time"`
	Distance            *float64           `json:"distance"`
	HeartRate           *int               `json:"heart_rate"`
	Speed               *float64           `json:"speed"`
	Cadence             *int               `json:"cadence"`
	Power               *int               `json:"power"`
	Altitude            *float64           `json:"altitude"`
	PositionLat         *float64           `json:"position_lat"`
	PositionLong        *float64           `json:"position_long"`
	Grade               *float64           `json:"grade"`
	Temperature         *int               `json:"temperature"`
	VerticalOscillation *float64           `json:"vertical_oscillation"`
	VerticalRatio       *float64           `json:"vertical_ratio"`
	StanceTime          *float64           `json:"stance_time"`
	StanceTimeBalance   *float64           `json:"stance_time_balance"`
	StepLength          *float64           `json:"step_length"`
	FractionalCadence   *float64           `json:"fractional_cadence"`
	IQFields            map[string]float64 `json:"iq_fields"`
}

// Lap summarizes one lap of an activity.
type Lap struct {
	LapNumber              int                `json:"lap_number"`
	StartTime              *Timestamp         `json:"start_time"`
	TotalElapsedTime       *float64           `json:"total_elapsed_time"`
	TotalDistance          *float64           `json:"total_distance"`
	AvgHeartRate           *int               `json:"avg_heart_rate"`
	MaxHeartRate           *int               `json:"max_heart_rate"`
	AvgSpeed               *float64           `json:"avg_speed"`
	MaxSpeed               *float64           `json:"max_speed"`
	AvgCadence             *int               `json:"avg_cadence"`
	MaxCadence             *int               `json:"max_cadence"`
	AvgPower               *int               `json:"avg_power"`
	MaxPower               *int               `json:"max_power"`
	TotalAscent            *float64           `json:"total_ascent"`
	TotalDescent           *float64           `json:"total_descent"`
	AvgVerticalOscillation *float64           `json:"avg_vertical_oscillation"`
	AvgStanceTime          *float64           `json:"avg_stance_time"`
	AvgStepLength          *float64           `json:"avg_step_length"`
	TotalCalories          *int               `json:"total_calories"`
	IQFields               map[string]float64 `json:"iq_fields"`
}

// Session is the whole-activity summary.
type Session struct {
	Sport                  string             `json:"sport"`
	SubSport               *string            `json:"sub_sport"`
	StartTime              *Timestamp         `json:"start_time"`
	TotalElapsedTime       *float64           `json:"total_elapsed_time"`
	TotalTimerTime         *float64           `json:"total_timer_time"`
	TotalDistance          *float64           `json:"total_distance"`
	AvgHeartRate           *int               `json:"avg_heart_rate"`
	MaxHeartRate           *int               `json:"max_heart_rate"`
	AvgSpeed               *float64           `json:"avg_speed"`
	MaxSpeed               *float64           `json:"max_speed"`
	AvgCadence             *int               `json:"avg_cadence"`
	MaxCadence             *int               `json:"max_cadence"`
	AvgPower               *int               `json:"avg_power"`
	MaxPower               *int               `json:"max_power"`
	TotalAscent            *float64           `json:"total_ascent"`
	TotalDescent           *float64           `json:"total_descent"`
	TotalCalories          *int               `json:"total_calories"`
	AvgTemperature         *int               `json:"avg_temperature"`
	AvgVerticalOscillation *float64           `json:"avg_vertical_oscillation"`
	AvgStanceTime          *float64           `json:"avg_stance_time"`
	AvgStepLength          *float64           `json:"avg_step_length"`
	IQFields               map[string]float64 `json:"iq_fields"`
}

// Activity is a decoded activity with its records, laps and merge history.
type Activity struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	FileName          string           `json:"file_name"`
	CreatedAt         Timestamp        `json:"created_at"`
	Session           Session          `json:"session"`
	Laps              []Lap            `json:"laps"`
	Records           []Record         `json:"records"`
	AvailableFields   []string         `json:"available_fields"`
	AvailableIQFields []string         `json:"available_iq_fields"`
	MergeProvenance   *MergeProvenance `json:"merge_provenance"`
}

// MergeSource names where merged data came from.
type MergeSource struct {
	FileName   *string `json:"file_name"`
	DeviceName *string `json:"device_name"`
}

// MergeCriteria is the resolved threshold set used for one merge.
type MergeCriteria struct {
	MaxShiftSec          float64 `json:"auto_align_max_shift_sec"`
	MatchToleranceSec    float64 `json:"auto_align_match_tolerance_sec"`
	MinMatchRatio        float64 `json:"auto_align_min_match_ratio"`
	InterpolateMaxGapSec float64 `json:"interpolate_max_gap_sec"`
	AllowExtrapolation   bool    `json:"allow_extrapolation"`
}

// MergeStats are the outcome ratios of one merge.
type MergeStats struct {
	OffsetSec    float64  `json:"offset_sec"`
	MatchRatio   float64  `json:"match_ratio"`
	InterpRatio  *float64 `json:"interp_ratio"`
	DroppedRatio *float64 `json:"dropped_ratio"`
}

// MergeProvenance records how secondary data was merged into an activity.
type MergeProvenance struct {
	Version  string        `json:"version"`
	Method   string        `json:"method"`
	Decision string        `json:"decision"`
	Sources  []MergeSource `json:"sources"`
	Criteria MergeCriteria `json:"criteria"`
	Stats    MergeStats    `json:"stats"`
}

// Clone returns a deep copy of a. Callers merging into a stored activity
// clone it first so the stored instance is never mutated.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	out := *a
	out.Session = a.Session.clone()
	out.Laps = make([]Lap, len(a.Laps))
	for i, lap := range a.Laps {
		out.Laps[i] = lap.clone()
	}
	out.Records = make([]Record, len(a.Records))
	for i, rec := range a.Records {
		out.Records[i] = rec.clone()
	}
	out.AvailableFields = slices.Clone(a.AvailableFields)
	out.AvailableIQFields = slices.Clone(a.AvailableIQFields)
	if a.MergeProvenance != nil {
		p := *a.MergeProvenance
		p.Sources = make([]MergeSource, len(a.MergeProvenance.Sources))
		for i, src := range a.MergeProvenance.Sources {
			p.Sources[i] = MergeSource{FileName: clonePtr(src.FileName), DeviceName: clonePtr(src.DeviceName)}
		}
		p.Stats.InterpRatio = clonePtr(p.Stats.InterpRatio)
		p.Stats.DroppedRatio = clonePtr(p.Stats.DroppedRatio)
		out.MergeProvenance = &p
	}
	return &out
}

func (r Record) clone() Record {
	out := r
	out.Timestamp = clonePtr(r.Timestamp)
	out.ElapsedTime = clonePtr(r.ElapsedTime)
	out.Distance = clonePtr(r.Distance)
	out.HeartRate = clonePtr(r.HeartRate)
	out.Speed = clonePtr(r.Speed)
	out.Cadence = clonePtr(r.Cadence)
	out.Power = clonePtr(r.Power)
	out.Altitude = clonePtr(r.Altitude)
	out.PositionLat = clonePtr(r.PositionLat)
	out.PositionLong = clonePtr(r.PositionLong)
	out.Grade = clonePtr(r.Grade)
	out.Temperature = clonePtr(r.Temperature)
	out.VerticalOscillation = clonePtr(r.VerticalOscillation)
	out.VerticalRatio = clonePtr(r.VerticalRatio)
	out.StanceTime = clonePtr(r.StanceTime)
	out.StanceTimeBalance = clonePtr(r.StanceTimeBalance)
	out.StepLength = clonePtr(r.StepLength)
	out.FractionalCadence = clonePtr(r.FractionalCadence)
	out.IQFields = cloneFields(r.IQFields)
	return out
}

func (l Lap) clone() Lap {
	out := l
	out.StartTime = clonePtr(l.StartTime)
	out.TotalElapsedTime = clonePtr(l.TotalElapsedTime)
	out.TotalDistance = clonePtr(l.TotalDistance)
	out.AvgHeartRate = clonePtr(l.AvgHeartRate)
	out.MaxHeartRate = clonePtr(l.MaxHeartRate)
	out.AvgSpeed = clonePtr(l.AvgSpeed)
	out.MaxSpeed = clonePtr(l.MaxSpeed)
	out.AvgCadence = clonePtr(l.AvgCadence)
	out.MaxCadence = clonePtr(l.MaxCadence)
	out.AvgPower = clonePtr(l.AvgPower)
	out.MaxPower = clonePtr(l.MaxPower)
	out.TotalAscent = clonePtr(l.TotalAscent)
	out.TotalDescent = clonePtr(l.TotalDescent)
	out.AvgVerticalOscillation = clonePtr(l.AvgVerticalOscillation)
	out.AvgStanceTime = clonePtr(l.AvgStanceTime)
	out.AvgStepLength = clonePtr(l.AvgStepLength)
	out.TotalCalories = clonePtr(l.TotalCalories)
	out.IQFields = cloneFields(l.IQFields)
	return out
}

func (s Session) clone() Session {
	out := s
	out.SubSport = clonePtr(s.SubSport)
	out.StartTime = clonePtr(s.StartTime)
	out.TotalElapsedTime = clonePtr(s.TotalElapsedTime)
	out.TotalTimerTime = clonePtr(s.TotalTimerTime)
	out.TotalDistance = clonePtr(s.TotalDistance)
	out.AvgHeartRate = clonePtr(s.AvgHeartRate)
	out.MaxHeartRate = clonePtr(s.MaxHeartRate)
	out.AvgSpeed = clonePtr(s.AvgSpeed)
	out.MaxSpeed = clonePtr(s.MaxSpeed)
	out.AvgCadence = clonePtr(s.AvgCadence)
	out.MaxCadence = clonePtr(s.MaxCadence)
	out.AvgPower = clonePtr(s.AvgPower)
	out.MaxPower = clonePtr(s.MaxPower)
	out.TotalAscent = clonePtr(s.TotalAscent)
	out.TotalDescent = clonePtr(s.TotalDescent)
	out.TotalCalories = clonePtr(s.TotalCalories)
	out.AvgTemperature = clonePtr(s.AvgTemperature)
	out.AvgVerticalOscillation = clonePtr(s.AvgVerticalOscillation)
	out.AvgStanceTime = clonePtr(s.AvgStanceTime)
	out.AvgStepLength = clonePtr(s.AvgStepLength)
	out.IQFields = cloneFields(s.IQFields)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFields(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return maps.Clone(m)
}
