package export

import (
	"math"

	"github.com/ttu-dot/fitanalysis"
)

// Record columns written to every records table.
const (
	ColTimestamp   = "timestamp"
	ColElapsedTime = "elapsed_time"
)

func recordRow(rec fitanalysis.Record, include map[string]bool) row {
	r := row{
		ColTimestamp:                  timeCell(rec.Timestamp),
		ColElapsedTime:                floatCell(rec.ElapsedTime),
		"elapsed_time_formatted":      "",
		"distance_m":                  floatCell(rec.Distance),
		"distance_km":                 "",
		"heart_rate_bpm":              intCell(rec.HeartRate),
		"speed_mps":                   floatCell(rec.Speed),
		"pace_min_km":                 paceCell(rec.Speed),
		"cadence_spm":                 intCell(rec.Cadence),
		"power_w":                     intCell(rec.Power),
		"altitude_m":                  floatCell(rec.Altitude),
		"latitude":                    floatCell(rec.PositionLat),
		"longitude":                   floatCell(rec.PositionLong),
		"grade_percent":               floatCell(rec.Grade),
		"temperature_c":               intCell(rec.Temperature),
		"vertical_oscillation_cm":     floatCell(rec.VerticalOscillation),
		"stance_time_ms":              floatCell(rec.StanceTime),
		"stance_time_balance_percent": floatCell(rec.StanceTimeBalance),
		"step_length_m":               floatCell(rec.StepLength),
	}
	if rec.ElapsedTime != nil {
		r["elapsed_time_formatted"] = fitanalysis.FormatClock(*rec.ElapsedTime)
	}
	if rec.Distance != nil {
		r["distance_km"] = formatFloat(math.RoundToEven(*rec.Distance) / 1000)
	}
	addIQ(r, rec.IQFields)

	if len(include) > 0 {
		for k := range r {
			if !include[k] && k != ColTimestamp && k != ColElapsedTime {
				delete(r, k)
			}
		}
	}
	return r
}

// RecordsCSV renders one row per record. A non-empty include list keeps only
// the named columns, plus timestamp and elapsed_time which are always kept.
// Developer fields are named iq_<key>.
func RecordsCSV(a *fitanalysis.Activity, include []string) ([]byte, error) {
	var keep map[string]bool
	if len(include) > 0 {
		keep = make(map[string]bool, len(include))
		for _, f := range include {
			keep[f] = true
		}
	}
	rows := make([]row, 0, len(a.Records))
	for _, rec := range a.Records {
		rows = append(rows, recordRow(rec, keep))
	}
	return writeTable(rows)
}
