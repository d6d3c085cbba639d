package export

import (
	"github.com/ttu-dot/fitanalysis"
)

func lapRow(lap fitanalysis.Lap) row {
	r := row{
		"lap_number":                   itoa(lap.LapNumber),
		"start_time":                   timeCell(lap.StartTime),
		"total_elapsed_time_sec":       floatCell(lap.TotalElapsedTime),
		"total_elapsed_time_formatted": durationCell(lap.TotalElapsedTime),
		"total_distance_m":             floatCell(lap.TotalDistance),
		"total_distance_km":            kmCell(lap.TotalDistance),
		"avg_pace_min_km":              paceCell(lap.AvgSpeed),
		"avg_heart_rate_bpm":           intCell(lap.AvgHeartRate),
		"max_heart_rate_bpm":           intCell(lap.MaxHeartRate),
		"avg_speed_mps":                floatCell(lap.AvgSpeed),
		"max_speed_mps":                floatCell(lap.MaxSpeed),
		"avg_cadence_spm":              intCell(lap.AvgCadence),
		"max_cadence_spm":              intCell(lap.MaxCadence),
		"avg_power_w":                  intCell(lap.AvgPower),
		"max_power_w":                  intCell(lap.MaxPower),
		"total_ascent_m":               floatCell(lap.TotalAscent),
		"total_descent_m":              floatCell(lap.TotalDescent),
		"avg_vertical_oscillation_cm":  floatCell(lap.AvgVerticalOscillation),
		"avg_stance_time_ms":           floatCell(lap.AvgStanceTime),
		"avg_step_length_m":            floatCell(lap.AvgStepLength),
		"total_calories":               intCell(lap.TotalCalories),
	}
	addIQ(r, lap.IQFields)
	return r
}

func sessionRow(s fitanalysis.Session) row {
	r := row{
		"sport":                        s.Sport,
		"sub_sport":                    "",
		"start_time":                   timeCell(s.StartTime),
		"total_elapsed_time_sec":       floatCell(s.TotalElapsedTime),
		"total_elapsed_time_formatted": durationCell(s.TotalElapsedTime),
		"total_timer_time_sec":         floatCell(s.TotalTimerTime),
		"total_distance_m":             floatCell(s.TotalDistance),
		"total_distance_km":            kmCell(s.TotalDistance),
		"avg_pace_min_km":              paceCell(s.AvgSpeed),
		"avg_heart_rate_bpm":           intCell(s.AvgHeartRate),
		"max_heart_rate_bpm":           intCell(s.MaxHeartRate),
		"avg_speed_mps":                floatCell(s.AvgSpeed),
		"max_speed_mps":                floatCell(s.MaxSpeed),
		"avg_cadence_spm":              intCell(s.AvgCadence),
		"max_cadence_spm":              intCell(s.MaxCadence),
		"avg_power_w":                  intCell(s.AvgPower),
		"max_power_w":                  intCell(s.MaxPower),
		"total_ascent_m":               floatCell(s.TotalAscent),
		"total_descent_m":              floatCell(s.TotalDescent),
		"total_calories":               intCell(s.TotalCalories),
		"avg_temperature_c":            intCell(s.AvgTemperature),
		"avg_vertical_oscillation_cm":  floatCell(s.AvgVerticalOscillation),
		"avg_stance_time_ms":           floatCell(s.AvgStanceTime),
		"avg_step_length_m":            floatCell(s.AvgStepLength),
	}
	if s.SubSport != nil {
		r["sub_sport"] = *s.SubSport
	}
	addIQ(r, s.IQFields)
	return r
}

// LapsCSV renders one row per lap.
func LapsCSV(a *fitanalysis.Activity) ([]byte, error) {
	rows := make([]row, 0, len(a.Laps))
	for _, lap := range a.Laps {
		rows = append(rows, lapRow(lap))
	}
	return writeTable(rows)
}

// SessionCSV renders the session as a single row.
func SessionCSV(a *fitanalysis.Activity) ([]byte, error) {
	return writeTable([]row{sessionRow(a.Session)})
}

func itoa(v int) string {
	return intCell(&v)
}
