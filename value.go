package fitanalysis

import "strings"

// IQFieldPrefix marks developer fields in field lists such as compare and
// export requests.
const IQFieldPrefix = "iq_"

// Value returns the named numeric field of r. Names prefixed with iq_ read
// the developer field of the same key.
func (r Record) Value(field string) (float64, bool) {
	if key, ok := strings.CutPrefix(field, IQFieldPrefix); ok {
		v, ok := r.IQFields[key]
		return v, ok
	}
	switch field {
	case "elapsed_time":
		return floatValue(r.ElapsedTime)
	case "distance":
		return floatValue(r.Distance)
	case "heart_rate":
		return intValue(r.HeartRate)
	case "speed":
		return floatValue(r.Speed)
	case "cadence":
		return intValue(r.Cadence)
	case "power":
		return intValue(r.Power)
	case "altitude":
		return floatValue(r.Altitude)
	case "position_lat":
		return floatValue(r.PositionLat)
	case "position_long":
		return floatValue(r.PositionLong)
	case "grade":
		return floatValue(r.Grade)
	case "temperature":
		return intValue(r.Temperature)
	case "vertical_oscillation":
		return floatValue(r.VerticalOscillation)
	case "vertical_ratio":
		return floatValue(r.VerticalRatio)
	case "stance_time":
		return floatValue(r.StanceTime)
	case "stance_time_balance":
		return floatValue(r.StanceTimeBalance)
	case "step_length":
		return floatValue(r.StepLength)
	case "fractional_cadence":
		return floatValue(r.FractionalCadence)
	}
	return 0, false
}

func floatValue(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func intValue(v *int) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}
