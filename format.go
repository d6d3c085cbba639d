package fitanalysis

import (
	"fmt"
	"math"
)

// NoPace is shown when a speed cannot be turned into a pace.
const NoPace = "--:--"

// SpeedToPace converts metres per second to a "m:ss" pace per kilometre.
func SpeedToPace(speedMps float64) string {
	if !isFinite(speedMps) || speedMps <= 0 {
		return NoPace
	}
	paceSeconds := 1000 / speedMps
	minutes := int(paceSeconds / 60)
	seconds := int(math.Mod(paceSeconds, 60))
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatClock renders seconds as "h:mm:ss", or "m:ss" under an hour.
// Fractions are truncated.
func FormatClock(seconds float64) string {
	if !isFinite(seconds) || seconds < 0 {
		return ""
	}
	s := int(seconds)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
