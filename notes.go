package fitanalysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/ttu-dot/fitanalysis/devices"
)

// BuildActivityNotes renders a plain-text summary of an activity: session
// totals, laps, available developer fields and, when present, how offline
// heart rate was merged into it. reg labels developer fields and may be nil.
func BuildActivityNotes(a *Activity, reg *devices.Registry) string {
	if a == nil {
		return ""
	}
	s := a.Session

	var b strings.Builder

	fmt.Fprintf(&b, "Activity: %s\n", a.Name)
	if s.SubSport != nil && *s.SubSport != "" {
		fmt.Fprintf(&b, "Session: %s (%s)\n", s.Sport, *s.SubSport)
	} else {
		fmt.Fprintf(&b, "Session: %s\n", s.Sport)
	}
	if s.StartTime != nil {
		fmt.Fprintf(&b, "Start: %s\n", s.StartTime.Display())
	}
	fmt.Fprintf(
		&b,
		"Duration %s | Distance %.2f km | Elevation +%.0f/-%.0f m\n",
		formatDuration(firstValue(s.TotalElapsedTime, s.TotalTimerTime)),
		firstValue(s.TotalDistance)/1000.0,
		firstValue(s.TotalAscent),
		firstValue(s.TotalDescent),
	)
	pace := NoPace
	if s.AvgSpeed != nil {
		pace = SpeedToPace(*s.AvgSpeed)
	}
	fmt.Fprintf(
		&b,
		"HR %s avg / %s max bpm | Cadence %s avg spm | Pace %s /km | Power %s avg W\n",
		intOrDash(s.AvgHeartRate),
		intOrDash(s.MaxHeartRate),
		intOrDash(s.AvgCadence),
		pace,
		intOrDash(s.AvgPower),
	)
	if s.AvgVerticalOscillation != nil || s.AvgStanceTime != nil {
		fmt.Fprintf(
			&b,
			"Running dynamics: vertical oscillation %.1f cm | ground contact %.0f ms\n",
			firstValue(s.AvgVerticalOscillation),
			firstValue(s.AvgStanceTime),
		)
	}

	if len(a.Laps) > 0 {
		b.WriteString("\nLaps\n")
		for _, lap := range a.Laps {
			lapPace := NoPace
			if lap.AvgSpeed != nil {
				lapPace = SpeedToPace(*lap.AvgSpeed)
			}
			fmt.Fprintf(
				&b,
				"- Lap %d: %s, %.2f km, %s /km, HR %s\n",
				lap.LapNumber,
				formatDuration(firstValue(lap.TotalElapsedTime)),
				firstValue(lap.TotalDistance)/1000.0,
				lapPace,
				intOrDash(lap.AvgHeartRate),
			)
		}
	}

	if len(a.AvailableIQFields) > 0 {
		b.WriteString("\nDeveloper Fields\n")
		for _, f := range a.AvailableIQFields {
			label := f
			if reg != nil {
				label = reg.DisplayLabel(f)
			}
			fmt.Fprintf(&b, "- %s\n", label)
		}
	}

	if p := a.MergeProvenance; p != nil {
		b.WriteString("\nHeart Rate Merge\n")
		for _, src := range p.Sources {
			fmt.Fprintf(&b, "- Source: %s (device %s)\n", strOrDash(src.FileName), strOrDash(src.DeviceName))
		}
		fmt.Fprintf(
			&b,
			"- Method %s (%s), offset %+.1f s, match ratio %.0f%%\n",
			p.Method,
			p.Decision,
			p.Stats.OffsetSec,
			p.Stats.MatchRatio*100.0,
		)
		if p.Stats.InterpRatio != nil && p.Stats.DroppedRatio != nil {
			fmt.Fprintf(
				&b,
				"- Interpolated %.0f%% | Dropped %.0f%%\n",
				*p.Stats.InterpRatio*100.0,
				*p.Stats.DroppedRatio*100.0,
			)
		}
		b.WriteString("- ")
		b.WriteString(mergeAssessment(p))
		b.WriteByte('\n')
	}

	return strings.TrimSpace(b.String())
}

func mergeAssessment(p *MergeProvenance) string {
	if p.Stats.DroppedRatio != nil && *p.Stats.DroppedRatio > 0.2 {
		return "Large parts of the activity have no heart-rate coverage; check that the CSV belongs to this session."
	}
	if p.Method == "metadata_align" {
		return "Clocks agreed within tolerance; samples were taken directly from the strap."
	}
	if math.Abs(p.Stats.OffsetSec) >= p.Criteria.MaxShiftSec {
		return "Clock offset sits at the search limit; the recordings may be further apart than the alignment window."
	}
	return "Timelines did not line up sample for sample, so heart rate was interpolated between strap readings."
}

func firstValue(values ...*float64) float64 {
	for _, v := range values {
		if v != nil && isFinite(*v) {
			return *v
		}
	}
	return 0
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func strOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	s := int(math.Round(seconds))
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}
