package hrmerge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ttu-dot/fitanalysis"
)

// Criteria is the resolved threshold set of one merge. It is persisted
// verbatim in the activity's merge provenance.
type Criteria = fitanalysis.MergeCriteria

// DefaultCriteria returns the built-in thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MaxShiftSec:          8,
		MatchToleranceSec:    1,
		MinMatchRatio:        0.85,
		InterpolateMaxGapSec: 5,
		AllowExtrapolation:   false,
	}
}

// Options overrides individual criteria for one call. Nil fields fall back
// to the engine defaults.
type Options struct {
	MaxShiftSec          *float64 `json:"auto_align_max_shift_sec,omitempty"`
	MatchToleranceSec    *float64 `json:"auto_align_match_tolerance_sec,omitempty"`
	MinMatchRatio        *float64 `json:"auto_align_min_match_ratio,omitempty"`
	InterpolateMaxGapSec *float64 `json:"interpolate_max_gap_sec,omitempty"`
	AllowExtrapolation   *bool    `json:"allow_extrapolation,omitempty"`
}

// Resolve applies o on top of defaults. A nil receiver returns defaults.
func (o *Options) Resolve(defaults Criteria) Criteria {
	c := defaults
	if o == nil {
		return c
	}
	if o.MaxShiftSec != nil {
		c.MaxShiftSec = *o.MaxShiftSec
	}
	if o.MatchToleranceSec != nil {
		c.MatchToleranceSec = *o.MatchToleranceSec
	}
	if o.MinMatchRatio != nil {
		c.MinMatchRatio = *o.MinMatchRatio
	}
	if o.InterpolateMaxGapSec != nil {
		c.InterpolateMaxGapSec = *o.InterpolateMaxGapSec
	}
	if o.AllowExtrapolation != nil {
		c.AllowExtrapolation = *o.AllowExtrapolation
	}
	return c
}

// ParseOptions builds Options from string form values such as those of a
// multipart upload. Empty or missing values are left unset.
func ParseOptions(get func(key string) string) (*Options, error) {
	o := &Options{}
	floats := []struct {
		key string
		dst **float64
	}{
		{"auto_align_max_shift_sec", &o.MaxShiftSec},
		{"auto_align_match_tolerance_sec", &o.MatchToleranceSec},
		{"auto_align_min_match_ratio", &o.MinMatchRatio},
		{"interpolate_max_gap_sec", &o.InterpolateMaxGapSec},
	}
	for _, f := range floats {
		raw := strings.TrimSpace(get(f.key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", f.key, raw, err)
		}
		*f.dst = &v
	}
	if raw := strings.TrimSpace(get("allow_extrapolation")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid allow_extrapolation %q: %w", raw, err)
		}
		o.AllowExtrapolation = &v
	}
	return o, nil
}
