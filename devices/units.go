package devices

import (
	"math"

	"go.uber.org/zap"
)

// UnitConfig describes how a raw FIT value converts to its display unit.
type UnitConfig struct {
	FitUnit     string
	DisplayUnit string
	Scale       float64
	Min         float64
	Max         float64
}

func (c UnitConfig) inRange(v float64) bool {
	return v >= c.Min && v <= c.Max
}

var semicircleScale = 180.0 / math.Exp2(31)

var standardUnits = map[string]UnitConfig{
	"vertical_oscillation":     {FitUnit: "mm", DisplayUnit: "cm", Scale: 0.1, Min: 3, Max: 20},
	"avg_vertical_oscillation": {FitUnit: "mm", DisplayUnit: "cm", Scale: 0.1, Min: 3, Max: 20},
	"step_length":              {FitUnit: "mm", DisplayUnit: "m", Scale: 0.001, Min: 0.4, Max: 2.5},
	"avg_step_length":          {FitUnit: "mm", DisplayUnit: "m", Scale: 0.001, Min: 0.4, Max: 2.5},
	"stance_time":              {FitUnit: "ms", DisplayUnit: "ms", Scale: 1, Min: 150, Max: 400},
	"avg_stance_time":          {FitUnit: "ms", DisplayUnit: "ms", Scale: 1, Min: 150, Max: 400},
	"stance_time_percent":      {FitUnit: "percent", DisplayUnit: "percent", Scale: 0.01, Min: 20, Max: 50},
	"avg_stance_time_percent":  {FitUnit: "percent", DisplayUnit: "percent", Scale: 0.01, Min: 20, Max: 50},
	"position_lat":             {FitUnit: "semicircles", DisplayUnit: "degrees", Scale: semicircleScale, Min: -90, Max: 90},
	"position_long":            {FitUnit: "semicircles", DisplayUnit: "degrees", Scale: semicircleScale, Min: -180, Max: 180},
	"speed":                    {FitUnit: "m/s", DisplayUnit: "m/s", Scale: 0.001, Min: 0.5, Max: 15},
	"avg_speed":                {FitUnit: "m/s", DisplayUnit: "m/s", Scale: 0.001, Min: 0.5, Max: 15},
	"enhanced_speed":           {FitUnit: "m/s", DisplayUnit: "m/s", Scale: 0.001, Min: 0.5, Max: 15},
	"enhanced_avg_speed":       {FitUnit: "m/s", DisplayUnit: "m/s", Scale: 0.001, Min: 0.5, Max: 15},
	"heart_rate":               {FitUnit: "bpm", DisplayUnit: "bpm", Scale: 1, Min: 40, Max: 220},
	"avg_heart_rate":           {FitUnit: "bpm", DisplayUnit: "bpm", Scale: 1, Min: 40, Max: 220},
	"max_heart_rate":           {FitUnit: "bpm", DisplayUnit: "bpm", Scale: 1, Min: 40, Max: 220},
	"cadence":                  {FitUnit: "rpm", DisplayUnit: "spm", Scale: 2, Min: 140, Max: 220},
	"avg_cadence":              {FitUnit: "rpm", DisplayUnit: "spm", Scale: 2, Min: 140, Max: 220},
	"max_cadence":              {FitUnit: "rpm", DisplayUnit: "spm", Scale: 2, Min: 140, Max: 220},
	"power":                    {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 50, Max: 1500},
	"avg_power":                {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 50, Max: 1500},
	"max_power":                {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 50, Max: 1500},
	"altitude":                 {FitUnit: "m", DisplayUnit: "m", Scale: 0.2, Min: -500, Max: 9000},
	"enhanced_altitude":        {FitUnit: "m", DisplayUnit: "m", Scale: 0.2, Min: -500, Max: 9000},
	"total_ascent":             {FitUnit: "m", DisplayUnit: "m", Scale: 1, Min: 0, Max: 10000},
	"total_descent":            {FitUnit: "m", DisplayUnit: "m", Scale: 1, Min: 0, Max: 10000},
	"distance":                 {FitUnit: "m", DisplayUnit: "m", Scale: 0.01, Min: 0, Max: 500000},
	"total_distance":           {FitUnit: "m", DisplayUnit: "m", Scale: 0.01, Min: 0, Max: 500000},
	"calories":                 {FitUnit: "kcal", DisplayUnit: "kcal", Scale: 1, Min: 0, Max: 10000},
	"total_calories":           {FitUnit: "kcal", DisplayUnit: "kcal", Scale: 1, Min: 0, Max: 10000},
}

// Developer fields are keyed by their lowercased name.
var iqUnits = map[string]UnitConfig{
	"dr_timestamp":         {FitUnit: "ms", DisplayUnit: "ms", Scale: 1, Min: 0, Max: 100000},
	"dr_distance":          {FitUnit: "m", DisplayUnit: "m", Scale: 1, Min: 0, Max: 100000},
	"dr_speed":             {FitUnit: "m/s", DisplayUnit: "m/s", Scale: 1, Min: 0.5, Max: 15},
	"dr_cadence":           {FitUnit: "spm", DisplayUnit: "spm", Scale: 1, Min: 140, Max: 220},
	"dr_stride":            {FitUnit: "cm", DisplayUnit: "cm", Scale: 1, Min: 50, Max: 200},
	"dr_gct":               {FitUnit: "ms", DisplayUnit: "ms", Scale: 1, Min: 150, Max: 400},
	"dr_air_time":          {FitUnit: "ms", DisplayUnit: "ms", Scale: 1, Min: 50, Max: 300},
	"dr_v_osc":             {FitUnit: "cm", DisplayUnit: "cm", Scale: 1, Min: 3, Max: 20},
	"dr_vertical_ratio":    {FitUnit: "percent", DisplayUnit: "percent", Scale: 1, Min: 0, Max: 15},
	"dr_ssl":               {Scale: 1, Min: 0, Max: 50},
	"dr_ssl_percent":       {FitUnit: "percent", DisplayUnit: "percent", Scale: 1, Min: 0, Max: 30},
	"dr_vertical_power":    {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 0, Max: 500},
	"dr_propulsive_power":  {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 0, Max: 500},
	"dr_slope_power":       {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 0, Max: 500},
	"dr_total_power":       {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 0, Max: 1000},
	"dr_lss":               {Scale: 1, Min: 5, Max: 25},
	"dr_v_ilr":             {Scale: 1, Min: 5, Max: 30},
	"dr_h_ilr":             {Scale: 1, Min: 5, Max: 30},
	"dr_v_pif":             {Scale: 1, Min: 0, Max: 10},
	"dr_h_pif":             {Scale: 1, Min: 0, Max: 10},
	"dr_body_x_pif":        {Scale: 1, Min: 0, Max: 10},
	"dr_body_y_pif":        {Scale: 1, Min: 0, Max: 10},
	"dr_body_z_pif":        {Scale: 1, Min: 0, Max: 10},
	"v_osc":                {FitUnit: "cm", DisplayUnit: "cm", Scale: 1, Min: 3, Max: 20},
	"gct":                  {FitUnit: "ms", DisplayUnit: "ms", Scale: 1, Min: 150, Max: 400},
	"air_time":             {FitUnit: "ms", DisplayUnit: "ms", Scale: 1, Min: 50, Max: 300},
	"stride_length":        {FitUnit: "m", DisplayUnit: "m", Scale: 1, Min: 0.8, Max: 3},
	"v_pif":                {Scale: 1, Min: 0, Max: 100},
	"bias":                 {FitUnit: "percent", DisplayUnit: "percent", Scale: 1, Min: 45, Max: 55},
	"form_power":           {FitUnit: "watts", DisplayUnit: "watts", Scale: 1, Min: 0, Max: 500},
	"leg_spring_stiffness": {Scale: 1, Min: 5, Max: 20},
}

var detectionScales = []float64{0.1, 0.01, 0.001, 10, 100, 1000}

// Normalizer converts raw field values to display units, falling back to
// range-based scale detection when the configured conversion looks wrong.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer returns a Normalizer. A nil logger disables debug traces.
func NewNormalizer(log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{log: log}
}

// UnitFor returns the unit table entry for a field.
func UnitFor(field string, iq bool) (UnitConfig, bool) {
	if iq {
		c, ok := iqUnits[field]
		return c, ok
	}
	c, ok := standardUnits[field]
	return c, ok
}

// rangeFor looks a field up in both tables, developer entries winning.
func rangeFor(field string) (UnitConfig, bool) {
	if c, ok := iqUnits[field]; ok {
		return c, true
	}
	c, ok := standardUnits[field]
	return c, ok
}

// Normalize converts value for field. iq selects the developer field table.
func (n *Normalizer) Normalize(field string, value float64, iq bool) float64 {
	if cfg, ok := UnitFor(field, iq); ok {
		converted := value * cfg.Scale
		if cfg.inRange(converted) {
			return converted
		}
		n.log.Debug("configured conversion out of range",
			zap.String("field", field),
			zap.Float64("value", value),
			zap.Float64("converted", converted))
		if detected, ok := n.detect(field, value, cfg); ok {
			return detected
		}
		return converted
	}

	if cfg, ok := rangeFor(field); ok {
		if detected, ok := n.detect(field, value, cfg); ok {
			return detected
		}
	}
	return value
}

func (n *Normalizer) detect(field string, value float64, cfg UnitConfig) (float64, bool) {
	if cfg.inRange(value) {
		return value, true
	}
	for _, scale := range detectionScales {
		converted := value * scale
		if cfg.inRange(converted) {
			n.log.Debug("detected unit scale",
				zap.String("field", field),
				zap.Float64("scale", scale),
				zap.Float64("converted", converted))
			return converted, true
		}
	}
	return 0, false
}
