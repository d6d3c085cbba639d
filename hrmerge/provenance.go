package hrmerge

import "github.com/ttu-dot/fitanalysis"

// ProvenanceVersion is the schema version of recorded merge provenance.
const ProvenanceVersion = "1"

// NewProvenance records the outcome of one automatic merge.
func NewProvenance(parsed *ParsedCSV, c Criteria, res *Result) *fitanalysis.MergeProvenance {
	stats := fitanalysis.MergeStats{
		OffsetSec:  res.OffsetSec,
		MatchRatio: res.MatchRatio,
	}
	if res.Resolvable > 0 {
		dropped := float64(res.Dropped) / float64(res.Resolvable)
		interp := float64(res.Interpolated) / float64(res.Resolvable)
		stats.DroppedRatio = &dropped
		stats.InterpRatio = &interp
	}
	return &fitanalysis.MergeProvenance{
		Version:  ProvenanceVersion,
		Method:   res.Method,
		Decision: DecisionAuto,
		Sources: []fitanalysis.MergeSource{{
			FileName:   parsed.SourceFileName,
			DeviceName: parsed.DeviceName,
		}},
		Criteria: c,
		Stats:    stats,
	}
}
