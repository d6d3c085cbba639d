package hrmerge

import (
	"time"

	"github.com/ttu-dot/fitanalysis"
)

// maxZoneDrift is the drift above which a naive timestamp is re-read as
// local time instead of the base timestamp's zone.
const maxZoneDrift = 6 * time.Hour

// Reconciler makes timestamps subtractable from a base timestamp when
// either side may lack zone information.
//
// A naive value compared with a zoned base is first read in the base's
// zone. When that lands more than six hours from the base it is re-read
// in Local and converted. This recovers the common export of local wall
// clock against a UTC activity, but it assumes one fixed local offset and
// cannot resolve DST changes or a CSV recorded in a third zone.
type Reconciler struct {
	Local *time.Location
}

// Coerce returns dt expressed so that dt.Sub(base) is meaningful.
func (r Reconciler) Coerce(dt, base fitanalysis.Timestamp) fitanalysis.Timestamp {
	if base.Naive {
		if dt.Naive {
			return dt
		}
		return fitanalysis.NaiveTime(dt.Time.UTC())
	}

	loc := base.Location()
	if !dt.Naive {
		return fitanalysis.Zoned(dt.Time.In(loc))
	}

	candidate := wallClockIn(dt.Time, loc)
	if absDuration(candidate.Sub(base.Time)) > maxZoneDrift {
		local := r.Local
		if local == nil {
			local = time.Local
		}
		return fitanalysis.Zoned(wallClockIn(dt.Time, local).In(loc))
	}
	return fitanalysis.Zoned(candidate)
}

// Offset returns (dt - base) in seconds after coercion.
func (r Reconciler) Offset(dt, base fitanalysis.Timestamp) float64 {
	return r.Coerce(dt, base).Sub(base.Time).Seconds()
}

func wallClockIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
