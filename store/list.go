package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ttu-dot/fitanalysis"
)

// Sort keys accepted by List.
const (
	SortDate         = "date"
	SortDistance     = "distance"
	SortDuration     = "duration"
	SortAvgPace      = "avg_pace"
	SortAvgHeartRate = "avg_heart_rate"
	SortAvgCadence   = "avg_cadence"
	SortAvgPower     = "avg_power"
)

// Missing values sort as the lowest value, like an absent date or heart rate.
var sortColumns = map[string]string{
	SortDate:         "COALESCE(date_unix, -1e18)",
	SortDistance:     "distance_km",
	SortDuration:     "duration_sec",
	SortAvgPace:      "pace_sec",
	SortAvgHeartRate: "COALESCE(avg_heart_rate, 0)",
	SortAvgCadence:   "COALESCE(avg_cadence, 0)",
	SortAvgPower:     "COALESCE(avg_power, 0)",
}

// ValidSortKey reports whether key is accepted by List.
func ValidSortKey(key string) bool {
	_, ok := sortColumns[key]
	return ok
}

// ListOptions filters, sorts and pages List.
type ListOptions struct {
	SortBy string
	// Order is "asc" or "desc"; anything else sorts ascending.
	Order       string
	Sport       string
	DateFrom    *time.Time
	DateTo      *time.Time
	DistanceMin *float64
	DistanceMax *float64
	// Page is 1-based.
	Page  int
	Limit int
}

// List returns one page of activity metas and the total number matching
// the filters. Without a known sort key the newest saved activity comes first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Meta, int, error) {
	var where []string
	var args []any
	if opts.Sport != "" {
		where = append(where, "sport = ?")
		args = append(args, opts.Sport)
	}
	if opts.DateFrom != nil {
		where = append(where, "date_unix IS NOT NULL AND date_unix >= ?")
		args = append(args, unixSeconds(*opts.DateFrom))
	}
	if opts.DateTo != nil {
		where = append(where, "date_unix IS NOT NULL AND date_unix <= ?")
		args = append(args, unixSeconds(*opts.DateTo))
	}
	if opts.DistanceMin != nil {
		where = append(where, "distance_km >= ?")
		args = append(args, *opts.DistanceMin)
	}
	if opts.DistanceMax != nil {
		where = append(where, "distance_km <= ?")
		args = append(args, *opts.DistanceMax)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_meta"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting activities: %w", err)
	}

	order := "seq DESC"
	if col, ok := sortColumns[opts.SortBy]; ok {
		dir := "ASC"
		if opts.Order == "desc" {
			dir = "DESC"
		}
		order = fmt.Sprintf("%s %s, seq DESC", col, dir)
	}

	page := max(opts.Page, 1)
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	query := selectMeta + clause + " ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	metas, err := s.queryMetas(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return metas, total, nil
}

// Search returns activities whose name contains query, ignoring case.
func (s *Store) Search(ctx context.Context, query string) ([]Meta, error) {
	all, err := s.queryMetas(ctx, selectMeta+" ORDER BY seq DESC")
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := make([]Meta, 0)
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Sports returns the distinct sports of stored activities, sorted.
func (s *Store) Sports(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT sport FROM activity_meta WHERE sport <> '' ORDER BY sport`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sports := make([]string, 0)
	for rows.Next() {
		var sport string
		if err := rows.Scan(&sport); err != nil {
			return nil, err
		}
		sports = append(sports, sport)
	}
	return sports, rows.Err()
}

// Statistics summarizes all stored activities.
type Statistics struct {
	TotalActivities  int      `json:"total_activities"`
	TotalDistanceKm  float64  `json:"total_distance_km"`
	TotalDurationSec float64  `json:"total_duration_sec"`
	Sports           []string `json:"sports"`
}

// Statistics returns totals across all stored activities.
func (s *Store) Statistics(ctx context.Context) (*Statistics, error) {
	var st Statistics
	var distance, duration float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(distance_km), 0), COALESCE(SUM(duration_sec), 0)
		FROM activity_meta
	`).Scan(&st.TotalActivities, &distance, &duration)
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}
	st.TotalDistanceKm = roundTo(distance, 2)
	st.TotalDurationSec = roundTo(duration, 1)

	st.Sports, err = s.Sports(ctx)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const selectMeta = `
	SELECT id, name, date, sport, distance_km, duration_sec, avg_pace,
		avg_heart_rate, avg_cadence, avg_power, total_ascent,
		available_fields, available_iq_fields
	FROM activity_meta`

func (s *Store) queryMetas(ctx context.Context, query string, args ...any) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	out := make([]Meta, 0)
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMeta(rows *sql.Rows) (Meta, error) {
	var (
		m                Meta
		date             sql.NullString
		hr, cad, power   sql.NullInt64
		ascent           sql.NullFloat64
		fields, iqFields string
	)
	if err := rows.Scan(
		&m.ID, &m.Name, &date, &m.Sport, &m.DistanceKm, &m.DurationSec, &m.AvgPace,
		&hr, &cad, &power, &ascent, &fields, &iqFields,
	); err != nil {
		return Meta{}, err
	}
	if date.Valid {
		ts, err := fitanalysis.ParseTimestamp(date.String)
		if err != nil {
			return Meta{}, fmt.Errorf("activity %s: %w", m.ID, err)
		}
		m.Date = &ts
	}
	m.AvgHeartRate = intFromNull(hr)
	m.AvgCadence = intFromNull(cad)
	m.AvgPower = intFromNull(power)
	if ascent.Valid {
		v := ascent.Float64
		m.TotalAscent = &v
	}
	if err := json.Unmarshal([]byte(fields), &m.AvailableFields); err != nil {
		return Meta{}, fmt.Errorf("activity %s fields: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(iqFields), &m.AvailableIQFields); err != nil {
		return Meta{}, fmt.Errorf("activity %s IQ fields: %w", m.ID, err)
	}
	m.AvailableFields = nonNil(m.AvailableFields)
	m.AvailableIQFields = nonNil(m.AvailableIQFields)
	return m, nil
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// unixSeconds orders naive and zoned dates on one axis: naive wall clocks
// are stored as UTC, so they compare by wall clock.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
