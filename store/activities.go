package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ttu-dot/fitanalysis"
)

// Meta is the list view of a stored activity.
type Meta struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	Date              *fitanalysis.Timestamp `json:"date"`
	Sport             string                 `json:"sport"`
	DistanceKm        float64                `json:"distance_km"`
	DurationSec       float64                `json:"duration_sec"`
	AvgPace           string                 `json:"avg_pace"`
	AvgHeartRate      *int                   `json:"avg_heart_rate"`
	AvgCadence        *int                   `json:"avg_cadence"`
	AvgPower          *int                   `json:"avg_power"`
	TotalAscent       *float64               `json:"total_ascent"`
	AvailableFields   []string               `json:"available_fields"`
	AvailableIQFields []string               `json:"available_iq_fields"`
}

// MetaFromActivity derives the list view of a.
func MetaFromActivity(a *fitanalysis.Activity) Meta {
	s := a.Session
	m := Meta{
		ID:                a.ID,
		Name:              a.Name,
		Sport:             s.Sport,
		AvgPace:           fitanalysis.NoPace,
		AvgHeartRate:      s.AvgHeartRate,
		AvgCadence:        s.AvgCadence,
		AvgPower:          s.AvgPower,
		TotalAscent:       s.TotalAscent,
		AvailableFields:   nonNil(a.AvailableFields),
		AvailableIQFields: nonNil(a.AvailableIQFields),
	}
	if m.Sport == "" {
		m.Sport = "running"
	}
	if s.StartTime != nil {
		m.Date = s.StartTime
	} else if !a.CreatedAt.IsZero() {
		m.Date = a.CreatedAt.Ptr()
	}
	if s.AvgSpeed != nil && *s.AvgSpeed > 0 {
		m.AvgPace = fitanalysis.SpeedToPace(*s.AvgSpeed)
	}
	if s.TotalDistance != nil {
		m.DistanceKm = roundTo(*s.TotalDistance/1000, 2)
	}
	switch {
	case s.TotalElapsedTime != nil && *s.TotalElapsedTime != 0:
		m.DurationSec = roundTo(*s.TotalElapsedTime, 1)
	case s.TotalTimerTime != nil:
		m.DurationSec = roundTo(*s.TotalTimerTime, 1)
	}
	return m
}

// Save inserts or replaces a and its meta row. An updated activity keeps
// its position in the default list order.
func (s *Store) Save(ctx context.Context, a *fitanalysis.Activity) (*Meta, error) {
	if a == nil || a.ID == "" {
		return nil, errors.New("activity id is required")
	}
	doc, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encoding activity: %w", err)
	}
	meta := MetaFromActivity(a)
	fields, err := json.Marshal(meta.AvailableFields)
	if err != nil {
		return nil, err
	}
	iqFields, err := json.Marshal(meta.AvailableIQFields)
	if err != nil {
		return nil, err
	}

	var date, dateUnix, paceSec any
	if meta.Date != nil {
		date = meta.Date.String()
		dateUnix = unixSeconds(meta.Date.Time)
	}
	if speed := a.Session.AvgSpeed; speed != nil && *speed > 0 {
		paceSec = 1000 / *speed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activities (id, document, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			updated_at = CURRENT_TIMESTAMP
	`, a.ID, string(doc)); err != nil {
		return nil, fmt.Errorf("saving activity: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activity_meta (
			id, name, date, date_unix, sport, distance_km, duration_sec,
			avg_pace, pace_sec, avg_heart_rate, avg_cadence, avg_power,
			total_ascent, available_fields, available_iq_fields
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			date = excluded.date,
			date_unix = excluded.date_unix,
			sport = excluded.sport,
			distance_km = excluded.distance_km,
			duration_sec = excluded.duration_sec,
			avg_pace = excluded.avg_pace,
			pace_sec = excluded.pace_sec,
			avg_heart_rate = excluded.avg_heart_rate,
			avg_cadence = excluded.avg_cadence,
			avg_power = excluded.avg_power,
			total_ascent = excluded.total_ascent,
			available_fields = excluded.available_fields,
			available_iq_fields = excluded.available_iq_fields
	`,
		meta.ID, meta.Name, date, dateUnix, meta.Sport, meta.DistanceKm, meta.DurationSec,
		meta.AvgPace, paceSec, nullInt(meta.AvgHeartRate), nullInt(meta.AvgCadence), nullInt(meta.AvgPower),
		nullFloat(meta.TotalAscent), string(fields), string(iqFields),
	); err != nil {
		return nil, fmt.Errorf("saving activity meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.log.Debug("activity saved", zap.String("activity_id", a.ID), zap.Int("records", len(a.Records)))
	return &meta, nil
}

// Get loads an activity by id.
func (s *Store) Get(ctx context.Context, id string) (*fitanalysis.Activity, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM activities WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	var a fitanalysis.Activity
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("decoding activity %s: %w", id, err)
	}
	return &a, nil
}

// GetMany loads activities in the order given, skipping ids that are
// missing or unreadable.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]*fitanalysis.Activity, error) {
	out := make([]*fitanalysis.Activity, 0, len(ids))
	for _, id := range ids {
		a, err := s.Get(ctx, id)
		if errors.Is(err, ErrActivityNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("skipping unreadable activity", zap.String("activity_id", id), zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Delete removes an activity. A missing id gives ErrActivityNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_meta WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting activity %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting activity %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrActivityNotFound
	}
	return tx.Commit()
}

// DeleteAll removes every activity and returns how many were removed.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_meta`).Scan(&n); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_meta`); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM activities`); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Info("all activities deleted", zap.Int("count", n))
	return n, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.RoundToEven(v*p) / p
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
