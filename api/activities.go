package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ttu-dot/fitanalysis"
	"github.com/ttu-dot/fitanalysis/store"
)

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Success    bool          `json:"success"`
	ActivityID string        `json:"activity_id"`
	Message    string        `json:"message"`
	Summary    UploadSummary `json:"summary"`
}

// UploadSummary describes a freshly imported activity.
type UploadSummary struct {
	Sport             string   `json:"sport"`
	DistanceKm        float64  `json:"distance_km"`
	Duration          string   `json:"duration"`
	RecordsCount      int      `json:"records_count"`
	LapsCount         int      `json:"laps_count"`
	AvailableFields   []string `json:"available_fields"`
	AvailableIQFields []string `json:"available_iq_fields"`
}

// ListResponse is returned by GET /api/activities.
type ListResponse struct {
	Activities []store.Meta `json:"activities"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	data, fileName, ok := s.readUpload(w, r, ".fit")
	if !ok {
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))

	a, meta, err := s.svc.Import(r.Context(), data, fileName, name)
	if err != nil {
		s.metrics.recordUpload(false)
		s.log.Warn("FIT upload failed", zap.String("file_name", fileName), zap.Error(err))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse FIT file: %v", err))
		return
	}
	s.metrics.recordUpload(true)

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:    true,
		ActivityID: a.ID,
		Message:    "activity imported",
		Summary: UploadSummary{
			Sport:             a.Session.Sport,
			DistanceKm:        meta.DistanceKm,
			Duration:          minutesClock(meta.DurationSec),
			RecordsCount:      len(a.Records),
			LapsCount:         len(a.Laps),
			AvailableFields:   meta.AvailableFields,
			AvailableIQFields: meta.AvailableIQFields,
		},
	})
}

// readUpload reads the multipart "file" part and checks its extension.
// It writes the error response itself and reports whether to continue.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, ext string) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, "", false
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return nil, "", false
	}
	defer file.Close()

	if header.Filename != "" && !strings.EqualFold(filepath.Ext(header.Filename), ext) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("only %s files are supported", ext))
		return nil, "", false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read upload")
		return nil, "", false
	}
	return data, header.Filename, true
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{
		SortBy: valueOr(q.Get("sort"), store.SortDate),
		Order:  valueOr(q.Get("order"), "desc"),
		Sport:  q.Get("sport"),
		Page:   1,
		Limit:  s.cfg.Server.DefaultPageSize,
	}

	var err error
	if opts.Page, err = intParam(q.Get("page"), opts.Page); err != nil || opts.Page < 1 {
		writeError(w, http.StatusBadRequest, "page must be an integer >= 1")
		return
	}
	if opts.Limit, err = intParam(q.Get("limit"), opts.Limit); err != nil || opts.Limit < 1 || opts.Limit > s.cfg.Server.MaxPageSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be an integer between 1 and %d", s.cfg.Server.MaxPageSize))
		return
	}
	if opts.DistanceMin, err = floatParam(q.Get("distance_min")); err != nil {
		writeError(w, http.StatusBadRequest, "distance_min must be a number")
		return
	}
	if opts.DistanceMax, err = floatParam(q.Get("distance_max")); err != nil {
		writeError(w, http.StatusBadRequest, "distance_max must be a number")
		return
	}
	// Unparseable dates are ignored.
	if d, err := time.Parse(time.DateOnly, q.Get("date_from")); err == nil {
		opts.DateFrom = &d
	}
	if d, err := time.Parse(time.DateOnly, q.Get("date_to")); err == nil {
		end := d.Add(24*time.Hour - time.Nanosecond)
		opts.DateTo = &end
	}

	metas, total, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.serverError(w, "listing activities", err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Activities: metas, Total: total, Page: opts.Page, Limit: opts.Limit})
}

func (s *Server) searchActivities(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.serverError(w, "searching activities", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": metas})
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadActivity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) activityNotes(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadActivity(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, fitanalysis.BuildActivityNotes(a, s.svc.Registry())+"\n")
}

func (s *Server) loadActivity(w http.ResponseWriter, r *http.Request) (*fitanalysis.Activity, bool) {
	a, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrActivityNotFound) {
		writeError(w, http.StatusNotFound, "activity not found")
		return nil, false
	}
	if err != nil {
		s.serverError(w, "loading activity", err)
		return nil, false
	}
	return a, true
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrActivityNotFound) {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}
	if err != nil {
		s.serverError(w, "deleting activity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "activity deleted"})
}

func (s *Server) deleteAllActivities(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DeleteAll(r.Context())
	if err != nil {
		s.serverError(w, "delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted_count": n,
		"message":       fmt.Sprintf("deleted %d activities", n),
	})
}

func (s *Server) sports(w http.ResponseWriter, r *http.Request) {
	sports, err := s.store.Sports(r.Context())
	if err != nil {
		s.serverError(w, "listing sports", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sports": sports})
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		s.serverError(w, "computing statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", msg, err))
}

// minutesClock renders whole minutes and seconds, "83:20" for 5000 s.
func minutesClock(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func floatParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
