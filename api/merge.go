package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ttu-dot/fitanalysis"
	"github.com/ttu-dot/fitanalysis/export"
	"github.com/ttu-dot/fitanalysis/hrmerge"
	"github.com/ttu-dot/fitanalysis/store"
)

// MergeResponse is returned by POST /api/activity/{id}/merge/hr_csv.
type MergeResponse struct {
	NewActivityID   string                `json:"new_activity_id"`
	NewActivityName string                `json:"new_activity_name"`
	Activity        *fitanalysis.Activity `json:"activity"`
}

func (s *Server) mergeHRCSV(w http.ResponseWriter, r *http.Request) {
	data, fileName, ok := s.readUpload(w, r, ".csv")
	if !ok {
		return
	}
	opts, err := hrmerge.ParseOptions(r.FormValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	merged, res, err := s.svc.MergeHRCSV(r.Context(), id, data, fileName, opts)
	switch {
	case errors.Is(err, store.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "activity not found")
		return
	case errors.Is(err, hrmerge.ErrFormat), errors.Is(err, hrmerge.ErrNoBaseTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Warn("heart rate merge failed", zap.String("activity_id", id), zap.Error(err))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to merge offline HR CSV: %v", err))
		return
	}
	s.metrics.recordMerge(res)

	writeJSON(w, http.StatusOK, MergeResponse{
		NewActivityID:   merged.ID,
		NewActivityName: merged.Name,
		Activity:        merged,
	})
}

// CompareRequest is the body of POST /api/compare.
type CompareRequest struct {
	ActivityIDs []string `json:"activity_ids"`
	Fields      []string `json:"fields"`
	// AlignBy is "time" (elapsed seconds) or "distance" (km).
	AlignBy string `json:"align_by"`
}

// CompareActivity is one activity's series in a comparison.
type CompareActivity struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Date *fitanalysis.Timestamp `json:"date"`
	Data []map[string]*float64  `json:"data"`
}

// CompareResponse is returned by POST /api/compare.
type CompareResponse struct {
	Activities []CompareActivity `json:"activities"`
	AlignBy    string            `json:"align_by"`
	XLabel     string            `json:"x_label"`
	Fields     []string          `json:"fields"`
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}
	if len(req.ActivityIDs) == 0 {
		writeError(w, http.StatusBadRequest, "activity_ids is required")
		return
	}
	if req.AlignBy != "distance" {
		req.AlignBy = "time"
	}
	if req.Fields == nil {
		req.Fields = []string{}
	}

	activities, err := s.store.GetMany(r.Context(), req.ActivityIDs)
	if err != nil {
		s.serverError(w, "loading activities", err)
		return
	}
	if len(activities) == 0 {
		writeError(w, http.StatusNotFound, "no activities found")
		return
	}

	resp := CompareResponse{
		Activities: make([]CompareActivity, 0, len(activities)),
		AlignBy:    req.AlignBy,
		XLabel:     "Time (s)",
		Fields:     req.Fields,
	}
	if req.AlignBy == "distance" {
		resp.XLabel = "Distance (km)"
	}
	for _, a := range activities {
		resp.Activities = append(resp.Activities, CompareActivity{
			ID:   a.ID,
			Name: a.Name,
			Date: a.Session.StartTime,
			Data: compareSeries(a, req.Fields, req.AlignBy),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// compareSeries maps each record to x plus the requested fields; missing
// values are null.
func compareSeries(a *fitanalysis.Activity, fields []string, alignBy string) []map[string]*float64 {
	out := make([]map[string]*float64, 0, len(a.Records))
	for _, rec := range a.Records {
		x := 0.0
		if alignBy == "distance" {
			if rec.Distance != nil {
				x = *rec.Distance / 1000
			}
		} else if rec.ElapsedTime != nil {
			x = *rec.ElapsedTime
		}
		point := map[string]*float64{"x": &x}
		for _, f := range fields {
			if v, ok := rec.Value(f); ok {
				point[f] = &v
			} else {
				point[f] = nil
			}
		}
		out = append(out, point)
	}
	return out
}

func (s *Server) exportActivity(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadActivity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	var include []string
	if raw := q.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			include = append(include, strings.TrimSpace(f))
		}
	}

	var (
		body        []byte
		err         error
		fileName    string
		contentType string
	)
	switch {
	case q.Get("mode") == "categorized":
		body, err = export.CategorizedZIP(a)
		fileName = fmt.Sprintf("activity_%s.zip", a.Name)
		contentType = "application/zip"
	case q.Get("data_type") == "laps":
		body, err = export.LapsCSV(a)
		body = export.WithBOM(body)
		fileName = fmt.Sprintf("activity_%s_laps.csv", a.Name)
		contentType = "text/csv; charset=utf-8"
	default:
		body, err = export.RecordsCSV(a, include)
		body = export.WithBOM(body)
		fileName = fmt.Sprintf("activity_%s_records.csv", a.Name)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		s.serverError(w, "exporting activity", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
