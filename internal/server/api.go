package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/automateda/internal/analysis"
	"github.com/KaramelBytes/automateda/internal/dataset"
	"github.com/KaramelBytes/automateda/internal/score"
)

// columnInfo describes one column in dataset responses.
type columnInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

type datasetResponse struct {
	*dataset.Dataset
	Rows    int          `json:"rows"`
	Columns []columnInfo `json:"columns"`
	Preview [][]string   `json:"preview"`
}

// scoreRequest is the JSON body of a ranking request. An empty target_type
// means numeric, matching the page default.
type scoreRequest struct {
	Target     string   `json:"target"`
	TargetType string   `json:"target_type"`
	Exclude    []string `json:"exclude"`
}

func (s *Server) describe(d *dataset.Dataset) datasetResponse {
	t := d.Table
	resp := datasetResponse{Dataset: d, Rows: t.Rows()}
	for _, c := range t.Columns() {
		resp.Columns = append(resp.Columns, columnInfo{Name: c.Name, Kind: c.Kind.String(), Missing: c.MissingCount()})
	}
	head := t.Head(s.config.PreviewRows)
	resp.Preview = make([][]string, head.Rows())
	for i := range resp.Preview {
		resp.Preview[i] = head.Record(i)
	}
	return resp
}

// listExamples returns the bundled dataset catalog
func (s *Server) listExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"examples": dataset.Examples})
}

// uploadDataset ingests a multipart upload and returns its description
func (s *Server) uploadDataset(w http.ResponseWriter, r *http.Request) {
	d, status, err := s.ingestUpload(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.describe(d))
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.describe(d))
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	rep := analysis.Profile(d.Table, analysis.ExplorativeOptions())
	rep.Name = d.Name
	writeJSON(w, http.StatusOK, rep)
}

// postScores ranks the dataset's features against the requested target
func (s *Server) postScores(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var body scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.rank(d, req)
	if err != nil {
		status, _ := scoreStatus(err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// healthCheck returns server health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"datasets":  s.store.Len(),
		"timestamp": time.Now(),
	})
}

func (b scoreRequest) toRequest() (score.Request, error) {
	req := score.Request{Target: b.Target, TargetType: score.Continuous, Exclude: b.Exclude}
	if b.TargetType != "" {
		tt, err := score.ParseTargetType(b.TargetType)
		if err != nil {
			return req, err
		}
		req.TargetType = tt
	}
	return req, nil
}

// rank scores d and records the outcome.
func (s *Server) rank(d *dataset.Dataset, req score.Request) (*score.Result, error) {
	start := time.Now()
	res, err := s.scorer.Score(d.Table, req)
	elapsed := time.Since(start)
	_, status := scoreStatus(err)
	s.metrics.scoreRequests.WithLabelValues(req.TargetType.String(), status).Inc()
	s.metrics.scoreDuration.Observe(elapsed.Seconds())

	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("dataset_id", d.ID).
		Str("target", req.Target).
		Str("target_type", req.TargetType.String()).
		Str("status", status).
		Dur("duration", elapsed).
		Msg("Ranked features")
	return res, err
}

// scoreStatus maps a scorer error to an HTTP status and a metric label.
func scoreStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, "ok"
	case errors.Is(err, score.ErrInvalidTarget):
		return http.StatusBadRequest, "invalid_target"
	case errors.Is(err, score.ErrEmptyFeatureSet):
		return http.StatusUnprocessableEntity, "empty_feature_set"
	case errors.Is(err, score.ErrEmptyAfterCleaning):
		return http.StatusUnprocessableEntity, "empty_after_cleaning"
	default:
		return http.StatusInternalServerError, "error"
	}
}

// ingestUpload reads the multipart "file" field into the store. The returned
// status applies when err is non-nil.
func (s *Server) ingestUpload(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, int, error) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	d, err := dataset.Decode(hdr.Filename, file, s.config.TableOptions)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	s.keep(d)
	return d, 0, nil
}

func (s *Server) keep(d *dataset.Dataset) {
	id := s.store.Put(d)
	s.metrics.datasetsLoaded.WithLabelValues(string(d.Source)).Inc()
	log.Info().
		Str("dataset_id", id).
		Str("name", d.Name).
		Str("source", string(d.Source)).
		Int("rows", d.Table.Rows()).
		Int("columns", d.Table.Width()).
		Msg("Dataset loaded")
}

// writeJSON encodes into a buffer before writing the header. An encoding
// failure is answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
