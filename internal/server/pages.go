package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/automateda/internal/analysis"
	"github.com/KaramelBytes/automateda/internal/dataset"
	"github.com/KaramelBytes/automateda/internal/score"
)

var templateFuncs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"num": func(v float64) string { return fmt.Sprintf("%.4g", v) },
	"r3":  func(v float64) string { return fmt.Sprintf("%.3f", v) },
}

type indexData struct {
	Examples []dataset.Example
	Error    string
}

type datasetData struct {
	Dataset    *dataset.Dataset
	Notice     string
	Columns    []string
	Preview    [][]string
	Rows       int
	Target     string
	TargetType string
	Exclude    map[string]bool
	Show       bool
	Result     *score.Result
	Chart      template.HTML
	Warning    string
	Error      string
}

type reportData struct {
	Dataset *dataset.Dataset
	Report  *analysis.Report
	Pairs   []analysis.PairCorr
}

func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", indexData{Examples: dataset.Examples})
}

// uploadPage ingests the form upload and redirects to its preview.
func (s *Server) uploadPage(w http.ResponseWriter, r *http.Request) {
	d, status, err := s.ingestUpload(w, r)
	if err != nil {
		s.render(w, status, "index.html", indexData{Examples: dataset.Examples, Error: err.Error()})
		return
	}
	http.Redirect(w, r, "/datasets/"+d.ID, http.StatusSeeOther)
}

func (s *Server) examplePage(w http.ResponseWriter, r *http.Request) {
	d, err := dataset.LoadExample(s.config.ExamplesDir, mux.Vars(r)["key"], s.config.TableOptions)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dataset.ErrUnknownExample) || errors.Is(err, dataset.ErrExampleNotInstalled) {
			status = http.StatusNotFound
		}
		log.Warn().Err(err).Msg("Example load failed")
		s.render(w, status, "index.html", indexData{Examples: dataset.Examples, Error: err.Error()})
		return
	}
	s.keep(d)
	http.Redirect(w, r, "/datasets/"+d.ID, http.StatusSeeOther)
}

// datasetPage shows the preview and, when a target is chosen, the ranking
// controls. Scoring runs only with show=1; otherwise only the drop counts are
// computed so the warning still appears.
func (s *Server) datasetPage(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.render(w, http.StatusNotFound, "index.html", indexData{Examples: dataset.Examples, Error: "Dataset not found or expired; upload it again."})
		return
	}
	q := r.URL.Query()
	data := datasetData{
		Dataset:    d,
		Notice:     notice(d),
		Columns:    d.Table.Names(),
		Rows:       d.Table.Rows(),
		Target:     q.Get("target"),
		TargetType: "numeric",
		Exclude:    map[string]bool{},
		Show:       q.Get("show") == "1",
	}
	head := d.Table.Head(s.config.PreviewRows)
	for i := 0; i < head.Rows(); i++ {
		data.Preview = append(data.Preview, head.Record(i))
	}
	for _, name := range q["exclude"] {
		data.Exclude[name] = true
	}

	if data.Target != "" {
		req := score.Request{Target: data.Target, TargetType: score.Continuous, Exclude: q["exclude"]}
		if raw := q.Get("target_type"); raw != "" {
			tt, err := score.ParseTargetType(raw)
			if err != nil {
				data.Error = err.Error()
			}
			req.TargetType = tt
		}
		if req.TargetType == score.Discrete {
			data.TargetType = "categorical"
		}
		if data.Error == "" {
			var res *score.Result
			if data.Show {
				res, err = s.rank(d, req)
			} else {
				res, err = score.Prepare(d.Table, req)
			}
			if err != nil {
				data.Error = humanize(err)
			} else {
				data.Result = res
				if res.DroppedRows > 0 {
					data.Warning = fmt.Sprintf("Removed %d rows with missing values.", res.DroppedRows)
				}
				data.Chart = barChart(res.Scores)
			}
		}
	}
	s.render(w, http.StatusOK, "dataset.html", data)
}

func (s *Server) reportPage(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.render(w, http.StatusNotFound, "index.html", indexData{Examples: dataset.Examples, Error: "Dataset not found or expired; upload it again."})
		return
	}
	rep := analysis.Profile(d.Table, analysis.ExplorativeOptions())
	rep.Name = d.Name
	s.render(w, http.StatusOK, "report.html", reportData{Dataset: d, Report: rep, Pairs: rep.Corr.TopPairs(10)})
}

// render executes into a buffer so template errors never emit half a page.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func notice(d *dataset.Dataset) string {
	if d.Source == dataset.SourceExample {
		return d.Name + " selected."
	}
	return "File uploaded successfully."
}

func humanize(err error) string {
	switch {
	case errors.Is(err, score.ErrInvalidTarget):
		return "Pick a target column that exists; a Numeric target must hold numbers (" + err.Error() + ")."
	case errors.Is(err, score.ErrEmptyFeatureSet):
		return "Every variable is excluded; keep at least one to rank."
	case errors.Is(err, score.ErrEmptyAfterCleaning):
		return "No rows are left after removing missing values; exclude sparse variables and try again."
	default:
		return err.Error()
	}
}
