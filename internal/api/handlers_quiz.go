package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/quizzer/internal/export"
	"github.com/dgallion1/quizzer/internal/ingest"
	"github.com/dgallion1/quizzer/internal/pipeline"
)

type submitRequest struct {
	Input    string `json:"input"`
	Filename string `json:"filename"`
}

// handleSubmit accepts a multipart upload in "file" or a JSON body whose
// "input" is a base64 data URI, and queues a run for it.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for form overhead and base64 expansion headroom.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*4/3+1024*1024)

	var source, filename string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !strings.HasPrefix(req.Input, "data:") {
			jsonError(w, "input must be a base64 data URI", http.StatusBadRequest)
			return
		}
		source = req.Input
		filename = sanitizeFilename(req.Filename)
	case "multipart/form-data":
		var status int
		var err error
		source, filename, status, err = s.readUpload(r)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
	default:
		jsonError(w, "content type must be multipart/form-data or application/json", http.StatusUnsupportedMediaType)
		return
	}

	run := pipeline.NewRun(source, filename)
	if err := s.orchestrator.Submit(run); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("run queued", "run_id", run.ID, "filename", filename)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":     run.ID,
		"status":     pipeline.StatusQueued,
		"poll_url":   fmt.Sprintf("/api/quiz/%s/status", run.ID),
		"result_url": fmt.Sprintf("/api/quiz/%s/result", run.ID),
	})
}

func (s *Server) readUpload(r *http.Request) (source, filename string, status int, err error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", "", http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	filename = sanitizeFilename(header.Filename)
	mimeType := ingest.MIMEForFile(filename)
	if mimeType == "" {
		return "", "", http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", "", http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", "", http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return ingest.DataURI(mimeType, data), filename, 0, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run.Snapshot())
}

// handleResult streams the run's questions as CSV once it has finished.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	snap := run.Snapshot()
	if !snap.Status.Done() {
		jsonError(w, fmt.Sprintf("run is %s", snap.Status), http.StatusConflict)
		return
	}

	cands := run.Candidates()
	if len(cands) == 0 {
		jsonError(w, export.ErrNothingToExport.Error(), http.StatusNotFound)
		return
	}
	pipeline.SortCandidates(cands)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz_%s.csv"`, snap.ID))
	w.Header().Set("X-Run-Status", string(snap.Status))
	if err := export.Write(w, cands); err != nil {
		s.log.Error("write csv", "run_id", snap.ID, "error", err)
	}
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	run, err := s.orchestrator.Retry(chi.URLParam(r, "runID"))
	switch {
	case errors.Is(err, pipeline.ErrRunNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, pipeline.ErrRunNotRetryable):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":   run.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/quiz/%s/status", run.ID),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
