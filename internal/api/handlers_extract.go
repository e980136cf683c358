package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dgallion1/storysignals/internal/extract"
	"github.com/dgallion1/storysignals/internal/parser"
	"github.com/dgallion1/storysignals/internal/pipeline"
)

// handleExtract runs a synchronous extraction over a JSON narrative.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	// Leave room for the JSON envelope around the narrative.
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxNarrativeBytes)+4096)

	var in extract.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(in.Narrative) > s.cfg.MaxNarrativeBytes {
		jsonError(w, fmt.Sprintf("narrative exceeds max size (%d bytes)", s.cfg.MaxNarrativeBytes), http.StatusRequestEntityTooLarge)
		return
	}

	writeJSON(w, http.StatusOK, s.extractor.Extract(r.Context(), in))
}

// handleExtractFile parses one uploaded transcript and extracts from it
// synchronously.
func (s *Server) handleExtractFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := parser.Read(bytes.NewReader(data), filename, s.parserOptions(), s.recorder)
	if err != nil {
		jsonError(w, "failed to parse file: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if strings.TrimSpace(doc.Narrative) == "" {
		jsonError(w, "no narrative text found in file", http.StatusUnprocessableEntity)
		return
	}

	in := formInput(r)
	in.Narrative = doc.Narrative
	writeJSON(w, http.StatusOK, s.extractor.Extract(r.Context(), in))
}

// handleBatch queues every uploaded file as one job under a shared batch id.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	opts := formInput(r)
	batchID := uuid.NewString()

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		job := pipeline.NewJob(uuid.NewString(), batchID, filename, data)
		job.Category = opts.Category
		job.UrgencyHint = opts.UrgencyHint
		job.FillDefaults = opts.FillDefaults

		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"job_id":   job.ID,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": fmt.Sprintf("/api/extract/%s/status", job.ID),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id": batchID,
		"jobs":     results,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	jobs := s.orchestrator.Batch(batchID)
	if len(jobs) == 0 {
		jsonError(w, "batch not found", http.StatusNotFound)
		return
	}
	done := 0
	for _, j := range jobs {
		if j.Status.Done() {
			done++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"total":    len(jobs),
		"done":     done,
		"jobs":     jobs,
	})
}

func (s *Server) parserOptions() parser.Options {
	return parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext}
}

// formInput reads the optional extraction fields shared by the multipart
// endpoints.
func formInput(r *http.Request) extract.Input {
	return extract.Input{
		Category:     strings.TrimSpace(r.FormValue("category")),
		UrgencyHint:  strings.TrimSpace(r.FormValue("urgency_hint")),
		FillDefaults: r.FormValue("fill_defaults") == "true",
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
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
