package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"recordconv/internal/core"
	"recordconv/internal/extract"
	"recordconv/internal/logging"
	"recordconv/internal/render"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleConvert runs a conversion synchronously and returns the converted
// document. Input is a multipart upload (field "file") or the raw request
// body; format selection via "from", "to" and "delimiter" parameters.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	in, name, size, err := s.openInput(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer in.Close()

	req, err := s.convertRequest(r, name, size)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	// Buffer the document so a mid-stream failure still gets a clean error
	// response instead of a truncated body.
	var out bytes.Buffer
	res, err := s.service.Convert(r.Context(), in, &out, req)
	if err != nil {
		s.respondError(w, r, err, httpStatus(err))
		return
	}

	logging.FromContext(r.Context()).Info("conversion complete",
		"from", req.From, "to", req.To,
		"records", res.Records, "warnings", len(res.Warnings),
	)

	def, _ := render.Get(req.To)
	w.Header().Set("Content-Type", def.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename=%q`, outputName(req.FileName, req.To)))
	w.Header().Set("X-Record-Count", strconv.Itoa(res.Records))
	for _, warn := range res.Warnings {
		w.Header().Add("X-Conversion-Warning", warn)
	}
	w.Write(out.Bytes())
}

// handleStartJob begins an asynchronous conversion and returns the job ID.
func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	in, name, _, err := s.openInput(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("file too large or unreadable: %w", err), http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		s.respondError(w, r, errors.New("empty file"), http.StatusBadRequest)
		return
	}

	req, err := s.convertRequest(r, name, int64(len(data)))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	jobID, err := s.service.StartJob(r.Context(), req, data)
	if err != nil {
		s.respondError(w, r, err, httpStatus(err))
		return
	}

	logging.WithFields(r.Context(),
		"job_id", jobID,
		"from", req.From,
		"to", req.To,
	).Info("conversion job started", "bytes", len(data))

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"jobId": jobID})
}

// handleJobProgress returns the current job progress. Clients that accept
// text/event-stream get a live SSE feed instead of a one-shot snapshot.
func (s *Server) handleJobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.streamProgress(w, r, jobID)
		return
	}

	progress, err := s.service.JobProgress(jobID)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, struct {
		core.ConvertProgress
		Percent int `json:"percent"`
	}{progress, progress.Percent()})
}

// streamProgress streams job progress via Server-Sent Events.
// Supports resumption via lastEventId query parameter for reconnection.
func (s *Server) streamProgress(w http.ResponseWriter, r *http.Request, jobID string) {
	// The event ID is the progress percentage, allowing clients to skip
	// already-received events after reconnection
	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	progressCh, err := s.service.SubscribeProgress(jobID)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed - job finished
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			currentPercent := progress.Percent()

			// Skip events that were already sent (for resumption)
			if lastEventIDStr != "" && currentPercent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", currentPercent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleJobResult blocks until the job completes and returns the converted
// document, or the mapped error if the job failed.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	res, err := s.service.JobResult(jobID)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	if res.Error != "" {
		s.respondError(w, r, errors.New(res.Error), httpStatus(errors.New(res.Error)))
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename=%q`, outputName(res.FileName, res.To)))
	w.Header().Set("X-Record-Count", strconv.Itoa(res.Records))
	for _, warn := range res.Warnings {
		w.Header().Add("X-Conversion-Warning", warn)
	}
	w.Write(res.Output)
}

// handleCancelJob cancels an in-progress conversion job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := s.service.CancelJob(jobID); err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"status": "cancelled"})
}

// formatInfo describes one registered format for API discovery.
type formatInfo struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	ContentType string `json:"contentType,omitempty"`
}

// handleFormats lists the registered input and output formats.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	inputs := make([]formatInfo, 0)
	for _, def := range extract.All() {
		inputs = append(inputs, formatInfo{Key: def.Key, Label: def.Label})
	}

	outputs := make([]formatInfo, 0)
	for _, def := range render.All() {
		outputs = append(outputs, formatInfo{Key: def.Key, Label: def.Label, ContentType: def.ContentType})
	}

	writeJSON(w, map[string][]formatInfo{
		"input":  inputs,
		"output": outputs,
	})
}

// handleHistory returns recent conversions, newest first.
// Without a database configured this is an empty list, not an error.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Convert.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.service.History().Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"enabled": s.service.History().Enabled(),
		"entries": entries,
	})
}

// openInput returns the input stream for a conversion request: the "file"
// field of a multipart upload, or the raw request body. The stream is capped
// at the configured maximum file size either way.
func (s *Server) openInput(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, int64, error) {
	maxSize := s.cfg.Convert.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			return nil, "", 0, errors.New("file too large or invalid form")
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", 0, errors.New("no file provided")
		}
		return file, header.Filename, header.Size, nil
	}

	size := r.ContentLength
	if size < 0 {
		size = 0
	}
	return r.Body, r.URL.Query().Get("filename"), size, nil
}

// convertRequest builds a ConvertRequest from request parameters.
func (s *Server) convertRequest(r *http.Request, fileName string, size int64) (core.ConvertRequest, error) {
	from := r.FormValue("from")
	if from == "" {
		from = "csv"
	}
	to := r.FormValue("to")
	if to == "" {
		to = "json"
	}

	delimiter, err := parseDelimiter(r.FormValue("delimiter"))
	if err != nil {
		return core.ConvertRequest{}, err
	}

	return core.ConvertRequest{
		From:      from,
		To:        to,
		Delimiter: delimiter,
		FileName:  fileName,
		Size:      size,
	}, nil
}

// parseDelimiter interprets the delimiter parameter.
// Empty selects the format default; "tab" and "\t" select a tab.
func parseDelimiter(v string) (rune, error) {
	switch v {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}

	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character", v)
	}
	d, _ := utf8.DecodeRuneInString(v)
	return d, nil
}

// outputName derives the download file name from the input name and the
// output format key.
func outputName(fileName, format string) string {
	if fileName == "" {
		return "converted." + format
	}
	return strings.TrimSuffix(fileName, filepath.Ext(fileName)) + "." + format
}
