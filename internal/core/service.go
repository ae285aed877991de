package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"recordconv/internal/extract"
	"recordconv/internal/pipeline"
	"recordconv/internal/render"
)

// JobTimeout is the maximum duration for a conversion job.
var JobTimeout = 10 * time.Minute

// JobRetention is how long a finished job stays queryable before cleanup.
var JobRetention = 5 * time.Minute

// MaxFileSize is the maximum allowed input size (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

// progressNotifyEvery throttles listener fan-out to one update per N records.
const progressNotifyEvery = 100

// ConvertRequest describes one conversion.
type ConvertRequest struct {
	From      string // input format key
	To        string // output format key
	Delimiter rune   // delimited input only; zero means comma
	FileName  string // original file name, for history and progress
	Size      int64  // total input bytes when known
}

// Service provides the core business logic for conversion operations.
type Service struct {
	history *History
	limiter *ConvertLimiter
	log     *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*activeJob
}

type activeJob struct {
	ID         string
	From       string
	To         string
	FileName   string
	Cancel     context.CancelFunc
	Progress   ConvertProgress
	Result     *ConvertResult
	Done       chan struct{}
	Listeners  []chan ConvertProgress
	ListenerMu sync.Mutex

	// Set under ListenerMu once the job finished and its listener channels
	// were closed; late subscribers get a snapshot and a closed channel
	// instead of one nobody will ever close.
	listenersClosed bool

	output bytes.Buffer
}

// NewService creates a new Service instance. history may be disabled (nil
// pool) and log may be nil.
func NewService(history *History, limiter *ConvertLimiter, log *slog.Logger) *Service {
	if history == nil {
		history = NewHistory(nil)
	}
	if limiter == nil {
		limiter = NewConvertLimiter(0, 0)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		history: history,
		limiter: limiter,
		log:     log,
		jobs:    make(map[string]*activeJob),
	}
}

// History returns the conversion history store.
func (s *Service) History() *History { return s.history }

// Limiter returns the concurrency limiter, for status and shutdown drain.
func (s *Service) Limiter() *ConvertLimiter { return s.limiter }

// Convert runs a conversion synchronously, writing the output document to w.
// It holds a limiter slot for the duration and records the conversion in
// history when enabled.
func (s *Service) Convert(ctx context.Context, r io.Reader, w io.Writer, req ConvertRequest) (*pipeline.Result, error) {
	if req.Size > MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (limit %d)", req.Size, MaxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	jobID := uuid.New().String()
	res, err := pipeline.Convert(ctx, r, w, pipeline.Options{
		From:      req.From,
		To:        req.To,
		Delimiter: req.Delimiter,
		Size:      req.Size,
	})

	s.recordHistory(jobID, req, res, err)
	return res, err
}

// StartJob begins an asynchronous conversion of data.
// Returns the job ID immediately; use SubscribeProgress for updates and
// JobResult for the output document.
func (s *Service) StartJob(ctx context.Context, req ConvertRequest, data []byte) (string, error) {
	// Reject unknown formats up front so the caller gets a synchronous error
	// instead of a failed job.
	if _, ok := extract.Get(req.From); !ok {
		return "", fmt.Errorf("unknown input format: %s", req.From)
	}
	if _, ok := render.Get(req.To); !ok {
		return "", fmt.Errorf("unknown output format: %s", req.To)
	}
	if int64(len(data)) > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (limit %d)", len(data), MaxFileSize)
	}

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithTimeout(context.Background(), JobTimeout)

	job := &activeJob{
		ID:       jobID,
		From:     req.From,
		To:       req.To,
		FileName: req.FileName,
		Cancel:   cancel,
		Progress: ConvertProgress{
			JobID:      jobID,
			From:       req.From,
			To:         req.To,
			Phase:      PhaseStarting,
			FileName:   req.FileName,
			BytesTotal: int64(len(data)),
		},
		Done:      make(chan struct{}),
		Listeners: make([]chan ConvertProgress, 0),
	}

	s.mu.Lock()
	s.jobs[jobID] = job
	s.mu.Unlock()

	req.Size = int64(len(data))
	go s.processJob(jobCtx, job, req, data)

	return jobID, nil
}

// processJob runs one conversion job to completion.
func (s *Service) processJob(ctx context.Context, job *activeJob, req ConvertRequest, data []byte) {
	startTime := time.Now()

	defer func() {
		job.closeListeners()
		close(job.Done)
		s.cleanup(job.ID, JobRetention)
	}()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.failJob(ctx, job, req, nil, err, startTime)
		return
	}
	defer s.limiter.Release()

	job.updateProgress(func(p *ConvertProgress) { p.Phase = PhaseConverting })
	job.notifyProgress()

	lastNotified := 0
	res, err := pipeline.Convert(ctx, bytes.NewReader(data), &job.output, pipeline.Options{
		From:      req.From,
		To:        req.To,
		Delimiter: req.Delimiter,
		Size:      req.Size,
		Progress: func(records int, bytesRead int64, _ int) {
			job.updateProgress(func(p *ConvertProgress) {
				p.Records = records
				p.BytesRead = bytesRead
			})
			if records-lastNotified >= progressNotifyEvery {
				lastNotified = records
				job.notifyProgress()
			}
		},
	})
	if err != nil {
		s.failJob(ctx, job, req, res, err, startTime)
		return
	}

	def, _ := render.Get(req.To)
	job.updateProgress(func(p *ConvertProgress) {
		p.Phase = PhaseComplete
		p.Records = res.Records
	})
	job.notifyProgress()

	job.Result = &ConvertResult{
		JobID:       job.ID,
		From:        req.From,
		To:          req.To,
		FileName:    req.FileName,
		ContentType: def.ContentType,
		Records:     res.Records,
		Warnings:    res.Warnings,
		Duration:    time.Since(startTime),
		Output:      job.output.Bytes(),
	}

	for _, w := range res.Warnings {
		s.log.Warn("conversion warning", "jobId", job.ID, "warning", w)
	}

	s.recordJob(job.Result)
}

// failJob marks a job failed or cancelled and records the outcome.
func (s *Service) failJob(ctx context.Context, job *activeJob, req ConvertRequest, res *pipeline.Result, err error, startTime time.Time) {
	phase := PhaseFailed
	if errors.Is(err, context.Canceled) {
		phase = PhaseCancelled
	}

	job.updateProgress(func(p *ConvertProgress) {
		p.Phase = phase
		p.Error = err.Error()
	})
	job.notifyProgress()

	result := &ConvertResult{
		JobID:    job.ID,
		From:     req.From,
		To:       req.To,
		FileName: req.FileName,
		Duration: time.Since(startTime),
		Error:    err.Error(),
	}
	if res != nil {
		result.Records = res.Records
		result.Warnings = res.Warnings
	}
	job.Result = result

	s.log.Error("conversion failed", "jobId", job.ID, "phase", phase, "error", err)
	s.recordJob(result)
}

// recordJob persists a finished job, logging instead of failing on error.
func (s *Service) recordJob(res *ConvertResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.history.Record(ctx, res); err != nil {
		s.log.Warn("record conversion history", "jobId", res.JobID, "error", err)
	}
}

// recordHistory persists a synchronous conversion under a fresh job ID.
func (s *Service) recordHistory(jobID string, req ConvertRequest, res *pipeline.Result, convErr error) {
	entry := &ConvertResult{
		JobID:    jobID,
		From:     req.From,
		To:       req.To,
		FileName: req.FileName,
	}
	if res != nil {
		entry.Records = res.Records
		entry.Warnings = res.Warnings
		entry.Duration = res.Duration
	}
	if convErr != nil {
		entry.Error = convErr.Error()
	}
	s.recordJob(entry)
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the job completes.
func (s *Service) SubscribeProgress(jobID string) (<-chan ConvertProgress, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	ch := make(chan ConvertProgress, 10)

	job.ListenerMu.Lock()
	if job.listenersClosed {
		// Job already finished; deliver the final snapshot and close.
		ch <- job.Progress
		close(ch)
		job.ListenerMu.Unlock()
		return ch, nil
	}
	job.Listeners = append(job.Listeners, ch)
	// Send current progress immediately
	select {
	case ch <- job.Progress:
	default:
	}
	job.ListenerMu.Unlock()

	return ch, nil
}

// CancelJob cancels an in-progress conversion job.
func (s *Service) CancelJob(jobID string) error {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.Cancel()
	return nil
}

// JobResult returns the result of a conversion job.
// Blocks until the job completes if still in progress.
func (s *Service) JobResult(jobID string) (*ConvertResult, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	<-job.Done

	return job.Result, nil
}

// JobProgress returns the current progress without blocking.
func (s *Service) JobProgress(jobID string) (ConvertProgress, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return ConvertProgress{}, fmt.Errorf("job not found: %s", jobID)
	}

	return job.snapshotProgress(), nil
}

// updateProgress mutates the progress snapshot under ListenerMu. The job
// goroutine writes progress while handler goroutines read it; all access
// goes through ListenerMu.
func (job *activeJob) updateProgress(fn func(p *ConvertProgress)) {
	job.ListenerMu.Lock()
	fn(&job.Progress)
	job.ListenerMu.Unlock()
}

// snapshotProgress returns a copy of the current progress.
func (job *activeJob) snapshotProgress() ConvertProgress {
	job.ListenerMu.Lock()
	defer job.ListenerMu.Unlock()
	return job.Progress
}

// notifyProgress sends progress updates to all listeners.
func (job *activeJob) notifyProgress() {
	job.ListenerMu.Lock()
	defer job.ListenerMu.Unlock()

	for _, ch := range job.Listeners {
		select {
		case ch <- job.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners closes all listener channels.
func (job *activeJob) closeListeners() {
	job.ListenerMu.Lock()
	defer job.ListenerMu.Unlock()

	for _, ch := range job.Listeners {
		close(ch)
	}
	job.Listeners = nil
	job.listenersClosed = true
}

// cleanup removes the job from tracking after a delay.
func (s *Service) cleanup(jobID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
	})
}
