package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/fuzzy"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/importer/aggregate"
	"github.com/ramonehamilton/mtg-binder/internal/importer/resolver"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// ErrJobNotFound is returned for unknown or expired job IDs.
var ErrJobNotFound = errors.New("import job not found")

// ErrJobFinished is returned when cancelling a job that already ended.
var ErrJobFinished = errors.New("import job already finished")

// Store persists aggregated entries. repository.EntryRepository satisfies it.
type Store interface {
	BulkCreate(ctx context.Context, collectionID int, entries []models.AggregatedEntry) ([]*models.CollectionEntry, error)
}

// Config tunes the import service.
type Config struct {
	// BatchSize is the number of aggregated entries per bulk-create call.
	BatchSize int
	// MaxSuggestedItems caps how many unmatched items get "did you mean" lookups.
	MaxSuggestedItems int
	// SuggestionsPerItem caps the suggestions per unmatched item.
	SuggestionsPerItem int
	// JobTTL is how long finished jobs stay queryable.
	JobTTL time.Duration
}

// DefaultConfig returns the standard import settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:          repository.MaxBulkEntries,
		MaxSuggestedItems:  10,
		SuggestionsPerItem: 3,
		JobTTL:             time.Hour,
	}
}

// Service runs imports and keeps a registry of jobs.
type Service struct {
	resolver   *resolver.Resolver
	store      Store
	dispatcher *events.EventDispatcher
	cfg        Config

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	jobs   map[string]*Job
	closed bool
}

// NewService creates an import service. dispatcher may be nil.
func NewService(r *resolver.Resolver, store Store, dispatcher *events.EventDispatcher, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 || cfg.BatchSize > repository.MaxBulkEntries {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.SuggestionsPerItem <= 0 {
		cfg.SuggestionsPerItem = def.SuggestionsPerItem
	}
	if cfg.MaxSuggestedItems < 0 {
		cfg.MaxSuggestedItems = 0
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = def.JobTTL
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Service{
		resolver:   r,
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		ctx:        ctx,
		stop:       stop,
		jobs:       make(map[string]*Job),
	}
}

// Preview parses and resolves req without saving anything.
type Preview struct {
	*Parsed
	Summary     *resolver.Summary        `json:"summary,omitempty"`
	Entries     []models.AggregatedEntry `json:"entries"`
	Suggestions map[int][]fuzzy.Match    `json:"suggestions,omitempty"`
}

// Preview runs the parse and resolve steps synchronously and aggregates what matched.
func (s *Service) Preview(ctx context.Context, req Request) (*Preview, error) {
	parsed, err := Parse(req)
	if err != nil {
		return nil, err
	}
	p := &Preview{Parsed: parsed, Entries: []models.AggregatedEntry{}}
	if parsed.NeedsMapping {
		return p, nil
	}

	p.Summary = s.resolver.Resolve(ctx, parsed.Items, resolver.Options{})
	resolver.Skip(parsed.Items, req.Skip...)
	p.Entries = s.aggregate(parsed)
	p.Suggestions = s.suggest(ctx, parsed.Items)
	return p, nil
}

// Start parses req and, unless the CSV needs a column mapping, resolves and
// saves it in the background. Parse errors are returned directly.
func (s *Service) Start(req Request) (*Job, error) {
	parsed, err := Parse(req)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:           uuid.NewString(),
		CollectionID: req.CollectionID,
		Kind:         parsed.Kind,
		status:       JobRunning,
		stage:        StageResolving,
		parsed:       parsed.clone(),
		startedAt:    time.Now(),
		cancel:       &resolver.CancelFlag{},
		done:         make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("import service is closed")
	}
	s.pruneLocked(time.Now())
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if parsed.NeedsMapping {
		job.finish(JobNeedsMapping, nil, nil, "")
		return job, nil
	}

	s.publish(events.TypeImportStarted, events.ImportStartedEvent{
		JobID:        job.ID,
		CollectionID: job.CollectionID,
		Kind:         string(job.Kind),
		Items:        len(parsed.Items),
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job, parsed, req.Skip)
	}()
	return job, nil
}

// Get returns a job by ID.
func (s *Service) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Cancel asks a running job to stop before its next chunk.
func (s *Service) Cancel(id string) error {
	job, err := s.Get(id)
	if err != nil {
		return err
	}
	if job.Status().Final() {
		return ErrJobFinished
	}
	job.cancel.Cancel()
	return nil
}

// Close cancels running jobs and waits for them to stop.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for _, job := range s.jobs {
		job.cancel.Cancel()
	}
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
}

func (s *Service) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.cfg.JobTTL)
	for id, job := range s.jobs {
		if job.finishedBefore(cutoff) {
			delete(s.jobs, id)
		}
	}
}

// run owns parsed, which no reader sees; copies of it are published to the job.
func (s *Service) run(job *Job, parsed *Parsed, skip []int) {
	ctx := s.ctx
	items := parsed.Items

	summary := s.resolver.Resolve(ctx, items, resolver.Options{
		Cancel: job.cancel,
		Progress: func(p resolver.Progress) {
			job.setProgress(StageResolving, p, parsed.clone())
			s.publishProgress(job.ID, StageResolving, p)
		},
	})
	if summary.Cancelled || job.cancel.Cancelled() {
		s.complete(job, JobCancelled, parsed, nil, "cancelled before saving")
		return
	}

	resolver.Skip(items, skip...)
	entries := s.aggregate(parsed)

	result := &Result{
		Entries:    []*models.CollectionEntry{},
		Aggregated: len(entries),
		Unmatched:  []*models.LineItem{},
	}
	for _, item := range items {
		switch item.Status {
		case models.StatusMatched:
			result.Matched++
		case models.StatusUnmatched:
			result.Unmatched = append(result.Unmatched, item)
		case models.StatusSkipped:
			result.Skipped++
		}
	}
	if summary.LastError != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("catalog lookup: %v", summary.LastError))
	}

	saved := resolver.Progress{Total: len(entries)}
	for start := 0; start < len(entries); start += s.cfg.BatchSize {
		if job.cancel.Cancelled() {
			s.complete(job, JobCancelled, parsed, result, "cancelled while saving")
			return
		}
		end := min(start+s.cfg.BatchSize, len(entries))
		created, err := s.store.BulkCreate(ctx, job.CollectionID, entries[start:end])
		if err != nil {
			log.Printf("import %s: batch %d-%d failed: %v", job.ID, start, end, err)
			result.FailedBatches++
			result.Errors = append(result.Errors, fmt.Sprintf("entries %d-%d: %v", start, end, err))
		} else {
			result.Entries = append(result.Entries, created...)
			result.Imported += len(created)
		}
		saved.Processed = end
		saved.Matched = result.Imported
		job.setProgress(StageSaving, saved, nil)
		s.publishProgress(job.ID, StageSaving, saved)
	}

	result.Suggestions = s.suggest(ctx, items)

	status := JobCompleted
	errMsg := ""
	if len(entries) > 0 && result.Imported == 0 {
		status = JobFailed
		errMsg = "no entries could be saved"
	}
	if result.Imported > 0 {
		s.publish(events.TypeCollectionUpdated, events.CollectionUpdatedEvent{
			CollectionID: job.CollectionID,
			EntriesAdded: result.Imported,
		})
	}
	s.complete(job, status, parsed, result, errMsg)
}

func (s *Service) complete(job *Job, status JobStatus, parsed *Parsed, result *Result, errMsg string) {
	job.finish(status, parsed, result, errMsg)
	ev := events.ImportCompletedEvent{
		JobID:        job.ID,
		CollectionID: job.CollectionID,
		Status:       string(status),
		Error:        errMsg,
	}
	if result != nil {
		ev.Imported = result.Imported
		ev.Unmatched = len(result.Unmatched)
	}
	s.publish(events.TypeImportCompleted, ev)
}

func (s *Service) aggregate(parsed *Parsed) []models.AggregatedEntry {
	if parsed.Kind == KindDecklist {
		return aggregate.Decklist(parsed.Items)
	}
	return aggregate.Entries(parsed.Items)
}

// suggest looks up "did you mean" candidates for the first unmatched items.
// Failures only cost the suggestion.
func (s *Service) suggest(ctx context.Context, items []*models.LineItem) map[int][]fuzzy.Match {
	out := make(map[int][]fuzzy.Match)
	looked := 0
	for _, item := range items {
		if looked >= s.cfg.MaxSuggestedItems || ctx.Err() != nil {
			break
		}
		if item.Status != models.StatusUnmatched {
			continue
		}
		looked++
		matches, err := s.resolver.Suggest(ctx, item.Name, s.cfg.SuggestionsPerItem)
		if err != nil {
			log.Printf("import: suggestions for %q: %v", item.Name, err)
			continue
		}
		if len(matches) > 0 {
			out[item.RawIndex] = matches
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *Service) publishProgress(jobID string, stage Stage, p resolver.Progress) {
	s.publish(events.TypeImportProgress, events.ImportProgressEvent{
		JobID:     jobID,
		Stage:     string(stage),
		Processed: p.Processed,
		Total:     p.Total,
		Matched:   p.Matched,
		Unmatched: p.Unmatched,
		Fraction:  p.Fraction(),
	})
}

func (s *Service) publish(eventType string, data any) {
	s.dispatcher.Dispatch(events.NewTypedEvent(eventType, data, s.ctx))
}
