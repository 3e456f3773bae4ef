package importer

import (
	"sync"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/fuzzy"
	"github.com/ramonehamilton/mtg-binder/internal/importer/decklist"
	"github.com/ramonehamilton/mtg-binder/internal/importer/resolver"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// JobStatus is the lifecycle state of an import job.
type JobStatus string

const (
	JobRunning      JobStatus = "running"
	JobNeedsMapping JobStatus = "needs_mapping"
	JobCompleted    JobStatus = "completed"
	JobFailed       JobStatus = "failed"
	JobCancelled    JobStatus = "cancelled"
)

// Final reports whether the status will not change again.
func (s JobStatus) Final() bool {
	return s != JobRunning
}

// Stage is the part of the pipeline a running job is in.
type Stage string

const (
	StageResolving Stage = "resolving"
	StageSaving    Stage = "saving"
	StageDone      Stage = "done"
)

// Result is what a finished job did.
type Result struct {
	Imported   int                       `json:"imported"`
	Entries    []*models.CollectionEntry `json:"entries"`
	Aggregated int                       `json:"aggregated"`
	Matched    int                       `json:"matched"`
	Unmatched  []*models.LineItem        `json:"unmatched"`
	Skipped    int                       `json:"skipped"`
	// Suggestions maps an unmatched item's raw index to likely card names.
	Suggestions map[int][]fuzzy.Match `json:"suggestions,omitempty"`
	// FailedBatches counts bulk-create batches that were not saved.
	FailedBatches int      `json:"failed_batches"`
	Errors        []string `json:"errors,omitempty"`
}

// Job is one asynchronous import. Read it through Snapshot. The pipeline
// works on its own copy of the parsed items; readers only ever see copies
// published under mu.
type Job struct {
	ID           string
	CollectionID int
	Kind         Kind

	mu        sync.RWMutex
	status    JobStatus
	stage     Stage
	progress  resolver.Progress
	parsed    *Parsed
	result    *Result
	err       string
	startedAt time.Time
	endedAt   time.Time

	cancel *resolver.CancelFlag
	done   chan struct{}
}

// Snapshot is a point-in-time copy of a job.
type Snapshot struct {
	ID           string            `json:"id"`
	CollectionID int               `json:"collection_id"`
	Kind         Kind              `json:"kind"`
	Status       JobStatus         `json:"status"`
	Stage        Stage             `json:"stage"`
	Progress     resolver.Progress `json:"progress"`
	Fraction     float64           `json:"fraction"`
	Parsed       *Parsed           `json:"parsed,omitempty"`
	Result       *Result           `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
}

// Snapshot copies the job state.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		ID:           j.ID,
		CollectionID: j.CollectionID,
		Kind:         j.Kind,
		Status:       j.status,
		Stage:        j.stage,
		Progress:     j.progress,
		Fraction:     j.progress.Fraction(),
		Parsed:       j.parsed,
		Result:       j.result,
		Error:        j.err,
		StartedAt:    j.startedAt,
	}
	if !j.endedAt.IsZero() {
		ended := j.endedAt
		s.EndedAt = &ended
	}
	return s
}

// Status returns the current status.
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Done is closed once the job reaches a final status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// setProgress records progress and, when parsed is non-nil, publishes it.
// parsed must not be changed by the caller afterwards.
func (j *Job) setProgress(stage Stage, p resolver.Progress, parsed *Parsed) {
	j.mu.Lock()
	j.stage = stage
	j.progress = p
	if parsed != nil {
		j.parsed = parsed
	}
	j.mu.Unlock()
}

// finish publishes the final state. Neither parsed nor result may be
// changed by the caller afterwards; a nil parsed keeps the published one.
func (j *Job) finish(status JobStatus, parsed *Parsed, result *Result, errMsg string) {
	j.mu.Lock()
	j.status = status
	j.stage = StageDone
	if parsed != nil {
		j.parsed = parsed
	}
	j.result = result
	j.err = errMsg
	j.endedAt = time.Now()
	j.mu.Unlock()
	close(j.done)
}

func (j *Job) finishedBefore(t time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.Final() && !j.endedAt.IsZero() && j.endedAt.Before(t)
}

// clone copies p and its line items. Sections point at the copied items.
func (p *Parsed) clone() *Parsed {
	if p == nil {
		return nil
	}
	out := *p
	copies := make(map[*models.LineItem]*models.LineItem, len(p.Items))
	cp := func(item *models.LineItem) *models.LineItem {
		if item == nil {
			return nil
		}
		if c, ok := copies[item]; ok {
			return c
		}
		c := *item
		copies[item] = &c
		return &c
	}

	out.Items = make([]*models.LineItem, len(p.Items))
	for i, item := range p.Items {
		out.Items[i] = cp(item)
	}
	if p.Sections != nil {
		out.Sections = make([]*decklist.Section, len(p.Sections))
		for i, sec := range p.Sections {
			if sec == nil {
				continue
			}
			cards := make([]*models.LineItem, len(sec.Cards))
			for k, item := range sec.Cards {
				cards[k] = cp(item)
			}
			out.Sections[i] = &decklist.Section{Name: sec.Name, Cards: cards}
		}
	}
	return &out
}
