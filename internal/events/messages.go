package events

// Event types.
const (
	TypeImportStarted     = "import:started"
	TypeImportProgress    = "import:progress"
	TypeImportCompleted   = "import:completed"
	TypeCollectionUpdated = "collection:updated"
)

// ImportStartedEvent is sent once a job has parsed its input.
type ImportStartedEvent struct {
	JobID        string `json:"jobId"`
	CollectionID int    `json:"collectionId"`
	Kind         string `json:"kind"`
	Items        int    `json:"items"`
}

// EventTopic scopes the event to the job.
func (e ImportStartedEvent) EventTopic() string { return e.JobID }

// ImportProgressEvent is sent after every resolved chunk and every saved batch.
type ImportProgressEvent struct {
	JobID     string  `json:"jobId"`
	Stage     string  `json:"stage"` // "resolving" or "saving"
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	Fraction  float64 `json:"fraction"`
}

// EventTopic scopes the event to the job.
func (e ImportProgressEvent) EventTopic() string { return e.JobID }

// ImportCompletedEvent is sent when a job reaches a final status.
type ImportCompletedEvent struct {
	JobID        string `json:"jobId"`
	CollectionID int    `json:"collectionId"`
	Status       string `json:"status"`
	Imported     int    `json:"imported"`
	Unmatched    int    `json:"unmatched"`
	Error        string `json:"error,omitempty"`
}

// EventTopic scopes the event to the job.
func (e ImportCompletedEvent) EventTopic() string { return e.JobID }

// CollectionUpdatedEvent is sent when entries were added to a collection.
type CollectionUpdatedEvent struct {
	CollectionID int `json:"collectionId"`
	EntriesAdded int `json:"entriesAdded"`
}
