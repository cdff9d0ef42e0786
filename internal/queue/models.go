package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusClaimed        Status = "claimed"
	StatusDownloading    Status = "downloading"
	StatusPostprocessing Status = "postprocessing"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusClaimed,
	StatusDownloading,
	StatusPostprocessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// activeStatuses are covered by the partial unique index.
var activeStatuses = []Status{StatusQueued, StatusClaimed, StatusDownloading, StatusPostprocessing}

// runningStatuses have a worker owner.
var runningStatuses = []Status{StatusClaimed, StatusDownloading, StatusPostprocessing}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ActiveStatuses returns the statuses that hold a canonical key.
func ActiveStatuses() []Status {
	return append([]Status(nil), activeStatuses...)
}

// RunningStatuses returns the statuses owned by a worker.
func RunningStatuses() []Status {
	return append([]Status(nil), runningStatuses...)
}

// ParseStatus converts user input into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsActive reports whether the canonical key is held by this status.
func (s Status) IsActive() bool {
	_, ok := statusSet[s]
	return ok && !s.IsTerminal()
}

// rank positions a status on the forward path. Terminal states share the
// highest rank.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusClaimed:
		return 1
	case StatusDownloading:
		return 2
	case StatusPostprocessing:
		return 3
	default:
		return 4
	}
}

// canTransition reports whether from → to is a forward step. Failed and
// cancelled are reachable from any active state; completed only from
// postprocessing; every other step advances by exactly one.
func canTransition(from, to Status) bool {
	if !from.IsActive() {
		return false
	}
	switch to {
	case StatusFailed, StatusCancelled:
		return true
	case StatusCompleted:
		return from == StatusPostprocessing
	case StatusQueued:
		return false
	}
	return to.rank() == from.rank()+1
}

// Origin names the ingestion path that created a job.
type Origin string

const (
	OriginSearch    Origin = "search"
	OriginImport    Origin = "import"
	OriginScheduler Origin = "scheduler"
	OriginDirect    Origin = "direct"
	OriginSpotify   Origin = "spotify"
	OriginAlbum     Origin = "album"
	OriginRetry     Origin = "retry"
)

// Failure reasons recorded by the store itself.
const (
	ReasonRetriesExhausted         = "retries_exhausted"
	ReasonOrphanedRetriesExhausted = "orphaned_retries_exhausted"
	ReasonCancelled                = "cancelled"
)

// Job is a persisted acquisition job.
type Job struct {
	ID              int64
	CanonicalKey    string
	Origin          Origin
	MediaKind       MediaKind
	Payload         Payload
	Status          Status
	Attempts        int
	MaxAttempts     int
	LastError       string
	FailureReason   string
	OutputPath      string
	WorkerID        string
	CancelRequested bool
	ReadyAt         *time.Time
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClaimedAt       *time.Time
	FinishedAt      *time.Time
}

// Label is a short human description used in logs and tables.
func (j *Job) Label() string {
	if j == nil {
		return ""
	}
	switch v := j.Payload.Variant.(type) {
	case *MusicPayload:
		return fmt.Sprintf("%s - %s", v.Pair.ArtistCredit, v.Pair.Title)
	case *VideoPayload:
		if v.Title != "" {
			return v.Title
		}
		return v.URL
	}
	return j.CanonicalKey
}

// Event is one row of a job's state history.
type Event struct {
	ID        int64
	JobID     int64
	From      Status
	To        Status
	Detail    string
	CreatedAt time.Time
}

// Snapshot is the last persisted view of a watched collection.
type Snapshot struct {
	CollectionID string
	ContentHash  string
	ItemIDs      []string
	UpdatedAt    time.Time
}

// BindingFailure is an intent that could not be bound, kept for operators.
type BindingFailure struct {
	ID        int64
	BatchID   string
	Origin    Origin
	Artist    string
	Title     string
	Album     string
	Reason    string
	Detail    string
	CreatedAt time.Time
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated job counts per lifecycle group.
type HealthSummary struct {
	Total     int
	Queued    int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// ReclaimResult counts jobs touched by a reclaim or recovery pass.
type ReclaimResult struct {
	Requeued int
	Failed   int
	JobIDs   []int64
}
