package worker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunebind/internal/config"
	"tunebind/internal/logging"
	"tunebind/internal/notifications"
	"tunebind/internal/queue"
	"tunebind/internal/stage"
)

// Stages holds the step handlers a job passes through.
type Stages struct {
	Acquire  stage.Handler
	Organize stage.Handler
}

type pipelineStep struct {
	name    string
	status  queue.Status
	handler stage.Handler
}

// Manager coordinates job execution against the queue store.
type Manager struct {
	cfg                *config.Config
	store              *queue.Store
	root               *slog.Logger
	logger             *slog.Logger
	notifier           notifications.Service
	workerID           string
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	retry              queue.RetryPolicy

	heartbeat *HeartbeatMonitor
	steps     []pipelineStep

	mu      sync.RWMutex
	running bool
	cancel  func()
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithNotifier replaces the notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithWorkerID pins the worker identity recorded on claimed jobs.
func WithWorkerID(id string) Option {
	return func(m *Manager) {
		if id != "" {
			m.workerID = id
		}
	}
}

// WithHeartbeatInterval overrides workflow.heartbeat_interval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.heartbeat.interval = d
		}
	}
}

// WithPollInterval overrides workflow.queue_poll_interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// NewManager constructs a worker manager for the given steps.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, stages Stages, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:                cfg,
		store:              store,
		root:               logger,
		logger:             logging.NewComponentLogger(logger, "worker"),
		notifier:           notifications.NewService(cfg),
		workerID:           "worker-" + uuid.NewString(),
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		retry:              queue.RetryPolicyFromConfig(cfg.Workflow),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
	if stages.Acquire != nil {
		m.steps = append(m.steps, pipelineStep{name: "acquire", status: queue.StatusDownloading, handler: stages.Acquire})
	}
	if stages.Organize != nil {
		m.steps = append(m.steps, pipelineStep{name: "organize", status: queue.StatusPostprocessing, handler: stages.Organize})
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// configured reports whether both steps are present; completion is only
// reachable from POSTPROCESSING.
func (m *Manager) configured() bool {
	return len(m.steps) == 2
}

// WorkerID is the identity this manager claims jobs under.
func (m *Manager) WorkerID() string {
	return m.workerID
}
