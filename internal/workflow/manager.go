package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docflow/internal/config"
	"docflow/internal/document"
	"docflow/internal/lifecycle"
	"docflow/internal/logging"
)

// Runner is the slice of the document service the lanes need.
type Runner interface {
	ClaimEligible(ctx context.Context, status document.Status, limit int) ([]int64, error)
	ReleaseClaims(ctx context.Context, ids []int64) error
	CountByStatus(ctx context.Context, status document.Status) (int64, error)
	RunBatch(ctx context.Context, ids []int64, t document.Transition, actor string) lifecycle.Result
	Stats(ctx context.Context) (map[document.Status]int64, error)
}

// Lane names.
const (
	LaneSubmit  = "submit"
	LaneApprove = "approve"
)

type laneState struct {
	name       string
	transition document.Transition
	actor      string
	interval   time.Duration
	logger     *slog.Logger

	batches   int64
	processed int64
	counts    document.Counts
	lastRun   time.Time
}

// Manager coordinates the background lanes.
type Manager struct {
	cfg        *config.Config
	runner     Runner
	logger     *slog.Logger
	batchSize  int
	retryDelay time.Duration

	lanes     map[string]*laneState
	laneOrder []string

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a manager with the submit and approve lanes.
func NewManager(cfg *config.Config, runner Runner, logger *slog.Logger) *Manager {
	logger = logging.NewComponentLogger(logger, "workflow")
	m := &Manager{
		cfg:        cfg,
		runner:     runner,
		logger:     logger,
		batchSize:  cfg.Worker.BatchSize,
		retryDelay: time.Duration(cfg.Worker.ErrorRetrySeconds) * time.Second,
		lanes:      make(map[string]*laneState),
	}
	m.addLane(&laneState{
		name:       LaneSubmit,
		transition: document.Submit,
		actor:      cfg.Worker.SubmitActor,
		interval:   time.Duration(cfg.Worker.SubmitIntervalSeconds) * time.Second,
	})
	m.addLane(&laneState{
		name:       LaneApprove,
		transition: document.Approve,
		actor:      cfg.Worker.ApproveActor,
		interval:   time.Duration(cfg.Worker.ApproveIntervalSeconds) * time.Second,
	})
	return m
}

func (m *Manager) addLane(lane *laneState) {
	lane.logger = m.logger.With(
		logging.String("lane", lane.name),
		logging.String(logging.FieldActor, lane.actor),
	)
	m.lanes[lane.name] = lane
	m.laneOrder = append(m.laneOrder, lane.name)
}
