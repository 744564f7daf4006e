package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/logger"
	"golang-stock-insight/pkg/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrTaskNotFound is returned for unknown task ids.
var ErrTaskNotFound = fmt.Errorf("task not found")

// OrchestratorService schedules analysis tasks onto a bounded worker pool and
// owns their lifecycles. Nothing here survives a process restart.
type OrchestratorService interface {
	Start(ctx context.Context) error
	Stop()
	SubmitAnalysis(symbol string, market entity.Market, clientID string) (string, error)
	SubmitBatchAnalysis(symbols []string, market entity.Market, clientID string) ([]string, error)
	GetTaskStatus(taskID string) (*dto.TaskStatusResponse, error)
	ActiveTasks() int
}

// NewOrchestratorService creates the orchestrator. Workers are not started
// until Start.
func NewOrchestratorService(cfg *config.Config, analyzer AnalyzerService, broadcaster Broadcaster, log *logger.Logger) OrchestratorService {
	workers := cfg.Analyzer.MaxConcurrentTasks
	if workers <= 0 {
		workers = 4
	}
	return &orchestratorService{
		cfg:         cfg,
		analyzer:    analyzer,
		broadcaster: broadcaster,
		logger:      log,
		workers:     workers,
		queue:       make(chan *entity.AnalysisTask, workers*16),
		tasks:       make(map[string]*entity.AnalysisTask),
		inFlight:    make(map[string]string),
		cron:        cron.New(),
	}
}

type orchestratorService struct {
	cfg         *config.Config
	analyzer    AnalyzerService
	broadcaster Broadcaster
	logger      *logger.Logger
	workers     int
	queue       chan *entity.AnalysisTask
	cron        *cron.Cron

	mu       sync.Mutex
	tasks    map[string]*entity.AnalysisTask
	inFlight map[string]string // client:symbol -> task id
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Start launches the worker pool and the retention reaper.
func (o *orchestratorService) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		utils.GoSafe(func() {
			defer o.wg.Done()
			o.worker(runCtx)
		})
	}

	if _, err := o.cron.AddFunc("@every 5m", o.reapFinishedTasks); err != nil {
		return fmt.Errorf("failed to schedule task reaper: %w", err)
	}
	o.cron.Start()

	o.logger.Info("Orchestrator started", logger.IntField("workers", o.workers))
	return nil
}

// Stop halts the reaper and waits for in-flight tasks to finish.
func (o *orchestratorService) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	cancel := o.cancel
	o.mu.Unlock()

	o.cron.Stop()
	cancel()
	o.wg.Wait()
	o.logger.Info("Orchestrator stopped")
}

// SubmitAnalysis queues one task. A client cannot schedule overlapping
// analyses for the same symbol; the duplicate is rejected with the existing
// task id in the error.
func (o *orchestratorService) SubmitAnalysis(symbol string, market entity.Market, clientID string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", fmt.Errorf("symbol must not be empty")
	}

	dedupeKey := clientID + ":" + symbol
	task := entity.NewAnalysisTask(uuid.New().String(), symbol, market, clientID)

	o.mu.Lock()
	if existing, dup := o.inFlight[dedupeKey]; dup {
		o.mu.Unlock()
		return "", fmt.Errorf("analysis for %s already in flight as task %s", symbol, existing)
	}
	o.inFlight[dedupeKey] = task.ID
	o.tasks[task.ID] = task
	o.mu.Unlock()

	select {
	case o.queue <- task:
	default:
		o.mu.Lock()
		delete(o.inFlight, dedupeKey)
		delete(o.tasks, task.ID)
		o.mu.Unlock()
		return "", fmt.Errorf("task queue is full")
	}

	o.logger.Info("Task queued",
		logger.StringField("task_id", task.ID),
		logger.StringField("symbol", symbol),
		logger.StringField("client_id", clientID),
	)
	return task.ID, nil
}

// SubmitBatchAnalysis queues one task per symbol. Duplicates within the batch
// or against in-flight work are skipped, not fatal; at least one accepted
// symbol is required.
func (o *orchestratorService) SubmitBatchAnalysis(symbols []string, market entity.Market, clientID string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols must not be empty")
	}

	var ids []string
	for _, symbol := range symbols {
		id, err := o.SubmitAnalysis(symbol, market, clientID)
		if err != nil {
			o.logger.Warn("Batch symbol rejected",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err),
			)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no symbols accepted")
	}
	return ids, nil
}

// GetTaskStatus reports a task's state and captured error.
func (o *orchestratorService) GetTaskStatus(taskID string) (*dto.TaskStatusResponse, error) {
	o.mu.Lock()
	task, ok := o.tasks[taskID]
	o.mu.Unlock()
	if !ok {
		return nil, ErrTaskNotFound
	}

	resp := &dto.TaskStatusResponse{
		TaskID: task.ID,
		Symbol: task.Symbol,
		State:  string(task.State()),
	}
	if err := task.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

// ActiveTasks counts tasks that have not reached a terminal state.
func (o *orchestratorService) ActiveTasks() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	active := 0
	for _, task := range o.tasks {
		if !task.Finished() {
			active++
		}
	}
	return active
}

// worker consumes the queue until the orchestrator stops. Each task runs
// under a context tied to both the orchestrator's lifetime and the owning
// client's subscription, so a disconnect cancels that client's work promptly.
func (o *orchestratorService) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-o.queue:
			o.runTask(ctx, task)
		}
	}
}

func (o *orchestratorService) runTask(ctx context.Context, task *entity.AnalysisTask) {
	taskCtx, cancel := context.WithCancel(ctx)
	stop := make(chan struct{})
	// Only a live subscriber's disconnect cancels the task. A client that
	// never opened a stream still gets its analysis run; publishes to it
	// are no-ops.
	if done := o.broadcaster.Done(task.ClientID); done != nil {
		utils.GoSafe(func() {
			select {
			case <-done:
				cancel()
			case <-stop:
			}
		})
	}

	o.analyzer.Analyze(taskCtx, task)

	close(stop)
	cancel()

	o.mu.Lock()
	delete(o.inFlight, task.ClientID+":"+task.Symbol)
	o.mu.Unlock()
}

// reapFinishedTasks drops terminal tasks older than the retention window.
func (o *orchestratorService) reapFinishedTasks() {
	cutoff := o.cfg.Analyzer.TaskRetention

	o.mu.Lock()
	defer o.mu.Unlock()
	for id, task := range o.tasks {
		if task.Finished() && time.Since(task.UpdatedAt()) > cutoff {
			delete(o.tasks, id)
		}
	}
}
