package service

import (
	"context"
	"testing"
	"time"

	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T, workers int) (OrchestratorService, *pipelineFixture) {
	t.Helper()
	f := newPipeline(t, &stubMarketData{}, &stubFundamentals{}, &stubNews{}, &stubNarrator{text: "n"})
	f.cfg.Analyzer.MaxConcurrentTasks = workers
	orch := NewOrchestratorService(f.cfg, f.service, f.broadcaster, logger.NewNop())
	require.NoError(t, orch.Start(context.Background()))
	t.Cleanup(orch.Stop)
	return orch, f
}

func waitForState(t *testing.T, orch OrchestratorService, taskID string, want entity.TaskState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		status, err := orch.GetTaskStatus(taskID)
		require.NoError(t, err)
		if status.State == string(want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	status, _ := orch.GetTaskStatus(taskID)
	t.Fatalf("task %s never reached %s, last state %v", taskID, want, status)
}

func TestOrchestrator_SingleTaskRunsToDone(t *testing.T) {
	orch, f := newOrchestrator(t, 2)
	_, err := f.broadcaster.Subscribe("client-1")
	require.NoError(t, err)
	defer f.broadcaster.Unsubscribe("client-1")

	taskID, err := orch.SubmitAnalysis("600519", entity.MarketAStock, "client-1")
	require.NoError(t, err)

	waitForState(t, orch, taskID, entity.TaskStateDone)
}

func TestOrchestrator_SubmitWithoutSubscriptionStillCompletes(t *testing.T) {
	orch, _ := newOrchestrator(t, 2)

	// The client never opens its event stream; the task must still run
	// instead of being cancelled as a phantom disconnect.
	taskID, err := orch.SubmitAnalysis("600519", entity.MarketAStock, "client-offline")
	require.NoError(t, err)

	waitForState(t, orch, taskID, entity.TaskStateDone)

	status, err := orch.GetTaskStatus(taskID)
	require.NoError(t, err)
	assert.Empty(t, status.Error)
}

func TestOrchestrator_BatchWithSingleWorkerCompletesAll(t *testing.T) {
	orch, f := newOrchestrator(t, 1)
	_, err := f.broadcaster.Subscribe("client-1")
	require.NoError(t, err)
	defer f.broadcaster.Unsubscribe("client-1")

	ids, err := orch.SubmitBatchAnalysis([]string{"600519", "000001", "AAPL"}, entity.MarketAStock, "client-1")
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for _, id := range ids {
		waitForState(t, orch, id, entity.TaskStateDone)
	}
}

func TestOrchestrator_PerClientSymbolDedupe(t *testing.T) {
	// No workers pulling, so the first submission stays in flight.
	f := newPipeline(t, &stubMarketData{}, &stubFundamentals{}, &stubNews{}, &stubNarrator{text: "n"})
	orch := NewOrchestratorService(f.cfg, f.service, f.broadcaster, logger.NewNop())

	first, err := orch.SubmitAnalysis("600519", entity.MarketAStock, "client-1")
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	_, err = orch.SubmitAnalysis("600519", entity.MarketAStock, "client-1")
	require.Error(t, err, "duplicate symbol for the same client must be rejected")

	// A different client may analyze the same symbol concurrently.
	other, err := orch.SubmitAnalysis("600519", entity.MarketAStock, "client-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	assert.Equal(t, 2, orch.ActiveTasks())
}

func TestOrchestrator_BatchSkipsDuplicates(t *testing.T) {
	f := newPipeline(t, &stubMarketData{}, &stubFundamentals{}, &stubNews{}, &stubNarrator{text: "n"})
	orch := NewOrchestratorService(f.cfg, f.service, f.broadcaster, logger.NewNop())

	ids, err := orch.SubmitBatchAnalysis([]string{"600519", "600519", "AAPL"}, entity.MarketAStock, "client-1")
	require.NoError(t, err)
	assert.Len(t, ids, 2, "duplicate within the batch is skipped, not fatal")
}

func TestOrchestrator_UnknownTask(t *testing.T) {
	f := newPipeline(t, &stubMarketData{}, &stubFundamentals{}, &stubNews{}, &stubNarrator{text: "n"})
	orch := NewOrchestratorService(f.cfg, f.service, f.broadcaster, logger.NewNop())

	_, err := orch.GetTaskStatus("nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestOrchestrator_RejectsEmptyInput(t *testing.T) {
	f := newPipeline(t, &stubMarketData{}, &stubFundamentals{}, &stubNews{}, &stubNarrator{text: "n"})
	orch := NewOrchestratorService(f.cfg, f.service, f.broadcaster, logger.NewNop())

	_, err := orch.SubmitAnalysis("  ", entity.MarketAStock, "client-1")
	require.Error(t, err)

	_, err = orch.SubmitBatchAnalysis(nil, entity.MarketAStock, "client-1")
	require.Error(t, err)
}

func TestOrchestrator_ResubmitAfterCompletion(t *testing.T) {
	orch, f := newOrchestrator(t, 2)
	_, err := f.broadcaster.Subscribe("client-1")
	require.NoError(t, err)
	defer f.broadcaster.Unsubscribe("client-1")

	first, err := orch.SubmitAnalysis("600519", entity.MarketAStock, "client-1")
	require.NoError(t, err)
	waitForState(t, orch, first, entity.TaskStateDone)

	// Once the first run finishes the dedupe slot frees up.
	deadline := time.Now().Add(2 * time.Second)
	var second string
	for time.Now().Before(deadline) {
		second, err = orch.SubmitAnalysis("600519", entity.MarketAStock, "client-1")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	waitForState(t, orch, second, entity.TaskStateDone)
}
