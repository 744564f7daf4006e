package entity

import (
	"sync"
	"time"
)

// TaskState is the lifecycle state of an analysis task. Transitions are
// monotonic; a task never moves backwards.
type TaskState string

const (
	TaskStateQueued    TaskState = "queued"
	TaskStateFetching  TaskState = "fetching"
	TaskStateScoring   TaskState = "scoring"
	TaskStateNarrating TaskState = "narrating"
	TaskStateDone      TaskState = "done"
	TaskStateFailed    TaskState = "failed"
)

var taskStateRank = map[TaskState]int{
	TaskStateQueued:    0,
	TaskStateFetching:  1,
	TaskStateScoring:   2,
	TaskStateNarrating: 3,
	TaskStateDone:      4,
	TaskStateFailed:    4,
}

// AnalysisTask tracks one unit of analysis work for one symbol and client.
type AnalysisTask struct {
	ID        string
	Symbol    string
	Market    Market
	ClientID  string
	CreatedAt time.Time

	mu        sync.Mutex
	state     TaskState
	updatedAt time.Time
	err       error
	// categories whose fetch failed; surfaced as a partial-data flag
	partialCategories []string
}

// NewAnalysisTask creates a task in the Queued state.
func NewAnalysisTask(id, symbol string, market Market, clientID string) *AnalysisTask {
	now := time.Now()
	return &AnalysisTask{
		ID:        id,
		Symbol:    symbol,
		Market:    market,
		ClientID:  clientID,
		CreatedAt: now,
		state:     TaskStateQueued,
		updatedAt: now,
	}
}

// State returns the current state.
func (t *AnalysisTask) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Transition moves the task to next if that is a forward transition. A
// backward transition is ignored and reported as false.
func (t *AnalysisTask) Transition(next TaskState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if taskStateRank[next] <= taskStateRank[t.state] && next != t.state {
		return false
	}
	if t.state == TaskStateDone || t.state == TaskStateFailed {
		return false
	}
	t.state = next
	t.updatedAt = time.Now()
	return true
}

// Fail moves the task to Failed and captures the error.
func (t *AnalysisTask) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TaskStateDone || t.state == TaskStateFailed {
		return
	}
	t.state = TaskStateFailed
	t.err = err
	t.updatedAt = time.Now()
}

// Err returns the captured failure, if any.
func (t *AnalysisTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// MarkPartial records a data category whose fetch failed.
func (t *AnalysisTask) MarkPartial(category string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.partialCategories = append(t.partialCategories, category)
}

// PartialCategories lists the categories that failed to fetch.
func (t *AnalysisTask) PartialCategories() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.partialCategories))
	copy(out, t.partialCategories)
	return out
}

// UpdatedAt reports the last state change time.
func (t *AnalysisTask) UpdatedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updatedAt
}

// Finished reports whether the task reached a terminal state.
func (t *AnalysisTask) Finished() bool {
	s := t.State()
	return s == TaskStateDone || s == TaskStateFailed
}
