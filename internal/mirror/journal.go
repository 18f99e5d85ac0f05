package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultJournalSize is the number of tasks kept by NewJournal when size is not positive.
const DefaultJournalSize = 200

type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is one best-effort mirror operation.
type Task struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Kind       string     `json:"kind"`
	Path       string     `json:"path"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
}

// Journal records the outcome of best-effort tasks. It keeps the most recent tasks only.
type Journal struct {
	mu    sync.Mutex
	tasks []Task
	size  int
}

// NewJournal creates a new Journal holding at most size tasks.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{size: size}
}

// Run executes fn and records its outcome. A failure is logged and returned to the caller,
// who decides whether to surface it.
func (j *Journal) Run(ctx context.Context, target, kind, path string, fn func(ctx context.Context) error) error {
	task := Task{
		ID:        uuid.NewString(),
		Target:    target,
		Kind:      kind,
		Path:      path,
		Status:    TaskStatusRunning,
		StartedAt: time.Now(),
	}
	idx := j.append(task)

	err := fn(ctx)

	task.FinishedAt = time.Now()
	if err != nil {
		task.Status = TaskStatusFailed
		task.Error = err.Error()
		log.Warn("mirror task failed", "target", target, "kind", kind, "path", path, "error", err)
	} else {
		task.Status = TaskStatusSucceeded
		log.Debug("mirror task succeeded", "target", target, "kind", kind, "path", path)
	}
	j.update(idx, task)
	return err
}

func (j *Journal) append(task Task) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.tasks) >= j.size {
		j.tasks = j.tasks[1:]
	}
	j.tasks = append(j.tasks, task)
	return len(j.tasks) - 1
}

func (j *Journal) update(idx int, task Task) {
	j.mu.Lock()
	defer j.mu.Unlock()
	// the slot may have shifted if older tasks were evicted meanwhile
	for i := min(idx, len(j.tasks)-1); i >= 0; i-- {
		if j.tasks[i].ID == task.ID {
			j.tasks[i] = task
			return
		}
	}
}

// Tasks returns the recorded tasks, newest first.
func (j *Journal) Tasks() []Task {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Task, len(j.tasks))
	for i, t := range j.tasks {
		out[len(j.tasks)-1-i] = t
	}
	return out
}

// Failed returns the failed tasks, newest first.
func (j *Journal) Failed() []Task {
	var failed []Task
	for _, t := range j.Tasks() {
		if t.Status == TaskStatusFailed {
			failed = append(failed, t)
		}
	}
	return failed
}
