// Package scheduler routes tasks to capable, available agents. It holds
// its own priority queue rather than delegating ordering to callers, and
// drives dispatch from a ticker rather than from callers polling it.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
	"github.com/tutu-network/swarmd/internal/infra/registry"
)

// Config tunes dispatch cadence and archive retention.
type Config struct {
	DispatchInterval time.Duration
	DispatchBatch    int
	ArchiveSize      int
	Now              func() time.Time
}

// DefaultConfig returns the scheduler's production tuning.
func DefaultConfig() Config {
	return Config{
		DispatchInterval: time.Second,
		DispatchBatch:    10,
		ArchiveSize:      1024,
		Now:              time.Now,
	}
}

// item is one entry in the pending-task heap.
type item struct {
	task  domain.Task
	index int
}

type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	a, b := h[i].task, h[j].task
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Scheduler holds pending, running and archived tasks and dispatches
// pending ones to available agents drawn from reg.
type Scheduler struct {
	cfg Config
	reg *registry.Registry
	bus *eventbus.Bus

	mu       sync.Mutex
	pending  taskHeap
	byID     map[string]*item
	running  map[string]domain.Task
	archive  []domain.Task
	archIdx  int
	archFull bool

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Scheduler that dispatches against reg and publishes
// onto bus.
func New(cfg Config, reg *registry.Registry, bus *eventbus.Bus) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ArchiveSize <= 0 {
		cfg.ArchiveSize = 1024
	}
	s := &Scheduler{
		cfg:     cfg,
		reg:     reg,
		bus:     bus,
		byID:    make(map[string]*item),
		running: make(map[string]domain.Task),
		archive: make([]domain.Task, 0, cfg.ArchiveSize),
		stopCh:  make(chan struct{}),
	}
	heap.Init(&s.pending)
	return s
}

// Submit enqueues a new task as Pending. The caller must have assigned a
// unique ID; an ID that is still pending or running is rejected, while
// the ID of an archived task is not checked.
func (s *Scheduler) Submit(task domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		return nil, domain.NewError(domain.ErrTaskInvalid, "task id is required", nil)
	}
	s.mu.Lock()
	if _, exists := s.byID[task.ID]; exists {
		s.mu.Unlock()
		return nil, domain.Errorf(domain.ErrTaskInvalid, "task %q already submitted", task.ID)
	}
	if _, exists := s.running[task.ID]; exists {
		s.mu.Unlock()
		return nil, domain.Errorf(domain.ErrTaskInvalid, "task %q already submitted", task.ID)
	}
	now := s.cfg.Now()
	task.Status = domain.TaskPending
	task.CreatedAt = now
	task.UpdatedAt = now
	it := &item{task: task}
	heap.Push(&s.pending, it)
	s.byID[task.ID] = it
	stored := task
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.TaskSubmitted, stored)
	}
	return &stored, nil
}

// Get returns the current view of a task, searching pending, running,
// then archive in that order.
func (s *Scheduler) Get(id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.byID[id]; ok {
		return it.task, nil
	}
	if t, ok := s.running[id]; ok {
		return t, nil
	}
	for _, t := range s.archive {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, domain.Errorf(domain.ErrTaskNotFound, "task %q not found", id)
}

// List returns every task whose current status matches status, across
// pending, running and archived tasks. An empty status matches all of
// them.
func (s *Scheduler) List(status domain.TaskStatus) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, 0, len(s.byID)+len(s.running)+len(s.archive))
	for _, it := range s.byID {
		if status == "" || it.task.Status == status {
			out = append(out, it.task)
		}
	}
	for _, t := range s.running {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	for _, t := range s.archive {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Recent returns up to n of the most recently archived (completed,
// failed, or cancelled) tasks, newest first.
func (s *Scheduler) Recent(n int) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.archive) == 0 {
		return nil
	}

	// archive is a ring buffer once full: the oldest entry sits at
	// archIdx and entries wrap from there. Walk backward from the most
	// recently written slot.
	total := len(s.archive)
	if n > total {
		n = total
	}
	out := make([]domain.Task, 0, n)
	newest := s.archIdx - 1
	if !s.archFull {
		newest = total - 1
	}
	for i := 0; i < n; i++ {
		idx := (newest - i + total) % total
		out = append(out, s.archive[idx])
	}
	return out
}

// Stats summarizes queue depth.
type Stats struct {
	Pending int
	Running int
	Archived int
}

// Stats returns current queue depths.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Pending: len(s.byID), Running: len(s.running), Archived: len(s.archive)}
}

// Run starts the 1s dispatch tick in the background and returns at once;
// the tick runs until ctx is cancelled or Stop is called.
func (s *Scheduler) Run(ctx interface{ Done() <-chan struct{} }) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.DispatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.sweepDeadlines()
				s.dispatch()
			}
		}
	}()
}

// Stop halts the dispatch tick. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) sweepDeadlines() {
	now := s.cfg.Now()
	s.mu.Lock()
	var expired []domain.Task
	for id, it := range s.byID {
		if it.task.Overdue(now) {
			heap.Remove(&s.pending, it.index)
			delete(s.byID, id)
			t := it.task
			t.Status = domain.TaskFailed
			t.Error = domain.NewError(domain.ErrTaskTimeout, "task missed its deadline before dispatch", nil)
			t.UpdatedAt = now
			s.archiveLocked(t)
			expired = append(expired, t)
		}
	}
	for id, t := range s.running {
		if !t.Overdue(now) {
			continue
		}
		delete(s.running, id)
		t.Status = domain.TaskFailed
		t.Error = domain.NewError(domain.ErrTaskTimeout, "Task deadline exceeded", nil)
		t.UpdatedAt = now
		s.archiveLocked(t)
		expired = append(expired, t)
	}
	s.mu.Unlock()

	if s.bus != nil {
		for _, t := range expired {
			s.bus.Publish(eventbus.TaskFailed, t)
		}
	}
}

// dispatch assigns up to DispatchBatch pending tasks to capable,
// available agents, matching on capability superset and picking the
// first available candidate the registry returns. Each dispatch calls
// registry.AssignTask to flip the chosen agent to Busy; if that call
// fails (the agent raced to unavailable between the candidate scan and
// the assignment), the task is pushed back to the front of its priority
// class and retried on the next tick rather than dropped.
func (s *Scheduler) dispatch() {
	if s.reg == nil {
		return
	}
	var assigned []domain.Task
	now := s.cfg.Now()

	for i := 0; i < s.cfg.DispatchBatch; i++ {
		s.mu.Lock()
		if s.pending.Len() == 0 {
			s.mu.Unlock()
			break
		}
		it := s.pending[0]
		candidate := s.findCandidate(it.task)
		if candidate == "" {
			s.mu.Unlock()
			break
		}
		task := it.task
		s.mu.Unlock()

		if err := s.reg.AssignTask(candidate); err != nil {
			// Candidate went unavailable between the scan and the
			// assignment call; leave it at the head and retry next tick.
			break
		}

		s.mu.Lock()
		heap.Remove(&s.pending, it.index)
		delete(s.byID, task.ID)
		task.Status = domain.TaskAssigned
		task.AssignedTo = candidate
		task.UpdatedAt = now
		s.running[task.ID] = task
		s.mu.Unlock()
		assigned = append(assigned, task)
	}

	if s.bus != nil {
		for _, t := range assigned {
			s.bus.Publish(eventbus.TaskAssigned, t)
		}
	}
}

// findCandidate must be called with s.mu held. It returns the first
// available agent satisfying task's required capabilities, or "" if
// none is currently available.
func (s *Scheduler) findCandidate(task domain.Task) string {
	caps := task.Capabilities()
	var pool []domain.AgentRecord
	if len(caps) == 0 {
		pool = s.reg.ListAvailable()
	} else {
		pool = s.reg.ListByCapability(caps[0])
	}
	for _, rec := range pool {
		if rec.Status.Available() && rec.HasCapabilities(caps) {
			return rec.Identity.ID
		}
	}
	return ""
}

// Complete marks a running task Completed with the given result.
func (s *Scheduler) Complete(id string, result map[string]any) error {
	return s.finish(id, domain.TaskCompleted, result, nil)
}

// Fail marks a running task Failed with the given error.
func (s *Scheduler) Fail(id string, taskErr *domain.Error) error {
	return s.finish(id, domain.TaskFailed, nil, taskErr)
}

func (s *Scheduler) finish(id string, status domain.TaskStatus, result map[string]any, taskErr *domain.Error) error {
	s.mu.Lock()
	t, ok := s.running[id]
	if !ok {
		s.mu.Unlock()
		return domain.Errorf(domain.ErrTaskNotFound, "task %q is not running", id)
	}
	delete(s.running, id)
	t.Status = status
	t.Result = result
	t.Error = taskErr
	t.UpdatedAt = s.cfg.Now()
	s.archiveLocked(t)
	s.mu.Unlock()

	if s.bus != nil {
		topic := eventbus.TaskCompleted
		if status == domain.TaskFailed {
			topic = eventbus.TaskFailed
		}
		s.bus.Publish(topic, t)
	}
	return nil
}

// archiveLocked appends t to the bounded FIFO archive. Callers must hold
// s.mu.
func (s *Scheduler) archiveLocked(t domain.Task) {
	if len(s.archive) < s.cfg.ArchiveSize {
		s.archive = append(s.archive, t)
		return
	}
	s.archive[s.archIdx] = t
	s.archIdx = (s.archIdx + 1) % s.cfg.ArchiveSize
	s.archFull = true
}

// DemoteRunning reverts a running task back to Pending, re-inserted at
// its original priority position. Used when the agent it was assigned to
// goes Offline or Error before completing it.
func (s *Scheduler) DemoteRunning(agentID string) {
	s.mu.Lock()
	var demoted []domain.Task
	for id, t := range s.running {
		if t.AssignedTo != agentID {
			continue
		}
		delete(s.running, id)
		t.Status = domain.TaskPending
		t.AssignedTo = ""
		t.UpdatedAt = s.cfg.Now()
		it := &item{task: t}
		heap.Push(&s.pending, it)
		s.byID[t.ID] = it
		demoted = append(demoted, t)
	}
	s.mu.Unlock()

	if s.bus != nil {
		for _, t := range demoted {
			s.bus.Publish(eventbus.TaskSubmitted, t)
		}
	}
}
