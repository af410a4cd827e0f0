// Package dispatcher runs a single polling loop on a fixed interval that
// claims a bounded batch of pending tasks and fans them out to a bounded
// worker pool. The worker-status snapshot follows a workerState /
// statsMutex / WorkerStatuses() pattern adapted from a queue-dequeue
// worker manager to a batch-claim-then-fan-out tick.
package dispatcher

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/shiva/paratransit-scheduler/internal/model"
)

// Request is the deserialized form of a task's stored request body.
type Request struct {
	Date                 string           `json:"date"`
	Debug                bool             `json:"debug,omitempty"`
	BeforePickupTime     *int             `json:"before_pickup_time,omitempty"`
	AfterPickupTime      *int             `json:"after_pickup_time,omitempty"`
	DropoffUnloadingTime *int             `json:"dropoff_unloading_time,omitempty"`
	Bookings             []*model.Booking `json:"bookings"`
}

// Config controls dispatcher timing and pool sizing (PROCESSOR_* env vars).
type Config struct {
	Interval         time.Duration
	BatchSize        int
	PoolSize         int
	ReclaimThreshold time.Duration // <= 0 disables the abandoned-PROCESSING sweep
}

// Runner executes one scheduling request and returns its response
// envelope, already serialized, or an error. Exists as an interface seam
// so tests can fake scheduling without constructing a real Scheduler.
type Runner interface {
	RunRequest(ctx context.Context, req *Request) ([]byte, error)
}

// TaskQueue is the subset of taskstore.Store the dispatcher depends on,
// narrowed to an interface so tests can fake the queue without a live
// Postgres connection.
type TaskQueue interface {
	ReclaimAbandoned(ctx context.Context, threshold time.Duration) (int64, error)
	ClaimBatch(ctx context.Context, n int) ([]*model.Task, error)
	CompleteTask(ctx context.Context, id int64, responseBody []byte) error
	FailTask(ctx context.Context, id int64, errMsg string) error
}

// workerState tracks runtime statistics for a worker goroutine.
type workerState struct {
	ID            int
	Status        string
	CurrentTask   string
	ProcessedJobs int
	StartedAt     time.Time
	LastHeartbeat time.Time
}

// WorkerStatus is a snapshot of worker metrics, exposed for operational
// visibility.
type WorkerStatus struct {
	ID            int    `json:"id"`
	Status        string `json:"status"`
	CurrentTask   string `json:"current_task,omitempty"`
	ProcessedJobs int    `json:"processed_jobs"`
	Uptime        int64  `json:"uptime"`
}

// Dispatcher polls the task store at a fixed interval, claims up to
// BatchSize tasks, and hands them to a bounded worker pool for parallel
// execution.
type Dispatcher struct {
	store  TaskQueue
	runner Runner
	cfg    Config

	stopCh chan struct{}
	wg     sync.WaitGroup

	statsMu sync.RWMutex
	states  []*workerState

	sem chan struct{}
}

// New constructs a Dispatcher. Call Start to begin polling and Stop for
// graceful shutdown.
func New(store TaskQueue, runner Runner, cfg Config) *Dispatcher {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	return &Dispatcher{
		store:  store,
		runner: runner,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		states: make([]*workerState, cfg.PoolSize),
		sem:    make(chan struct{}, cfg.PoolSize),
	}
}

// Start launches the polling loop in a background goroutine.
func (d *Dispatcher) Start() {
	now := time.Now()
	d.statsMu.Lock()
	for i := range d.states {
		d.states[i] = &workerState{ID: i + 1, Status: "idle", StartedAt: now, LastHeartbeat: now}
	}
	d.statsMu.Unlock()

	d.wg.Add(1)
	go d.loop()
}

// Stop signals the polling loop to exit and waits for any in-flight
// batch to drain.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// WorkerStatuses returns a point-in-time snapshot of pool utilization.
func (d *Dispatcher) WorkerStatuses() []WorkerStatus {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()

	out := make([]WorkerStatus, 0, len(d.states))
	now := time.Now()
	for _, s := range d.states {
		if s == nil {
			continue
		}
		out = append(out, WorkerStatus{
			ID:            s.ID,
			Status:        s.Status,
			CurrentTask:   s.CurrentTask,
			ProcessedJobs: s.ProcessedJobs,
			Uptime:        int64(now.Sub(s.StartedAt).Seconds()),
		})
	}
	return out
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			// Non-overlapping ticks: tick() blocks until the batch and
			// all its worker goroutines finish, so a slow batch simply
			// delays the next tick rather than racing it.
			d.tick()
		}
	}
}

func (d *Dispatcher) tick() {
	ctx := context.Background()

	if d.cfg.ReclaimThreshold > 0 {
		if n, err := d.store.ReclaimAbandoned(ctx, d.cfg.ReclaimThreshold); err != nil {
			log.Printf("[dispatcher] reclaim abandoned: %v", err)
		} else if n > 0 {
			log.Printf("[dispatcher] reclaimed %d abandoned task(s)", n)
		}
	}

	tasks, err := d.store.ClaimBatch(ctx, d.cfg.BatchSize)
	if err != nil {
		log.Printf("[dispatcher] claim batch: %v", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		t := t
		d.sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-d.sem }()
			d.runWorker(ctx, t)
		}()
	}
	wg.Wait()
}

// runWorker executes one claimed task end to end.
func (d *Dispatcher) runWorker(ctx context.Context, t *model.Task) {
	slot := d.claimSlot(t.TaskID)
	defer d.releaseSlot(slot)

	var req Request
	if err := json.Unmarshal(t.RequestBody, &req); err != nil {
		d.fail(ctx, t, "invalid request body: "+err.Error())
		return
	}

	resp, err := d.runner.RunRequest(ctx, &req)
	if err != nil {
		d.fail(ctx, t, err.Error())
		return
	}

	if err := d.store.CompleteTask(ctx, t.ID, resp); err != nil {
		log.Printf("[worker] complete task %s: %v", t.TaskID, err)
		return
	}
	d.statsMu.Lock()
	if slot >= 0 {
		d.states[slot].ProcessedJobs++
	}
	d.statsMu.Unlock()
	log.Printf("[worker] completed task %s", t.TaskID)
}

func (d *Dispatcher) fail(ctx context.Context, t *model.Task, message string) {
	if err := d.store.FailTask(ctx, t.ID, message); err != nil {
		log.Printf("[worker] fail task %s: %v", t.TaskID, err)
	}
	log.Printf("[worker] task %s failed: %s", t.TaskID, message)
}

// claimSlot finds an idle worker slot to attribute this task's stats to.
// Returns -1 if the pool is oversubscribed (stats are best-effort, never
// block task execution).
func (d *Dispatcher) claimSlot(taskID string) int {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	now := time.Now()
	for i, s := range d.states {
		if s != nil && s.Status == "idle" {
			s.Status = "processing"
			s.CurrentTask = taskID
			s.LastHeartbeat = now
			return i
		}
	}
	return -1
}

func (d *Dispatcher) releaseSlot(slot int) {
	if slot < 0 {
		return
	}
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.states[slot].Status = "idle"
	d.states[slot].CurrentTask = ""
	d.states[slot].LastHeartbeat = time.Now()
}
