package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shiva/paratransit-scheduler/internal/dispatcher"
	"github.com/shiva/paratransit-scheduler/internal/model"
	"github.com/shiva/paratransit-scheduler/internal/scheduler"
	"github.com/shiva/paratransit-scheduler/internal/taskstore"
)

// ScheduleHandler serves the three HTTP endpoints built around the
// scheduler: the synchronous schedule call, async enqueue, and task
// status lookup.
type ScheduleHandler struct {
	sched   *scheduler.Scheduler
	margins scheduler.Margins
	store   *taskstore.Store
}

// NewScheduleHandler wires a handler to a Scheduler (already configured
// with a Router and zip table) and the default margins used when a
// request omits overrides.
func NewScheduleHandler(sched *scheduler.Scheduler, margins scheduler.Margins, store *taskstore.Store) *ScheduleHandler {
	return &ScheduleHandler{sched: sched, margins: margins, store: store}
}

// Root handles GET / with a 200 and an empty object, for uptime checks.
func (h *ScheduleHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

// Schedule handles POST /v1_webapp_auto_scheduling: runs the scheduler
// synchronously and returns the full response envelope.
func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope("invalid request body: "+err.Error()))
		return
	}

	plan, err := h.run(r.Context(), req)
	if err != nil {
		log.Printf("[scheduler] schedule failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope(err.Error()))
		return
	}

	tripCount := countTrips(plan)
	log.Printf("[scheduler] plan computed: %d vehicle(s), %d trip(s), %d bucket(s) used",
		len(plan.Vehicles), tripCount, bucketsUsed(plan))
	writeJSON(w, http.StatusOK, successEnvelope(plan))

	go func() {
		if err := h.store.RecordRun(context.Background(), req.Date, len(plan.Vehicles), tripCount); err != nil {
			log.Printf("[taskstore] record run: %v", err)
		}
	}()
}

// Enqueue handles POST /v1_webapp_auto_scheduling/enqueue: persists the
// request and returns its task id with a 201.
func (h *ScheduleHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_payload"})
		return
	}
	var probe dispatcher.Request
	if err := json.Unmarshal(body, &probe); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_payload", "message": err.Error()})
		return
	}

	taskID, err := h.store.CreateTask(r.Context(), body)
	if err != nil {
		log.Printf("[taskstore] create task: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"taskId": taskID})
}

// TaskStatus handles GET /v1_webapp_auto_scheduling/{taskId}.
func (h *ScheduleHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	task, err := h.store.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, taskstore.ErrTaskNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "task_not_found"})
			return
		}
		log.Printf("[taskstore] get task %s: %v", taskID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	resp := map[string]interface{}{
		"taskId": task.TaskID,
		"status": string(task.Status),
	}
	switch task.Status {
	case model.TaskCompleted:
		var result json.RawMessage = task.ResponseBody
		resp["result"] = result
	case model.TaskFailed:
		if task.ErrorMessage != nil {
			resp["error"] = *task.ErrorMessage
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// run executes the scheduler for one decoded request, applying margin
// overrides where present.
func (h *ScheduleHandler) run(ctx context.Context, req *dispatcher.Request) (*model.Plan, error) {
	m := h.margins
	if req.BeforePickupTime != nil {
		m.BeforePickup = time.Duration(*req.BeforePickupTime) * time.Second
	}
	if req.AfterPickupTime != nil {
		m.AfterPickup = time.Duration(*req.AfterPickupTime) * time.Second
	}
	if req.DropoffUnloadingTime != nil {
		m.DropoffUnloading = time.Duration(*req.DropoffUnloadingTime) * time.Second
	}

	sched := scheduler.New(h.sched.Router, h.sched.ZipTable, m)
	return sched.Run(ctx, req.Date, req.Bookings)
}

// RunRequest implements dispatcher.Runner, letting the dispatcher reuse
// the exact same scheduling path a synchronous request takes.
func (h *ScheduleHandler) RunRequest(ctx context.Context, req *dispatcher.Request) ([]byte, error) {
	plan, err := h.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(successEnvelope(plan))
}

func decodeRequest(r *http.Request) (*dispatcher.Request, error) {
	var req dispatcher.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func countTrips(plan *model.Plan) int {
	n := 0
	for _, v := range plan.Vehicles {
		n += len(v.Trips)
	}
	return n
}

// bucketsUsed counts how many of the three mobility-priority buckets
// (stretcher, wheelchair, ambulatory) appear in the assigned plan.
func bucketsUsed(plan *model.Plan) int {
	var seen [3]bool
	for _, v := range plan.Vehicles {
		for _, t := range v.Trips {
			seen[t.Assistance.Bucket()] = true
		}
	}
	n := 0
	for _, s := range seen {
		if s {
			n++
		}
	}
	return n
}
