package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"media-picker/internal/logging"
	"media-picker/internal/mapper"
	"media-picker/internal/metrics"
	"media-picker/internal/query"
)

// ErrAlreadyStarted is returned when Execute is called on a task that has
// already been scheduled.
var ErrAlreadyStarted = errors.New("task already started")

// Source is the media index the pipeline reads from.
type Source interface {
	mapper.Resolver
}

// Request describes one media query.
type Request struct {
	Query   query.Request
	Mapping mapper.Options
}

// Listener receives the full result of a task.
type Listener func(records []mapper.Record)

// ErrorListener receives the error of a task whose primary query failed.
type ErrorListener func(err error)

// State is the lifecycle stage of a task.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Fetch runs the query pipeline synchronously: plan, primary query, map.
func Fetch(ctx context.Context, source Source, req Request) ([]mapper.Record, error) {
	rows, err := source.Query(ctx, query.Plan(req.Query))
	if err != nil {
		return nil, fmt.Errorf("primary media query: %w", err)
	}

	opts := req.Mapping
	opts.BucketID = req.Query.BucketID
	return mapper.New(source, opts).Map(ctx, rows)
}

// Task is a single-shot background execution of Fetch.
type Task struct {
	source Source
	req    Request
	state  atomic.Int32
	done   chan struct{}

	mu          sync.Mutex
	listener    Listener
	errListener ErrorListener
	deliver     func(func())
	sealed      bool
	records     []mapper.Record
	err         error
}

// New creates a pending task.
func New(source Source, req Request) *Task {
	return &Task{
		source: source,
		req:    req,
		done:   make(chan struct{}),
	}
}

// SetListener registers the result listener. A listener registered after
// the task has finished is never called.
func (t *Task) SetListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		logging.Debug("Listener registered after task completion, ignoring")
		return
	}
	t.listener = l
}

// SetErrorListener registers a listener for primary query failures.
func (t *Task) SetErrorListener(l ErrorListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return
	}
	t.errListener = l
}

// SetDelivery sets how listener calls are handed to the caller's context.
// deliver receives the call and must run it exactly once. By default the
// listener runs on the task's goroutine.
func (t *Task) SetDelivery(deliver func(func())) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deliver = deliver
}

// State returns the task's current lifecycle stage.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Execute schedules the pipeline and returns immediately. The pipeline is
// not cancelled when ctx is; ctx only carries values.
func (t *Task) Execute(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	metrics.DispatchInFlight.Inc()
	go t.run(context.WithoutCancel(ctx))
	return nil
}

// Done is closed once the task has completed and its listener was handed off.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx is done.
func (t *Task) Wait(ctx context.Context) ([]mapper.Record, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.records, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Task) run(ctx context.Context) {
	start := time.Now()
	defer metrics.DispatchInFlight.Dec()

	records, err := t.fetch(ctx)

	status := "success"
	if err != nil {
		status = "error"
		logging.Error("Media query for bucket %s failed: %v", t.req.Query.BucketID, err)
	} else {
		metrics.DispatchResultSize.Observe(float64(len(records)))
	}
	metrics.DispatchTotal.WithLabelValues(status).Inc()
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	t.mu.Lock()
	t.records, t.err = records, err
	t.sealed = true
	listener, errListener, deliver := t.listener, t.errListener, t.deliver
	t.mu.Unlock()

	if deliver == nil {
		deliver = func(f func()) { f() }
	}

	switch {
	case err == nil && listener != nil:
		deliver(func() { listener(records) })
	case err != nil && errListener != nil:
		deliver(func() { errListener(err) })
	}

	t.state.Store(int32(StateCompleted))
	close(t.done)
}

// fetch runs Fetch and converts a panic into an error so a task always
// completes.
func (t *Task) fetch(ctx context.Context) (records []mapper.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("media query panicked: %v", r)
		}
	}()
	return Fetch(ctx, t.source, t.req)
}
