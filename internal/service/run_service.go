package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"shopfloor/internal/model"
	"shopfloor/internal/pipeline"
	"shopfloor/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrRunFinished   = errors.New("run already finished")
	ErrTablesMissing = errors.New("run has no computed tables")
)

// subscriberBuffer progress events buffered per subscriber, later events are dropped
const subscriberBuffer = 32

// Runner executes one report run
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options, progress pipeline.ProgressFunc) (*pipeline.Result, error)
}

type runState struct {
	run    model.Run
	cancel context.CancelFunc
	result *pipeline.Result
	subs   map[chan model.Progress]struct{}
	done   chan struct{}
}

// RunService runs reports in the background, one at a time
type RunService struct {
	ctx     context.Context
	runner  Runner
	base    pipeline.Options
	history int

	mu     sync.Mutex
	runs   map[string]*runState
	order  []string // creation order
	active string
	wg     sync.WaitGroup
}

// NewRunService creates a run service. Runs are cancelled when ctx is done.
func NewRunService(ctx context.Context, runner Runner, base pipeline.Options, history int) *RunService {
	if history <= 0 {
		history = 1
	}
	return &RunService{
		ctx:     ctx,
		runner:  runner,
		base:    base,
		history: history,
		runs:    make(map[string]*runState),
		order:   make([]string, 0),
	}
}

// Start starts a new run, cancelling the active one
func (s *RunService) Start(ctx context.Context, req model.RunRequest) (*model.Run, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, fmt.Errorf("run service stopped: %w", err)
	}

	trigger := req.Trigger
	if trigger == "" {
		trigger = model.TriggerAPI
	}
	if trigger == model.TriggerAPI {
		if err := s.base.CheckInputs(req); err != nil {
			return nil, err
		}
	}

	opts := s.base.WithRequest(req)
	if opts.DowntimeFile == "" || opts.MetricsFile == "" {
		return nil, fmt.Errorf("downtime and metrics files are required")
	}
	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(logger.WithRunID(s.ctx, runID))

	st := &runState{
		run: model.Run{
			ID:        runID,
			Status:    model.RunStatusPending,
			Trigger:   trigger,
			Request:   req,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
		subs:   make(map[chan model.Progress]struct{}),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.runs[s.active]; ok && !prev.run.Status.Terminal() {
		logger.InfoCtx(ctx, "cancelling active run %s before starting %s", prev.run.ID, runID)
		prev.cancel()
	}
	s.runs[runID] = st
	s.order = append(s.order, runID)
	s.active = runID
	s.trimLocked()
	snapshot := st.snapshot()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(runCtx, st, opts)

	logger.InfoCtx(ctx, "run started, run_id: %s, trigger: %s", runID, trigger)
	return snapshot, nil
}

func (s *RunService) execute(ctx context.Context, st *runState, opts pipeline.Options) {
	defer s.wg.Done()
	defer st.cancel()

	s.mu.Lock()
	now := time.Now()
	st.run.Status = model.RunStatusRunning
	st.run.StartedAt = &now
	s.mu.Unlock()

	res, err := s.run(ctx, st, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	finished := time.Now()
	st.run.CompletedAt = &finished
	st.result = res
	if res != nil && res.Rendered != nil {
		st.run.Artifacts = append([]string{}, res.Rendered.Artifacts...)
	}

	switch {
	case errors.Is(err, context.Canceled):
		st.run.Status = model.RunStatusCancelled
		st.run.Message = "Analysis cancelled."
		logger.WarnCtx(ctx, "run cancelled")
	case err != nil:
		st.run.Status = model.RunStatusFailed
		st.run.Error = err.Error()
		st.run.Message = fmt.Sprintf("An error occurred during the analysis: %v", err)
	default:
		st.run.Status = model.RunStatusCompleted
		st.run.Message = "Analysis completed."
	}

	for ch := range st.subs {
		close(ch)
		delete(st.subs, ch)
	}
	close(st.done)
	if s.active == st.run.ID {
		s.active = ""
	}
	s.trimLocked()
}

// run calls the runner, a panic fails the run instead of the process
func (s *RunService) run(ctx context.Context, st *runState, opts pipeline.Options) (res *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "run panicked: %v\nstack:\n%s", r, string(debug.Stack()))
			res, err = nil, fmt.Errorf("run panicked: %v", r)
		}
	}()
	return s.runner.Run(ctx, opts, func(p model.Progress) { s.publish(st, p) })
}

func (s *RunService) publish(st *runState, p model.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.run.Progress = p
	for ch := range st.subs {
		select {
		case ch <- p:
		default:
			// slow subscriber
		}
	}
}

// Get returns a snapshot of a run
func (s *RunService) Get(id string) (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return st.snapshot(), nil
}

// List returns the kept runs, newest first
func (s *RunService) List() []*model.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]].snapshot())
	}
	return out
}

// Cancel cancels a pending or running run
func (s *RunService) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	if st.run.Status.Terminal() {
		return ErrRunFinished
	}
	st.cancel()
	return nil
}

// Subscribe streams the progress events of a run. The channel is closed when
// the run finishes; a finished run yields its last event only.
func (s *RunService) Subscribe(id string) (<-chan model.Progress, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[id]
	if !ok {
		return nil, nil, ErrRunNotFound
	}

	ch := make(chan model.Progress, subscriberBuffer)
	if st.run.Status.Terminal() {
		ch <- st.run.Progress
		close(ch)
		return ch, func() {}, nil
	}
	if st.run.Progress.Stage != "" {
		ch <- st.run.Progress
	}
	st.subs[ch] = struct{}{}

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := st.subs[ch]; ok {
			delete(st.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe, nil
}

// Tables aggregate tables of a run that reached the compute stage
func (s *RunService) Tables(id string) (*pipeline.Computed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	if st.result == nil || st.result.Computed == nil {
		return nil, ErrTablesMissing
	}
	return st.result.Computed, nil
}

// Wait blocks until the run finishes or ctx is done
func (s *RunService) Wait(ctx context.Context, id string) (*model.Run, error) {
	s.mu.Lock()
	st, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrRunNotFound
	}

	select {
	case <-st.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// st may already be trimmed from history, read it directly
	s.mu.Lock()
	defer s.mu.Unlock()
	return st.snapshot(), nil
}

// Shutdown cancels every run and waits for the workers to exit
func (s *RunService) Shutdown() {
	s.mu.Lock()
	for _, st := range s.runs {
		st.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// trimLocked drops the oldest finished runs beyond the history size
func (s *RunService) trimLocked() {
	for len(s.order) > s.history {
		idx := -1
		for i, id := range s.order {
			if s.runs[id].run.Status.Terminal() {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		delete(s.runs, s.order[idx])
		s.order = append(s.order[:idx], s.order[idx+1:]...)
	}
}

func (st *runState) snapshot() *model.Run {
	r := st.run
	r.Artifacts = append([]string(nil), st.run.Artifacts...)
	return &r
}
