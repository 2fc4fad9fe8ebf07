package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopfloor/pkg/logger"
)

// Job represents a periodic background task.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// AlignedJob is a job that first runs at an aligned time boundary (e.g., midnight).
type AlignedJob interface {
	Job
	AlignToInterval() bool
}

// Status last execution of a job
type Status struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	NextRun   time.Time     `json:"next_run"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Runs      int           `json:"runs"`
	Failures  int           `json:"failures"`
}

// Manager orchestrates the lifecycle of background jobs.
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    []Job
	status  map[string]*Status
	started bool

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewManager creates a job manager bound to the provided context.
func NewManager(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make([]Job, 0),
		status: make(map[string]*Status),
	}
}

// Register adds a job to the manager.
func (m *Manager) Register(job Job) {
	if job == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	m.status[job.Name()] = &Status{Name: job.Name(), Interval: intervalOf(job)}
}

// Start launches all registered jobs.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	jobs := append([]Job(nil), m.jobs...)
	m.mu.Unlock()

	for _, job := range jobs {
		m.wg.Add(1)
		go m.runJob(job)
	}
}

// Stop signals all jobs to stop.
func (m *Manager) Stop() {
	m.cancel()
}

// Wait blocks until all jobs exit.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Statuses returns a snapshot of every job, sorted by name.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.status))
	for _, s := range m.status {
		cp := *s
		if s.LastRun != nil {
			t := *s.LastRun
			cp.LastRun = &t
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func intervalOf(job Job) time.Duration {
	interval := job.Interval()
	if interval <= 0 {
		interval = time.Minute
	}
	return interval
}

// firstRun time of the first execution; aligned jobs wait for the next boundary
func firstRun(job Job, now time.Time) time.Time {
	if aligned, ok := job.(AlignedJob); ok && aligned.AlignToInterval() {
		interval := intervalOf(job)
		return now.Truncate(interval).Add(interval)
	}
	return now
}

func (m *Manager) runJob(job Job) {
	defer m.wg.Done()

	interval := intervalOf(job)
	now := time.Now()
	next := firstRun(job, now)
	m.setNext(job.Name(), next)

	if wait := next.Sub(now); wait > 0 {
		logger.InfoCtx(m.ctx, "job %s will start at next aligned time: %v (in %v)", job.Name(), next.Format(time.DateTime), wait)
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	m.executeJob(job)
	m.setNext(job.Name(), time.Now().Add(interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.executeJob(job)
			m.setNext(job.Name(), time.Now().Add(interval))
		}
	}
}

func (m *Manager) executeJob(job Job) {
	err := job.Run(m.ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.status[job.Name()]
	now := time.Now()
	s.LastRun = &now
	s.Runs++
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
		logger.WarnCtx(m.ctx, "background job %s failed: %v", job.Name(), err)
		return
	}
	s.LastError = ""
}

func (m *Manager) setNext(name string, next time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[name].NextRun = next
}
