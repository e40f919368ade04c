// Package cron runs named housekeeping jobs on cron schedules.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// JobFunc does one run of a job. The context ends when the service stops.
type JobFunc func(ctx context.Context) error

type Job struct {
	Name     string
	Schedule string // six fields, seconds first
	Run      JobFunc
}

type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Runs      int       `json:"runs"`
	LastRun   time.Time `json:"lastRun"`
	NextRun   time.Time `json:"nextRun"`
	LastError string    `json:"lastError,omitempty"`
}

type entry struct {
	job     Job
	id      rcron.EntryID
	running bool
	runs    int
	lastRun time.Time
	lastErr error
}

type Service struct {
	mu      sync.Mutex
	cron    *rcron.Cron
	jobs    map[string]*entry
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewService() *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:   rcron.New(rcron.WithSeconds()),
		jobs:   make(map[string]*entry),
		logger: slog.Default().With("component", "cron"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger.With("component", "cron")
	}
	return s
}

// AddJob schedules job, replacing any job with the same name.
func (s *Service) AddJob(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a func")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[job.Name]; ok {
		s.cron.Remove(old.id)
		delete(s.jobs, job.Name)
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() { s.execute(e) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Schedule, err)
	}
	e.id = id
	s.jobs[job.Name] = e
	s.logger.Info("job scheduled", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// RunNow runs the named job synchronously, outside its schedule.
func (s *Service) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return s.execute(e)
}

// execute skips a run while the previous one is still going.
func (s *Service) execute(e *entry) error {
	s.mu.Lock()
	if e.running || s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	e.running = true
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	start := time.Now()
	err := e.job.Run(s.ctx)

	s.mu.Lock()
	e.running = false
	e.runs++
	e.lastRun = start
	e.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", e.job.Name, "error", err)
		return err
	}
	s.logger.Debug("job done", "job", e.job.Name, "duration", time.Since(start))
	return nil
}

// Start begins firing jobs and stops them when ctx ends.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("started", "jobs", n)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
	return nil
}

// Stop waits up to 5s for running jobs.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-stopCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.logger.Warn("stop timeout waiting for running jobs")
	}
	s.logger.Info("stopped")
}

func (s *Service) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, e := range s.jobs {
		st := JobStatus{
			Name:     e.job.Name,
			Schedule: e.job.Schedule,
			Runs:     e.runs,
			LastRun:  e.lastRun,
			NextRun:  s.cron.Entry(e.id).Next,
		}
		if e.lastErr != nil {
			st.LastError = e.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
