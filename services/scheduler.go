package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobScheduler wraps a cron runner with the operational hooks the batch
// engines need: manual trigger for tests and operators, an observable
// last-run record per job, and graceful shutdown that lets an in-flight
// batch finish. The jobs themselves stay idempotent; the scheduler only
// decides when to poke them.
type JobScheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]*scheduledJob
	wg   sync.WaitGroup
}

type scheduledJob struct {
	name string
	spec string
	fn   func() error

	lastRun   time.Time
	lastError string
	runs      int
}

// JobStatus is the read-only view exposed to the admin API.
type JobStatus struct {
	Name      string    `json:"name"`
	Spec      string    `json:"spec"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

func NewJobScheduler() *JobScheduler {
	return &JobScheduler{
		cron: cron.New(),
		jobs: make(map[string]*scheduledJob),
	}
}

// Register adds a named job on a cron spec (e.g. "@midnight", "0 * * * *").
func (s *JobScheduler) Register(name, spec string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	job := &scheduledJob{name: name, spec: spec, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}
	s.jobs[name] = job
	return nil
}

func (s *JobScheduler) run(job *scheduledJob) {
	s.wg.Add(1)
	defer s.wg.Done()

	err := job.fn()

	s.mu.Lock()
	job.lastRun = time.Now()
	job.runs++
	if err != nil {
		job.lastError = err.Error()
	} else {
		job.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		logrus.WithField("job", job.name).Errorf("Scheduled job failed: %v", err)
	}
}

// Start begins firing jobs on their cron specs.
func (s *JobScheduler) Start() {
	s.cron.Start()
	logrus.Infof("Job scheduler started with %d jobs", len(s.jobs))
}

// Stop stops scheduling new runs and waits (bounded by ctx) for in-flight
// jobs to finish.
func (s *JobScheduler) Stop(ctx context.Context) error {
	cronCtx := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job scheduler shutdown timed out: %w", ctx.Err())
	}
}

// TriggerNow runs a job immediately, outside its cron spec. Used by the
// admin trigger endpoint and tests.
func (s *JobScheduler) TriggerNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.run(job)

	s.mu.Lock()
	defer s.mu.Unlock()
	if job.lastError != "" {
		return fmt.Errorf("job %q failed: %s", name, job.lastError)
	}
	return nil
}

// LastRun reports when a job last ran (zero time if never).
func (s *JobScheduler) LastRun(name string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown job %q", name)
	}
	return job.lastRun, nil
}

// Jobs returns the status of every registered job.
func (s *JobScheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		statuses = append(statuses, JobStatus{
			Name:      job.name,
			Spec:      job.spec,
			LastRun:   job.lastRun,
			LastError: job.lastError,
			Runs:      job.runs,
		})
	}
	return statuses
}
