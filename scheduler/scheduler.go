// Package scheduler runs cron-scheduled jobs on the frame loop. Cron decides
// when a job is due on its own goroutine; the job itself runs during the
// update phase of the next frame, so it may touch application state freely.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/doodle"
)

// JobFunc is the body of a job. It runs on the loop goroutine.
type JobFunc func(ctx context.Context, frame doodle.Frame) error

// JobStatus represents the status of a job
type JobStatus string

const (
	// JobStatusScheduled indicates a job is waiting for its next run
	JobStatusScheduled JobStatus = "scheduled"
	// JobStatusCompleted indicates the last run succeeded
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the last run failed
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates a job has been cancelled
	JobStatusCancelled JobStatus = "cancelled"
)

// Job describes a scheduled job.
type Job struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Status    JobStatus  `json:"status"`
	Runs      int        `json:"runs"`
	Dropped   int        `json:"dropped"`
	CreatedAt time.Time  `json:"createdAt"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	NextRun   *time.Time `json:"nextRun,omitempty"`
}

// JobExecution records details about a single execution of a job
type JobExecution struct {
	JobID     string        `json:"jobId"`
	Frame     uint64        `json:"frame"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
}

type jobEntry struct {
	job     Job
	fn      JobFunc
	entryID cron.EntryID
	history []JobExecution
}

// Scheduler is a doodle subsystem.
type Scheduler struct {
	name         string
	historyLimit int
	cron         *cron.Cron
	due          chan string
	logger       doodle.Logger
	now          func() time.Time

	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

var (
	_ doodle.Subsystem     = (*Scheduler)(nil)
	_ doodle.Initializable = (*Scheduler)(nil)
	_ doodle.Updater       = (*Scheduler)(nil)
	_ doodle.Stoppable     = (*Scheduler)(nil)
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithName sets the subsystem name. The default is "scheduler".
func WithName(name string) Option {
	return func(s *Scheduler) { s.name = name }
}

// WithQueueSize sets how many due runs may wait for the next frame.
func WithQueueSize(size int) Option {
	return func(s *Scheduler) {
		if size > 0 {
			s.due = make(chan string, size)
		}
	}
}

// WithHistoryLimit sets how many executions are kept per job.
func WithHistoryLimit(limit int) Option {
	return func(s *Scheduler) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithCronOptions passes options to the underlying cron instance.
func WithCronOptions(opts ...cron.Option) Option {
	return func(s *Scheduler) { s.cron = cron.New(opts...) }
}

// New creates a scheduler. Jobs may be added before or after the runner
// starts.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		name:         "scheduler",
		historyLimit: 20,
		cron:         cron.New(),
		due:          make(chan string, 64),
		now:          time.Now,
		jobs:         make(map[string]*jobEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Name() string { return s.name }

// Init starts the cron clock.
func (s *Scheduler) Init(_ context.Context, host doodle.Host) error {
	s.logger = host.Logger()
	s.cron.Start()
	s.logger.Debug("Scheduler started", "jobs", len(s.Jobs()))
	return nil
}

// Stop halts the cron clock and waits for in-flight cron callbacks.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// ScheduleRecurring adds a job using a standard five-field cron spec or a
// descriptor such as "@every 5s".
func (s *Scheduler) ScheduleRecurring(name, spec string, fn JobFunc) (string, error) {
	if fn == nil {
		return "", ErrJobFuncNil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, spec, err)
	}

	id := newJobID()
	entryID, err := s.cron.AddFunc(spec, func() { s.enqueue(id) })
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, spec, err)
	}

	s.mu.Lock()
	s.jobs[id] = &jobEntry{
		job: Job{
			ID:        id,
			Name:      name,
			Schedule:  spec,
			Status:    JobStatusScheduled,
			CreatedAt: s.now(),
		},
		fn:      fn,
		entryID: entryID,
	}
	s.mu.Unlock()
	return id, nil
}

// Trigger queues a job to run on the next frame, independent of its schedule.
func (s *Scheduler) Trigger(id string) error {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	cancelled := ok && entry.job.Status == JobStatusCancelled
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if cancelled {
		return fmt.Errorf("%w: %s", ErrJobCancelled, id)
	}

	select {
	case s.due <- id:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, id)
	}
}

// enqueue runs on the cron goroutine.
func (s *Scheduler) enqueue(id string) {
	select {
	case s.due <- id:
	default:
		s.mu.Lock()
		if entry, ok := s.jobs[id]; ok {
			entry.job.Dropped++
		}
		s.mu.Unlock()
	}
}

// Cancel removes a job from the schedule. Runs already queued are skipped.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	s.cron.Remove(entry.entryID)
	entry.job.Status = JobStatusCancelled
	entry.job.NextRun = nil
	return nil
}

// Update runs the jobs that were due when the frame's update started. Jobs
// queued while it runs, including by a job triggering itself, wait for the
// next frame. Job failures are recorded and logged; they do not fail the
// frame.
func (s *Scheduler) Update(ctx context.Context, frame doodle.Frame) error {
	for n := len(s.due); n > 0; n-- {
		select {
		case id := <-s.due:
			s.run(ctx, frame, id)
		default:
			return nil
		}
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context, frame doodle.Frame, id string) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	cancelled := ok && entry.job.Status == JobStatusCancelled
	s.mu.RUnlock()
	if !ok || cancelled {
		return
	}

	start := s.now()
	err := entry.fn(ctx, frame)
	exec := JobExecution{
		JobID:     id,
		Frame:     frame.Index,
		StartTime: start,
		Duration:  s.now().Sub(start),
		Status:    JobStatusCompleted,
	}
	if err != nil {
		exec.Status = JobStatusFailed
		exec.Error = err.Error()
		if s.logger != nil {
			s.logger.Error("Scheduled job failed", "job", entry.job.Name, "id", id, "frame", frame.Index, "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry.job.Runs++
	entry.job.LastRun = &start
	if entry.job.Status != JobStatusCancelled {
		entry.job.Status = exec.Status
		if next := s.cron.Entry(entry.entryID).Next; !next.IsZero() {
			entry.job.NextRun = &next
		}
	}
	entry.history = append(entry.history, exec)
	if len(entry.history) > s.historyLimit {
		entry.history = slices.Delete(entry.history, 0, len(entry.history)-s.historyLimit)
	}
}

// Job returns a job by ID.
func (s *Scheduler) Job(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return entry.job, nil
}

// Jobs returns all jobs ordered by creation time.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, entry := range s.jobs {
		out = append(out, entry.job)
	}
	slices.SortFunc(out, func(a, b Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// History returns the recorded executions of a job, oldest first.
func (s *Scheduler) History(id string) ([]JobExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return slices.Clone(entry.history), nil
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
