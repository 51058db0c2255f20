package jobs

import (
	"context"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Job is a unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// CronJob is a Job with a cron schedule.
type CronJob interface {
	Job
	Schedule() string
}

// Runner executes cron jobs, skipping a tick while the previous run of the same job is
// still in progress.
type Runner struct {
	cron    *cron.Cron
	jobs    []CronJob
	running mapset.Set[string]
	mu      sync.Mutex
	timeout time.Duration
	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRunner registers jobs on their schedules. The runner is not started.
func NewRunner(logger *logrus.Logger, timeout time.Duration, jobs ...CronJob) (*Runner, error) {
	if logger == nil {
		logger = logrus.New()
	}

	runner := &Runner{
		cron:    cron.New(),
		jobs:    jobs,
		running: mapset.NewSet[string](),
		timeout: timeout,
		logger:  logger,
	}

	for _, job := range jobs {
		if err := runner.cron.AddFunc(job.Schedule(), func() { runner.RunOnce(runner.context(), job) }); err != nil {
			return nil, eris.Wrapf(err, "scheduling job %s with %q", job.Name(), job.Schedule())
		}
	}

	return runner, nil
}

// Start begins executing jobs on their schedules until ctx is done or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	for _, job := range r.jobs {
		r.logger.WithFields(logrus.Fields{"job": job.Name(), "schedule": job.Schedule()}).Info("job scheduled")
	}
	r.cron.Start()
}

// Stop halts the scheduler and cancels in-flight runs.
func (r *Runner) Stop() {
	r.logger.Info("stopping background jobs")
	r.cron.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// RunOnce executes job unless a run of it is already in progress. It reports whether
// the job ran.
func (r *Runner) RunOnce(ctx context.Context, job Job) bool {
	r.mu.Lock()
	if r.running.Contains(job.Name()) {
		r.mu.Unlock()
		r.logger.WithField("job", job.Name()).Warn("job is already running")
		return false
	}
	r.running.Add(job.Name())
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.running.Remove(job.Name())
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	entry := r.logger.WithField("job", job.Name())
	started := time.Now()
	if err := job.Run(ctx); err != nil {
		entry.WithField("error", err.Error()).Error("job failed")
		return true
	}
	entry.WithField("duration", time.Since(started).String()).Debug("job finished")
	return true
}

func (r *Runner) context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}
