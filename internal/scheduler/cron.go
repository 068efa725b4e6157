package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
)

// Job is a unit of scheduled work.
type Job interface{ Run(ctx context.Context) }

// FuncJob adapts a function to Job.
type FuncJob func(ctx context.Context)

// Run calls f(ctx).
func (f FuncJob) Run(ctx context.Context) { f(ctx) }

// Cron runs jobs on cron schedules. A job still running when its next tick
// fires is skipped for that tick, and a panicking job is recovered and logged.
type Cron struct {
	c      *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCron creates a scheduler in loc (time.Local when nil).
func NewCron(loc *time.Location, logger *slog.Logger) *Cron {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{c: c, logger: logger, ctx: ctx, cancel: cancel}
}

// Start begins running jobs in the background.
func (cr *Cron) Start() { cr.c.Start() }

// Stop cancels running jobs' context and waits for them to return.
func (cr *Cron) Stop() {
	cr.cancel()
	<-cr.c.Stop().Done()
}

// Add schedules job under name. expr accepts standard five-field specs and
// descriptors such as "@every 30m" or "@hourly".
func (cr *Cron) Add(name, expr string, job Job) (cron.EntryID, error) {
	logger := cr.logger.With("job", name)
	id, err := cr.c.AddFunc(expr, func() {
		start := time.Now()
		logger.Info("scheduled job started")
		job.Run(contextutil.WithLogger(cr.ctx, logger))
		logger.Info("scheduled job finished", "duration", time.Since(start))
	})
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q for job %s: %w", expr, name, err)
	}
	return id, nil
}

// Entries lists scheduled entries.
func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }

// cronLogger routes robfig/cron's logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
