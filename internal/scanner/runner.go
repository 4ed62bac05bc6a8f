package scanner

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Cycler runs one scan cycle
type Cycler interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// Runner runs scan cycles on a cron schedule. A cycle that is still running
// when the next tick fires makes that tick a no-op.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
	logger  zerolog.Logger
}

// NewRunner schedules s with a six-field (seconds first) cron spec
func NewRunner(baseCtx context.Context, s Cycler, spec string) (*Runner, error) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	r := &Runner{
		baseCtx: baseCtx,
		logger:  log.With().Str("component", "runner").Logger(),
	}
	r.cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{r.logger})),
	)

	if _, err := r.cron.AddFunc(spec, func() {
		if _, err := s.RunCycle(r.baseCtx); err != nil {
			r.logger.Error().Err(err).Msg("Scheduled cycle failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return r, nil
}

// Start starts the scheduler in its own goroutine
func (r *Runner) Start() {
	r.cron.Start()
	for _, e := range r.cron.Entries() {
		r.logger.Info().Time("next", e.Next).Msg("Scheduler started")
	}
}

// Stop stops the scheduler and waits for a running cycle
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("Scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
