package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule is a time based recurring trigger.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// ParseSchedule parses a standard five field cron expression or a descriptor such as @daily.
func ParseSchedule(expr string) (*Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse schedule %q", expr)
	}

	return &Schedule{expr: expr, sched: sched}, nil
}

// String returns the schedule expression.
func (s *Schedule) String() string {
	return s.expr
}

// Next returns the next activation time strictly after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// cronLogger sends scheduler logs to zap. Routine scheduler messages are debug entries.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append([]interface{}{zap.Error(err)}, keysAndValues...)...)
}

// Run calls fire with a scheduled event descriptor every time the schedule activates.
// A fire still running when the next activation comes is not overlapped, and a panicking
// fire is logged without stopping the schedule. Run blocks until ctx is done.
func (s *Schedule) Run(ctx context.Context, logger *zap.Logger, fire func(EventDescriptor)) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLog := cronLogger{sugar: logger.Sugar()}

	runner := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	runner.Schedule(s.sched, cron.FuncJob(func() {
		fire(ScheduledEvent(s.expr, time.Now()))
	}))
	runner.Start()

	<-ctx.Done()
	<-runner.Stop().Done()
}
