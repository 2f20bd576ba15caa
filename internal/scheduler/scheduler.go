// Package scheduler wires up the cron job that periodically runs ingestion
// for every configured flat.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/flateze/flateze/internal/logger"
)

// Scheduler wraps robfig/cron and manages the ingestion loop.
type Scheduler struct {
	cron *cron.Cron
	spec string
	run  func(context.Context)
	log  logger.Logger
	wg   sync.WaitGroup // immediate run started by Start
}

// New creates a Scheduler that calls run on spec, e.g. "@every 1h".
// A tick that fires while the previous run is still going is skipped.
func New(spec string, run func(context.Context), log logger.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec: spec,
		run:  run,
		log:  log,
	}
}

// Start registers the job and starts the scheduler. Also runs once
// immediately so bills show up without waiting for the first tick. The
// immediate run goes through the same chain, so a tick never overlaps it.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	job := s.cron.Entry(id).WrappedJob

	s.cron.Start()
	s.log.Infow("scheduler started", "spec", s.spec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()
	return nil
}

// Stop stops scheduling and returns a context that is done once running
// jobs, including the immediate run, finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Infow("scheduler stopping")
	cronDone := s.cron.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
