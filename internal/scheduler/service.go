// Package scheduler arms the poll loop: one run at start, then on the
// configured schedule, never two runs at once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wifistatus/pkg/logx"
)

// Job is one poll cycle. It must return once ctx is done.
type Job func(ctx context.Context)

type Service struct {
	spec ParsedSpec
	log  logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	runCtx  context.Context
	cancel  context.CancelFunc
	startWG sync.WaitGroup
	wrapped cron.Job
}

func New(spec ParsedSpec, job Job, log logx.Logger) (*Service, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is nil")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{spec: spec, log: log}
	if _, err := spec.Schedule(); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	// The same wrapped job serves the startup run and every tick, so the
	// skip-if-running guard covers both.
	s.wrapped = cron.NewChain(
		cron.Recover(cronLogger{log: log}),
		cron.SkipIfStillRunning(cronLogger{log: log}),
	).Then(cron.FuncJob(func() {
		s.mu.Lock()
		ctx := s.runCtx
		s.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}
		job(ctx)
	}))
	return s, nil
}

// Start runs the job once in the background and arms the schedule.
// It is a no-op if already started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return nil
	}
	sched, err := s.spec.Schedule()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	c := cron.New(cron.WithLogger(cronLogger{log: s.log}))
	c.Schedule(sched, s.wrapped)
	s.c = c
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.startWG.Add(1)
	go func() {
		defer s.startWG.Done()
		s.wrapped.Run()
	}()
	c.Start()
	s.log.Info("poll loop started", logx.String("schedule", s.spec.String()))
	return nil
}

// Stop disarms the schedule, cancels the in-flight cycle and waits for it
// until ctx ends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	start := time.Now()
	cancel()

	done := make(chan struct{})
	go func() {
		<-c.Stop().Done()
		s.startWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("poll loop stopped", logx.Duration("took", time.Since(start)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next is the next scheduled trigger, zero when stopped.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	for _, e := range s.c.Entries() {
		return e.Next
	}
	return time.Time{}
}
