package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fenilsonani/storage-sweep/internal/logger"
)

// Scheduler triggers the daemon's scan on a cron schedule
type Scheduler struct {
	daemon  *Daemon
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	mu      sync.Mutex
	running bool
}

// NewScheduler parses spec (standard five fields or a descriptor such as
// "@every 6h") and registers the scan job. Overlapping ticks are skipped.
func NewScheduler(d *Daemon, spec string) (*Scheduler, error) {
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)

	cl := cronLogger{d.logger}
	c := cron.New(cron.WithParser(parser), cron.WithLogger(cl), cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))

	id, err := c.AddFunc(spec, func() { d.RunScan() })
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{
		daemon: d,
		cron:   c,
		entry:  id,
		spec:   spec,
	}, nil
}

// Start starts the cron loop. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.daemon.logger.Info("Scheduler started with schedule %q", s.spec)
}

// Stop stops the loop and waits up to ten seconds for a running job
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.daemon.logger.Warn("Scheduler stop timed out")
	}

	s.running = false
	s.daemon.logger.Info("Scheduler stopped")
}

// NextRun returns the next scheduled scan time. Before Start it is
// computed from the schedule.
func (s *Scheduler) NextRun() time.Time {
	entry := s.cron.Entry(s.entry)
	if !entry.Next.IsZero() {
		return entry.Next
	}
	return entry.Schedule.Next(time.Now())
}

// PrevRun returns when the last scheduled scan started
func (s *Scheduler) PrevRun() time.Time {
	return s.cron.Entry(s.entry).Prev
}

// cronLogger routes cron's own messages into the daemon log
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
