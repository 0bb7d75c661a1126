// Package jobs runs periodic housekeeping next to the API server.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DefaultInterval is how often maintenance runs.
const DefaultInterval = 15 * time.Minute

const taskTimeout = time.Minute

// Task is one housekeeping step. It reports how many items it cleaned up.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

// SessionPruner is implemented by *auth/repo.SessionRepo.
type SessionPruner interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

func ExpiredSessions(p SessionPruner) Task {
	return Task{Name: "expire sessions", Run: p.DeactivateExpired}
}

// QuizSweeper is implemented by *quiz.MemoryStore.
type QuizSweeper interface {
	Sweep(now time.Time) int
}

func StaleQuizzes(s QuizSweeper) Task {
	return Task{Name: "sweep quiz sessions", Run: func(_ context.Context, now time.Time) (int64, error) {
		return int64(s.Sweep(now)), nil
	}}
}

// CounterSweeper is implemented by *ratelimit.MemoryStore.
type CounterSweeper interface {
	Sweep() int
}

func RateLimitWindows(s CounterSweeper) Task {
	return Task{Name: "sweep rate limit windows", Run: func(context.Context, time.Time) (int64, error) {
		return int64(s.Sweep()), nil
	}}
}

// Maintenance schedules its tasks with gocron.
type Maintenance struct {
	scheduler *gocron.Scheduler
	tasks     []Task
	interval  time.Duration
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewMaintenance(interval time.Duration, logger *zap.SugaredLogger, tasks ...Task) *Maintenance {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Maintenance{scheduler: s, tasks: tasks, interval: interval, logger: logger, now: time.Now}
}

// Start schedules the run and returns immediately.
func (m *Maintenance) Start() error {
	if len(m.tasks) == 0 {
		return errors.New("jobs: no maintenance tasks")
	}
	if _, err := m.scheduler.Every(m.interval).Do(m.RunOnce, context.Background()); err != nil {
		return err
	}
	m.scheduler.StartAsync()
	m.logger.Infow("maintenance scheduled", "interval", m.interval.String(), "tasks", len(m.tasks))
	return nil
}

func (m *Maintenance) Stop() { m.scheduler.Stop() }

// RunOnce runs every task in order. A failing task does not stop the rest;
// the first error is returned.
func (m *Maintenance) RunOnce(ctx context.Context) error {
	var first error
	for _, t := range m.tasks {
		tctx, cancel := context.WithTimeout(ctx, taskTimeout)
		n, err := t.Run(tctx, m.now())
		cancel()
		if err != nil {
			m.logger.Errorw("maintenance task failed", "task", t.Name, "err", err)
			if first == nil {
				first = err
			}
			continue
		}
		if n > 0 {
			m.logger.Infow("maintenance task done", "task", t.Name, "removed", n)
		}
	}
	return first
}
