package daily

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/cortex-backend/internal/modules/catalog"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

// Generator is the catalog operation the scheduler fires.
type Generator interface {
	GenerateDailyTasks(ctx context.Context) (*catalog.DailyReport, error)
}

// Scheduler runs daily task generation at every UTC midnight.
type Scheduler struct {
	log *logger.Logger
	gen Generator

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	wg sync.WaitGroup
}

func NewScheduler(baseLog *logger.Logger, gen Generator) *Scheduler {
	return &Scheduler{
		log:   baseLog.With("component", "DailyTaskScheduler"),
		gen:   gen,
		now:   time.Now,
		after: time.After,
	}
}

// NextRun returns the first UTC midnight strictly after t.
func NextRun(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// Start launches the loop; it stops when ctx is cancelled. Wait blocks until
// an in-flight run has returned.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			next := NextRun(s.now())
			s.log.Info("Next daily generation scheduled", "at", next.Format(time.RFC3339))
			select {
			case <-ctx.Done():
				return
			case <-s.after(next.Sub(s.now())):
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Daily generation panic", "error", fmt.Errorf("panic: %v", r))
		}
	}()
	start := s.now()
	report, err := s.gen.GenerateDailyTasks(ctx)
	if err != nil {
		s.log.Warn("Daily generation failed", "error", err)
		return
	}
	s.log.Info("Daily generation finished",
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
}
