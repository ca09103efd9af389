package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a recurring unit of background work, such as the pending-booking
// expiry sweep. It reports how many rows it affected.
type Task func(context.Context) (int, error)

type scheduledTask struct {
	name     string
	interval time.Duration
	run      Task
}

// Scheduler runs registered tasks on fixed intervals, one goroutine per
// task. A failing run is logged and the schedule keeps going.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	tasks   []scheduledTask
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler builds an empty scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Register adds a named task. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval <= 0 {
		interval = time.Minute
	}
	s.tasks = append(s.tasks, scheduledTask{name: name, interval: interval, run: task})
}

// Start launches one ticker loop per registered task. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
	s.started = true
	s.logger.Sugar().Infow("scheduler started", "tasks", len(s.tasks))
}

// Stop cancels all task loops and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, task scheduledTask) {
	defer s.wg.Done()
	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task scheduledTask) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Sugar().Errorw("task panicked", "task", task.name, "panic", r)
		}
	}()

	start := time.Now()
	affected, err := task.run(ctx)
	if err != nil {
		s.logger.Sugar().Errorw("task failed", "task", task.name, "duration", time.Since(start), "error", err)
		return
	}
	if affected > 0 {
		s.logger.Sugar().Infow("task completed", "task", task.name, "affected", affected, "duration", time.Since(start))
	}
}
