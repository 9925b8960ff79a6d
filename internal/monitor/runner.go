package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Runner triggers the checker on a fixed interval. Overlapping runs are
// skipped rather than queued. Housekeeping jobs share the same scheduler.
type Runner struct {
	cron    *gocron.Scheduler
	checker *Checker
	every   time.Duration
	log     zerolog.Logger
	cancel  context.CancelFunc
	chores  []chore
}

type chore struct {
	name  string
	every time.Duration
	fn    func() int
}

// NewRunner creates a runner; call Start to schedule it.
func NewRunner(checker *Checker, every time.Duration, log zerolog.Logger) *Runner {
	return &Runner{
		cron:    gocron.NewScheduler(time.UTC),
		checker: checker,
		every:   every,
		log:     log,
	}
}

// Housekeep registers fn to run every interval once Start is called. fn
// reports how many items it removed.
func (r *Runner) Housekeep(name string, every time.Duration, fn func() int) {
	r.chores = append(r.chores, chore{name: name, every: every, fn: fn})
}

// Start schedules the first check immediately and then every interval until
// ctx is done or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	if r.every <= 0 {
		return fmt.Errorf("monitor: check interval must be positive, got %v", r.every)
	}
	ctx, r.cancel = context.WithCancel(ctx)

	_, err := r.cron.Every(r.every).SingletonMode().Do(func() {
		if ctx.Err() != nil {
			return
		}
		r.checker.Run(ctx)
	})
	if err != nil {
		r.cancel()
		return fmt.Errorf("monitor: schedule check: %w", err)
	}
	for _, ch := range r.chores {
		if err := r.scheduleChore(ctx, ch); err != nil {
			r.cancel()
			return err
		}
	}
	r.cron.StartAsync()
	r.log.Info().Dur("every", r.every).Str("pair", r.checker.Pair).Msg("market checks scheduled")

	go func() {
		<-ctx.Done()
		r.cron.Stop()
	}()
	return nil
}

func (r *Runner) scheduleChore(ctx context.Context, ch chore) error {
	if ch.every <= 0 {
		return fmt.Errorf("monitor: %s interval must be positive, got %v", ch.name, ch.every)
	}
	_, err := r.cron.Every(ch.every).SingletonMode().WaitForSchedule().Do(func() {
		if ctx.Err() != nil {
			return
		}
		if n := ch.fn(); n > 0 {
			r.log.Debug().Str("chore", ch.name).Int("removed", n).Msg("housekeeping")
		}
	})
	if err != nil {
		return fmt.Errorf("monitor: schedule %s: %w", ch.name, err)
	}
	return nil
}

// Stop halts scheduling; an in-flight check sees a cancelled context.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.cron.Stop()
	r.log.Info().Msg("market checks stopped")
}
