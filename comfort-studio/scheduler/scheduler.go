package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/pipeline"
)

// SlotKind is what a daily slot does
type SlotKind string

const (
	Regular SlotKind = "regular"
	Backup  SlotKind = "backup"
	Health  SlotKind = "health"
)

// Slot is a time of day at which the scheduler acts
type Slot struct {
	Kind   SlotKind
	Hour   int
	Minute int
}

// DefaultSlots are 09:00 regular, 15:00 backup and the midnight health check
var DefaultSlots = []Slot{
	{Kind: Health, Hour: 0, Minute: 0},
	{Kind: Regular, Hour: 9, Minute: 0},
	{Kind: Backup, Hour: 15, Minute: 0},
}

// WeeklyPlan maps each weekday to the content type produced that day
type WeeklyPlan map[time.Weekday]models.ContentType

// DefaultWeeklyPlan is the channel's publishing week
func DefaultWeeklyPlan() WeeklyPlan {
	return WeeklyPlan{
		time.Monday:    models.DailyComfort,
		time.Tuesday:   models.HealingSound,
		time.Wednesday: models.OvercomeStory,
		time.Thursday:  models.DailyComfort,
		time.Friday:    models.CustomComfort,
		time.Saturday:  models.HealingSound,
		time.Sunday:    models.OneLineChallenge,
	}
}

// For returns the content type of day, daily comfort when the plan has a gap
func (p WeeklyPlan) For(day time.Weekday) models.ContentType {
	if ct, ok := p[day]; ok {
		return ct
	}
	return models.DailyComfort
}

// Runner executes one production run
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// HealthFunc checks that the machine can still produce videos
type HealthFunc func(ctx context.Context) error

// Options configure a Scheduler
type Options struct {
	Plan     WeeklyPlan
	Slots    []Slot
	Location *time.Location
	Upload   bool
	Privacy  string
	Health   HealthFunc
	Logger   logrus.FieldLogger
	Now      func() time.Time
	// After is time.After unless a test replaces it
	After func(d time.Duration) <-chan time.Time
}

// Scheduler fires production runs at fixed times of day. Runs never overlap.
type Scheduler struct {
	runner Runner
	opts   Options

	mu      sync.Mutex
	regular map[string]bool
}

// New creates a scheduler with defaults filled in
func New(runner Runner, opts Options) *Scheduler {
	if opts.Plan == nil {
		opts.Plan = DefaultWeeklyPlan()
	}
	if len(opts.Slots) == 0 {
		opts.Slots = DefaultSlots
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.After == nil {
		opts.After = time.After
	}
	return &Scheduler{runner: runner, opts: opts, regular: map[string]bool{}}
}

// NextRun returns the first slot strictly after now, in the scheduler's
// location
func (s *Scheduler) NextRun(now time.Time) (time.Time, Slot) {
	now = now.In(s.opts.Location)
	var (
		best     time.Time
		bestSlot Slot
	)
	for dayOffset := 0; dayOffset <= 1; dayOffset++ {
		for _, slot := range s.opts.Slots {
			at := time.Date(now.Year(), now.Month(), now.Day()+dayOffset, slot.Hour, slot.Minute, 0, 0, s.opts.Location)
			if !at.After(now) {
				continue
			}
			if best.IsZero() || at.Before(best) {
				best, bestSlot = at, slot
			}
		}
		if !best.IsZero() {
			break
		}
	}
	return best, bestSlot
}

// Start blocks, firing slots until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.opts.Logger.Info("🎯 maro scheduler started")
	for _, slot := range s.opts.Slots {
		s.opts.Logger.WithField("slot", slot.Kind).Infof("📅 %02d:%02d daily", slot.Hour, slot.Minute)
	}
	if err := s.Fire(ctx, Slot{Kind: Health}, s.opts.Now()); err != nil {
		s.opts.Logger.WithError(err).Warn("⚠️ startup health check failed")
	}

	for {
		at, slot := s.NextRun(s.opts.Now())
		wait := at.Sub(s.opts.Now())
		s.opts.Logger.WithFields(logrus.Fields{
			"slot": slot.Kind,
			"at":   at.Format(time.RFC3339),
		}).Info("⏰ waiting for next slot")

		select {
		case <-ctx.Done():
			s.opts.Logger.Info("🛑 scheduler stopped")
			return ctx.Err()
		case <-s.opts.After(wait):
		}

		if err := s.Fire(ctx, slot, at); err != nil {
			s.opts.Logger.WithError(err).WithField("slot", slot.Kind).Error("❌ scheduled slot failed")
		}
	}
}

// Fire performs slot as if it were due at at
func (s *Scheduler) Fire(ctx context.Context, slot Slot, at time.Time) error {
	at = at.In(s.opts.Location)
	day := at.Format("2006-01-02")
	logger := s.opts.Logger.WithFields(logrus.Fields{"slot": slot.Kind, "day": day})

	switch slot.Kind {
	case Health:
		if s.opts.Health == nil {
			return nil
		}
		if err := s.opts.Health(ctx); err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		logger.Info("✅ system health OK")
		return nil

	case Regular:
		ct := s.opts.Plan.For(at.Weekday())
		logger.WithField("content_type", ct).Info("🚀 scheduled content run")
		err := s.run(ctx, ct)
		s.mu.Lock()
		s.regular[day] = err == nil
		s.mu.Unlock()
		return err

	case Backup:
		s.mu.Lock()
		ok, ran := s.regular[day]
		s.mu.Unlock()
		if !ran || ok {
			logger.Debug("regular run did not fail today, skipping backup")
			return nil
		}
		logger.Info("🔄 regular run failed, producing backup content")
		return s.run(ctx, models.DailyComfort)

	default:
		return fmt.Errorf("unknown slot kind %q", slot.Kind)
	}
}

func (s *Scheduler) run(ctx context.Context, ct models.ContentType) error {
	_, err := s.runner.Run(ctx, pipeline.Request{
		Type:    ct,
		Upload:  s.opts.Upload,
		Privacy: s.opts.Privacy,
	})
	return err
}

// RegularSucceeded reports the outcome of the regular run on day
// (YYYY-MM-DD) and whether one happened
func (s *Scheduler) RegularSucceeded(day string) (ok, ran bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, ran = s.regular[day]
	return ok, ran
}
