package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Default schedule for the retention sweep.
const (
	// DefaultTimezone is the fixed timezone the daily schedule runs in.
	DefaultTimezone = "Asia/Manila"

	// DefaultSweepHour is the local hour of day the sweep fires at.
	DefaultSweepHour = 3
)

// ScheduleConfig holds configuration for the daily sweep schedule.
type ScheduleConfig struct {
	// Timezone is the IANA zone name the schedule is anchored in.
	// Default: DefaultTimezone.
	Timezone string

	// Hour is the local hour of day (0-23) the sweep fires at. Nil means
	// DefaultSweepHour; zero is midnight.
	Hour *int

	Sweeper *Sweeper
	Logger  zerolog.Logger
}

// Schedule fires the retention sweep once per day at a fixed local time.
type Schedule struct {
	location *time.Location
	hour     int
	sweeper  *Sweeper
	logger   zerolog.Logger
}

// NewSchedule creates the daily sweep schedule.
func NewSchedule(cfg ScheduleConfig) (*Schedule, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}

	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	hour := DefaultSweepHour
	if cfg.Hour != nil {
		if *cfg.Hour < 0 || *cfg.Hour > 23 {
			return nil, fmt.Errorf("sweep hour %d out of range", *cfg.Hour)
		}
		hour = *cfg.Hour
	}

	return &Schedule{
		location: location,
		hour:     hour,
		sweeper:  cfg.Sweeper,
		logger:   cfg.Logger,
	}, nil
}

// NextRun returns the next scheduled sweep time after the given instant.
func (s *Schedule) NextRun(after time.Time) time.Time {
	local := after.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.location)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start runs the schedule until the context is cancelled. Each firing runs
// one sweep; sweep failures never stop the schedule.
func (s *Schedule) Start(ctx context.Context) {
	for {
		next := s.NextRun(time.Now())
		s.logger.Info().
			Time("next_run", next).
			Str("timezone", s.location.String()).
			Msg("retention sweep scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("sweep schedule stopped")
			return
		case <-timer.C:
			s.sweeper.Run(ctx)
		}
	}
}
