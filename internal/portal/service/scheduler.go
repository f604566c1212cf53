package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/robfig/cron/v3"
)

const (
	DefaultRefreshSchedule = "0 8,12,16 * * *"
	DefaultRefreshTimezone = "Asia/Kolkata"
)

// FeedScheduler refreshes market prices on a cron schedule in a fixed
// timezone, plus once at start.
type FeedScheduler struct {
	Prices  feeds.MarketPriceProvider
	Logger  *slog.Logger
	Timeout time.Duration

	cron    *cron.Cron
	loc     *time.Location
	entry   cron.EntryID
	initial chan struct{}
}

// NewFeedScheduler validates the five-field spec and timezone.
func NewFeedScheduler(prices feeds.MarketPriceProvider, spec, timezone string, logger *slog.Logger) (*FeedScheduler, error) {
	if spec == "" {
		spec = DefaultRefreshSchedule
	}
	if timezone == "" {
		timezone = DefaultRefreshTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	s := &FeedScheduler{Prices: prices, Logger: logger, Timeout: time.Minute, loc: loc}
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.entry, err = s.cron.AddFunc(spec, s.refresh)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs an initial refresh in the background and starts the cron.
func (s *FeedScheduler) Start() {
	s.initial = make(chan struct{})
	go func() {
		defer close(s.initial)
		s.refresh()
	}()
	s.cron.Start()
	s.Logger.Info("feed scheduler started", "next_run", s.Next())
}

// Stop waits for running refreshes to finish.
func (s *FeedScheduler) Stop() {
	<-s.cron.Stop().Done()
	if s.initial != nil {
		<-s.initial
	}
	s.Logger.Info("feed scheduler stopped")
}

// Next reports the next scheduled refresh.
func (s *FeedScheduler) Next() time.Time {
	e := s.cron.Entry(s.entry)
	if !e.Next.IsZero() {
		return e.Next
	}
	return e.Schedule.Next(time.Now().In(s.loc))
}

func (s *FeedScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	start := time.Now()
	if err := s.Prices.Refresh(ctx); err != nil {
		s.Logger.Warn("market price refresh failed", "error", err)
		return
	}
	s.Logger.Info("market prices refreshed", "duration", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debug("cron: "+msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error("cron: "+msg, append(kv, "error", err)...)
}
