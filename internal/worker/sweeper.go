package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ResetTokenStore clears password reset fields that expired before now.
type ResetTokenStore interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type Observer interface {
	ObserveSweep(cleared int64, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveSweep(int64, error) {}

type Config struct {
	Interval   time.Duration
	MaxBackoff time.Duration
}

// Sweeper periodically clears expired reset tokens. Lookups already ignore
// expired tokens; the sweep keeps stale hashes from lingering in storage.
type Sweeper struct {
	cfg   Config
	store ResetTokenStore
	log   *slog.Logger
	obs   Observer
	now   func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, store ResetTokenStore, log *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}

	return &Sweeper{
		cfg:   cfg,
		store: store,
		log:   log,
		obs:   noopObserver{},
		now:   time.Now,
	}
}

func (s *Sweeper) WithObserver(obs Observer) *Sweeper {
	s.obs = obs
	return s
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

func (s *Sweeper) setReady(v bool) {
	s.readyMu.Lock()
	s.ready = v
	s.readyMu.Unlock()
}

func (s *Sweeper) Ready() bool {
	s.readyMu.RLock()
	defer s.readyMu.RUnlock()
	return s.ready
}

// SweepOnce runs a single pass and reports how many users were cleared.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cleared, err := s.store.ClearExpiredResetTokens(ctx, s.now().UTC())
	s.obs.ObserveSweep(cleared, err)
	return cleared, err
}

// Run sweeps every Interval until ctx is cancelled. After a failure the
// next attempt waits an exponential backoff instead of the interval.
func (s *Sweeper) Run(ctx context.Context) error {
	s.setReady(true)
	defer s.setReady(false)

	s.log.Info("sweeper_started", "interval", s.cfg.Interval.String())

	failures := 0
	wait := time.Duration(0)

	for {
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("sweeper_stopping")
			return nil

		case <-timer.C:
		}

		cleared, err := s.SweepOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait = ExponentialBackoff(failures, time.Second, s.cfg.MaxBackoff)
			failures++
			s.log.Error("sweep_failed", "err", err, "attempt", failures, "retry_in", wait.String())
			continue
		}

		failures = 0
		wait = s.cfg.Interval
		if cleared > 0 {
			s.log.Info("sweep_done", "cleared", cleared)
		}
	}
}
