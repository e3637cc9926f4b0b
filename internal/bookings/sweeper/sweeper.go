package sweeper

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"libretto/internal/bookings/events"
	"libretto/internal/bookings/repository"
	"libretto/pkg/clock"
	"libretto/pkg/config"
	apperrors "libretto/pkg/errors"
	"libretto/pkg/model"
)

// Sweeper periodically deactivates active bookings whose end time has fallen
// behind the expiry cutoff. Each cycle is independent: a failing sweep is
// logged and the next tick runs as usual.
type Sweeper struct {
	repo      repository.BookingRepository
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(repo repository.BookingRepository, publisher events.Publisher, clk clock.Clock, cfg *config.Config) *Sweeper {
	return &Sweeper{
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. It returns immediately;
// the loop runs on its own goroutine.
func (s *Sweeper) Start() {
	go s.run()
	s.cfg.Log.Info("Expiry sweeper started", "interval", s.cfg.SweepInterval)
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SweepInterval)
			if _, err := s.SweepOnce(ctx); err != nil {
				s.cfg.Log.Error("Sweep cycle failed", "error", err)
			}
			cancel()
		}
	}
}

// Stop signals the loop to exit and waits for the in-flight cycle to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.cfg.Log.Info("Expiry sweeper stopped")
}

// SweepOnce deactivates every active booking with end_time before
// now + CancelGraceOffset, matching the end time a cancellation would have
// assigned. The find and the update share a transaction so a booking renewed
// mid-sweep is not clobbered.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(s.cfg.CancelGraceOffset)

	var expired []*model.Booking
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var err error
		expired, err = s.repo.FindExpired(sessCtx, cutoff)
		if err != nil {
			return apperrors.Internal("Failed to find expired bookings", err)
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]string, 0, len(expired))
		for _, b := range expired {
			ids = append(ids, b.ID)
		}

		if _, err := s.repo.DeactivateByIDs(sessCtx, ids); err != nil {
			return apperrors.Internal("Failed to deactivate expired bookings", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(expired) == 0 {
		return 0, nil
	}

	inactive := false
	for _, b := range expired {
		b.Active = &inactive
		if err := s.publisher.BookingExpired(ctx, b); err != nil {
			s.cfg.Log.Warn("Booking expired event not published", "id", b.ID, "error", err)
		}
	}

	s.cfg.Log.Info("Sweep cycle completed",
		"expired_count", len(expired),
		"cutoff", cutoff,
	)
	return int64(len(expired)), nil
}
