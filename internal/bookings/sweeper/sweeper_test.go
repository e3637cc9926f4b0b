package sweeper

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"libretto/pkg/clock"
	"libretto/pkg/config"
	mongotx "libretto/pkg/db/mongo"
	"libretto/pkg/logger"
	"libretto/pkg/model"
)

type mockRepo struct {
	findExpiredFn     func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
	deactivateByIDsFn func(ctx context.Context, ids []string) (int64, error)
}

func (m *mockRepo) Create(context.Context, *model.Booking) error { panic("not used") }
func (m *mockRepo) FindByID(context.Context, string) (*model.Booking, error) {
	panic("not used")
}
func (m *mockRepo) FindAll(context.Context, int, int64) ([]*model.Booking, error) {
	panic("not used")
}
func (m *mockRepo) Count(context.Context) (int64, error) { panic("not used") }
func (m *mockRepo) Update(context.Context, string, *model.Booking) (*mongo.UpdateResult, error) {
	panic("not used")
}
func (m *mockRepo) Delete(context.Context, string) error { panic("not used") }
func (m *mockRepo) FindActiveOverlapping(context.Context, string, time.Time, time.Time, string) ([]*model.Booking, error) {
	panic("not used")
}

func (m *mockRepo) FindExpired(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	return m.findExpiredFn(ctx, cutoff)
}

func (m *mockRepo) DeactivateByIDs(ctx context.Context, ids []string) (int64, error) {
	return m.deactivateByIDsFn(ctx, ids)
}

func (m *mockRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type countingPublisher struct {
	expired atomic.Int64
}

func (p *countingPublisher) BookingCreated(context.Context, *model.Booking) error   { return nil }
func (p *countingPublisher) BookingUpdated(context.Context, *model.Booking) error   { return nil }
func (p *countingPublisher) BookingCancelled(context.Context, *model.Booking) error { return nil }
func (p *countingPublisher) BookingExpired(context.Context, *model.Booking) error {
	p.expired.Add(1)
	return nil
}
func (p *countingPublisher) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		SweepInterval:     time.Minute,
		CancelGraceOffset: 3 * time.Hour,
		Log:               logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
}

func TestSweepOnceDeactivatesExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	active := true
	expiredBookings := []*model.Booking{
		{ID: "64f0000000000000000000aa", Active: &active, EndTime: now.Add(time.Hour)},
		{ID: "64f0000000000000000000bb", Active: &active, EndTime: now.Add(2 * time.Hour)},
	}

	var gotCutoff time.Time
	var gotIDs []string
	repo := &mockRepo{
		findExpiredFn: func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
			gotCutoff = cutoff
			return expiredBookings, nil
		},
		deactivateByIDsFn: func(ctx context.Context, ids []string) (int64, error) {
			gotIDs = ids
			return int64(len(ids)), nil
		},
	}
	pub := &countingPublisher{}
	s := New(repo, pub, clock.Fixed(now), testConfig())

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}

	if n != 2 {
		t.Errorf("expected 2 expired, got %d", n)
	}
	wantCutoff := now.Add(3 * time.Hour)
	if !gotCutoff.Equal(wantCutoff) {
		t.Errorf("expected cutoff %v, got %v", wantCutoff, gotCutoff)
	}
	if len(gotIDs) != 2 || gotIDs[0] != expiredBookings[0].ID || gotIDs[1] != expiredBookings[1].ID {
		t.Errorf("unexpected deactivated IDs: %v", gotIDs)
	}
	if pub.expired.Load() != 2 {
		t.Errorf("expected 2 expired events, got %d", pub.expired.Load())
	}
	for _, b := range expiredBookings {
		if b.IsActive() {
			t.Errorf("booking %s still marked active in published payload", b.ID)
		}
	}
}

func TestSweepOnceNothingExpired(t *testing.T) {
	repo := &mockRepo{
		findExpiredFn: func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
			return nil, nil
		},
		deactivateByIDsFn: func(ctx context.Context, ids []string) (int64, error) {
			t.Fatal("DeactivateByIDs must not run with nothing expired")
			return 0, nil
		},
	}
	pub := &countingPublisher{}
	s := New(repo, pub, clock.System(), testConfig())

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 expired, got %d", n)
	}
	if pub.expired.Load() != 0 {
		t.Error("no events expected")
	}
}

func TestSweepOnceFailureIsIsolated(t *testing.T) {
	calls := 0
	repo := &mockRepo{
		findExpiredFn: func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("storage down")
			}
			return nil, nil
		},
		deactivateByIDsFn: func(ctx context.Context, ids []string) (int64, error) {
			return 0, nil
		},
	}
	s := New(repo, &countingPublisher{}, clock.System(), testConfig())

	if _, err := s.SweepOnce(context.Background()); err == nil {
		t.Fatal("expected first cycle to fail")
	}
	if _, err := s.SweepOnce(context.Background()); err != nil {
		t.Fatalf("second cycle should run normally, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	ticks := make(chan struct{}, 10)
	repo := &mockRepo{
		findExpiredFn: func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
			select {
			case ticks <- struct{}{}:
			default:
			}
			return nil, nil
		},
		deactivateByIDsFn: func(ctx context.Context, ids []string) (int64, error) {
			return 0, nil
		},
	}
	cfg := testConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	s := New(repo, &countingPublisher{}, clock.System(), cfg)

	s.Start()
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ticked")
	}
	s.Stop()

	select {
	case <-s.doneCh:
	default:
		t.Fatal("loop goroutine still running after Stop")
	}
}
