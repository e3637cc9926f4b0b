package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "libretto/internal/bookings/errors"
	"libretto/internal/bookings/validator"
	"libretto/pkg/clock"
	"libretto/pkg/config"
	mongotx "libretto/pkg/db/mongo"
	apperrors "libretto/pkg/errors"
	"libretto/pkg/logger"
	"libretto/pkg/model"
)

// --- Mocks ---

type mockBookingRepo struct {
	createFn                func(ctx context.Context, b *model.Booking) error
	findByIDFn              func(ctx context.Context, id string) (*model.Booking, error)
	findAllFn               func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	countFn                 func(ctx context.Context) (int64, error)
	updateFn                func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error)
	deleteFn                func(ctx context.Context, id string) error
	findActiveOverlappingFn func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error)
	findExpiredFn           func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
	deactivateByIDsFn       func(ctx context.Context, ids []string) (int64, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, b *model.Booking) error {
	return m.createFn(ctx, b)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockBookingRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return m.findAllFn(ctx, limit, offset)
}

func (m *mockBookingRepo) Count(ctx context.Context) (int64, error) {
	return m.countFn(ctx)
}

func (m *mockBookingRepo) Update(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
	return m.updateFn(ctx, id, b)
}

func (m *mockBookingRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockBookingRepo) FindActiveOverlapping(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
	return m.findActiveOverlappingFn(ctx, bookID, start, end, excludeID)
}

func (m *mockBookingRepo) FindExpired(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	return m.findExpiredFn(ctx, cutoff)
}

func (m *mockBookingRepo) DeactivateByIDs(ctx context.Context, ids []string) (int64, error) {
	return m.deactivateByIDsFn(ctx, ids)
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockLockRepo struct {
	mu    sync.Mutex
	held  map[string]bool
	fails bool
}

func newMockLockRepo() *mockLockRepo {
	return &mockLockRepo{held: make(map[string]bool)}
}

func (m *mockLockRepo) Create(ctx context.Context, lock *model.BookingLock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return apperrors.Internal("lock storage down", nil)
	}
	if m.held[lock.ID] {
		return apperrors.Conflict("lock already held for " + lock.ID)
	}
	m.held[lock.ID] = true
	return nil
}

func (m *mockLockRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, id)
	return nil
}

type mockDirectory struct {
	bookExistsFn func(ctx context.Context, id string) (bool, error)
	userExistsFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockDirectory) BookExists(ctx context.Context, id string) (bool, error) {
	if m.bookExistsFn != nil {
		return m.bookExistsFn(ctx, id)
	}
	return true, nil
}

func (m *mockDirectory) UserExists(ctx context.Context, id string) (bool, error) {
	if m.userExistsFn != nil {
		return m.userExistsFn(ctx, id)
	}
	return true, nil
}

type mockPublisher struct {
	created   atomic.Int64
	updated   atomic.Int64
	cancelled atomic.Int64
	expired   atomic.Int64
}

func (m *mockPublisher) BookingCreated(context.Context, *model.Booking) error {
	m.created.Add(1)
	return nil
}

func (m *mockPublisher) BookingUpdated(context.Context, *model.Booking) error {
	m.updated.Add(1)
	return nil
}

func (m *mockPublisher) BookingCancelled(context.Context, *model.Booking) error {
	m.cancelled.Add(1)
	return nil
}

func (m *mockPublisher) BookingExpired(context.Context, *model.Booking) error {
	m.expired.Add(1)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// --- Helpers ---

const (
	testBookID    = "64f000000000000000000001"
	testUserID    = "64f000000000000000000002"
	testBookingID = "64f0000000000000000000aa"
	otherID       = "64f0000000000000000000bb"
)

func testConfig() *config.Config {
	return &config.Config{
		CancelGraceOffset: 3 * time.Hour,
		SlotLockTTL:       10 * time.Second,
		Log:               logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
}

func newTestService(repo *mockBookingRepo, lockRepo *mockLockRepo, dir *mockDirectory, pub *mockPublisher, clk clock.Clock) BookingService {
	cfg := testConfig()
	if lockRepo == nil {
		lockRepo = newMockLockRepo()
	}
	if dir == nil {
		dir = &mockDirectory{}
	}
	if pub == nil {
		pub = &mockPublisher{}
	}
	if clk == nil {
		clk = clock.System()
	}
	return NewBookingService(repo, lockRepo, dir, validator.NewBookingValidator(cfg.Log), pub, clk, cfg)
}

func validBooking(start, end time.Time) *model.Booking {
	return &model.Booking{
		BookID:    testBookID,
		UserID:    testUserID,
		StartTime: start,
		EndTime:   end,
	}
}

func hours(n int) time.Time {
	return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Hour)
}

// --- Create ---

func TestCreateSuccess(t *testing.T) {
	var stored *model.Booking
	repo := &mockBookingRepo{
		findActiveOverlappingFn: func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, b *model.Booking) error {
			b.ID = testBookingID
			stored = b
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestService(repo, nil, nil, pub, nil)

	booking := validBooking(hours(0), hours(2))
	if err := svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if stored == nil {
		t.Fatal("booking was not persisted")
	}
	if !stored.IsActive() {
		t.Error("new booking should default to active")
	}
	if stored.Active == nil {
		t.Error("active flag should be materialized on create")
	}
	if booking.ID != testBookingID {
		t.Errorf("expected assigned ID %s, got %q", testBookingID, booking.ID)
	}
	if pub.created.Load() != 1 {
		t.Errorf("expected 1 created event, got %d", pub.created.Load())
	}
}

func TestCreateConflictOnOverlap(t *testing.T) {
	repo := &mockBookingRepo{
		findActiveOverlappingFn: func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: otherID, BookID: bookID, StartTime: hours(-1), EndTime: hours(1)},
			}, nil
		},
		createFn: func(ctx context.Context, b *model.Booking) error {
			t.Fatal("Create must not be called when the interval conflicts")
			return nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	err := svc.Create(context.Background(), validBooking(hours(0), hours(2)))
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCreateAdjacentIntervalsAllowed(t *testing.T) {
	// Half-open intervals: a booking ending at T does not block one starting at T.
	var queriedStart, queriedEnd time.Time
	repo := &mockBookingRepo{
		findActiveOverlappingFn: func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
			queriedStart, queriedEnd = start, end
			return nil, nil
		},
		createFn: func(ctx context.Context, b *model.Booking) error {
			b.ID = testBookingID
			return nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	if err := svc.Create(context.Background(), validBooking(hours(2), hours(4))); err != nil {
		t.Fatalf("adjacent booking rejected: %v", err)
	}
	if !queriedStart.Equal(hours(2)) || !queriedEnd.Equal(hours(4)) {
		t.Errorf("overlap query used wrong bounds: [%v, %v)", queriedStart, queriedEnd)
	}
}

func TestCreateValidationFailure(t *testing.T) {
	repo := &mockBookingRepo{
		createFn: func(ctx context.Context, b *model.Booking) error {
			t.Fatal("Create must not be called for invalid input")
			return nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	cases := []struct {
		name    string
		booking *model.Booking
	}{
		{"end before start", validBooking(hours(2), hours(0))},
		{"zero-length interval", validBooking(hours(1), hours(1))},
		{"missing book ID", &model.Booking{UserID: testUserID, StartTime: hours(0), EndTime: hours(1)}},
		{"malformed user ID", &model.Booking{BookID: testBookID, UserID: "not-an-oid", StartTime: hours(0), EndTime: hours(1)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(context.Background(), tc.booking)
			appErr := apperrors.AsAppError(err)
			if appErr.Code != apperrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateUnknownReferences(t *testing.T) {
	repo := &mockBookingRepo{
		createFn: func(ctx context.Context, b *model.Booking) error {
			t.Fatal("Create must not be called for unknown references")
			return nil
		},
	}

	t.Run("unknown book", func(t *testing.T) {
		dir := &mockDirectory{
			bookExistsFn: func(ctx context.Context, id string) (bool, error) { return false, nil },
		}
		svc := newTestService(repo, nil, dir, nil, nil)
		err := svc.Create(context.Background(), validBooking(hours(0), hours(1)))
		if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		dir := &mockDirectory{
			userExistsFn: func(ctx context.Context, id string) (bool, error) { return false, nil },
		}
		svc := newTestService(repo, nil, dir, nil, nil)
		err := svc.Create(context.Background(), validBooking(hours(0), hours(1)))
		if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestCreateLockHeldReturnsConflict(t *testing.T) {
	repo := &mockBookingRepo{
		createFn: func(ctx context.Context, b *model.Booking) error {
			t.Fatal("Create must not run while the lock is held elsewhere")
			return nil
		},
	}
	lockRepo := newMockLockRepo()
	lockRepo.held["book_"+testBookID] = true

	svc := newTestService(repo, lockRepo, nil, nil, nil)
	err := svc.Create(context.Background(), validBooking(hours(0), hours(1)))
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict while lock held, got %v", err)
	}
}

func TestCreateReleasesLock(t *testing.T) {
	repo := &mockBookingRepo{
		findActiveOverlappingFn: func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, b *model.Booking) error {
			b.ID = testBookingID
			return nil
		},
	}
	lockRepo := newMockLockRepo()
	svc := newTestService(repo, lockRepo, nil, nil, nil)

	if err := svc.Create(context.Background(), validBooking(hours(0), hours(1))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if lockRepo.held["book_"+testBookID] {
		t.Error("lock was not released after create")
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	var created atomic.Int64
	repo := &mockBookingRepo{
		findActiveOverlappingFn: func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, b *model.Booking) error {
			// Widen the race window while the lock is held.
			time.Sleep(10 * time.Millisecond)
			b.ID = testBookingID
			created.Add(1)
			return nil
		},
	}
	lockRepo := newMockLockRepo()
	svc := newTestService(repo, lockRepo, nil, nil, nil)

	const writers = 8
	var conflicts atomic.Int64
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			err := svc.Create(context.Background(), validBooking(hours(0), hours(2)))
			if apperrors.IsConflict(err) {
				conflicts.Add(1)
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created.Load()+conflicts.Load() != writers {
		t.Fatalf("accounting mismatch: %d created, %d conflicts", created.Load(), conflicts.Load())
	}
	if created.Load() == 0 {
		t.Fatal("no writer succeeded")
	}
}

// --- GetAll ---

func TestGetAllNormalizesPagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	repo := &mockBookingRepo{
		countFn: func(ctx context.Context) (int64, error) { return 0, nil },
		findAllFn: func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	if _, _, err := svc.GetAll(context.Background(), 0, -5); err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if gotLimit != config.DefaultPaginationLimit {
		t.Errorf("expected default limit %d, got %d", config.DefaultPaginationLimit, gotLimit)
	}
	if gotOffset != 0 {
		t.Errorf("expected offset clamped to 0, got %d", gotOffset)
	}

	if _, _, err := svc.GetAll(context.Background(), 10_000, 0); err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if gotLimit != config.MaxPaginationLimit {
		t.Errorf("expected limit capped at %d, got %d", config.MaxPaginationLimit, gotLimit)
	}
}

// --- Update ---

func TestUpdatePartialMerge(t *testing.T) {
	existing := validBooking(hours(0), hours(2))
	existing.ID = testBookingID
	active := true
	existing.Active = &active

	var updated *model.Booking
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			cp := *existing
			return &cp, nil
		},
		findActiveOverlappingFn: func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
			if excludeID != testBookingID {
				t.Errorf("overlap check must exclude the booking being updated, got excludeID %q", excludeID)
			}
			return nil, nil
		},
		updateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			updated = b
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	newEnd := hours(3)
	result, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{EndTime: &newEnd})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if !updated.EndTime.Equal(newEnd) {
		t.Errorf("end_time not updated: %v", updated.EndTime)
	}
	if !updated.StartTime.Equal(existing.StartTime) {
		t.Errorf("start_time should keep stored value, got %v", updated.StartTime)
	}
	if updated.BookID != existing.BookID || updated.UserID != existing.UserID {
		t.Error("omitted references should keep stored values")
	}
	if result.ID != testBookingID {
		t.Errorf("returned booking should carry its ID, got %q", result.ID)
	}
}

func TestUpdateConflict(t *testing.T) {
	existing := validBooking(hours(0), hours(2))
	existing.ID = testBookingID

	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			cp := *existing
			return &cp, nil
		},
		findActiveOverlappingFn: func(ctx context.Context, bookID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: otherID, BookID: bookID, StartTime: hours(3), EndTime: hours(5)},
			}, nil
		},
		updateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			t.Fatal("Update must not run when the new interval conflicts")
			return nil, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	newStart, newEnd := hours(3), hours(4)
	_, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{StartTime: &newStart, EndTime: &newEnd})
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateMergedIntervalInvalid(t *testing.T) {
	// New start after the stored end must fail after the merge even though
	// the partial update is well formed on its own.
	existing := validBooking(hours(0), hours(2))
	existing.ID = testBookingID

	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			cp := *existing
			return &cp, nil
		},
		updateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			t.Fatal("Update must not run for an invalid merged interval")
			return nil, nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	newStart := hours(5)
	_, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{StartTime: &newStart})
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			return nil, bookingserrors.ErrNotFound
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	newEnd := hours(3)
	_, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{EndTime: &newEnd})
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

// --- Cancel ---

func TestCancelSetsGraceEnd(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	existing := validBooking(hours(0), hours(48))
	existing.ID = testBookingID

	var updated *model.Booking
	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			cp := *existing
			return &cp, nil
		},
		updateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			updated = b
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestService(repo, nil, nil, pub, clock.Fixed(now))

	result, err := svc.Cancel(context.Background(), testBookingID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if updated.IsActive() {
		t.Error("cancelled booking must be inactive")
	}
	wantEnd := now.Add(3 * time.Hour)
	if !updated.EndTime.Equal(wantEnd) {
		t.Errorf("expected end_time %v, got %v", wantEnd, updated.EndTime)
	}
	if result.IsActive() {
		t.Error("returned booking must be inactive")
	}
	if pub.cancelled.Load() != 1 {
		t.Errorf("expected 1 cancelled event, got %d", pub.cancelled.Load())
	}
}

func TestCancelIdempotent(t *testing.T) {
	inactive := false
	existing := validBooking(hours(0), hours(2))
	existing.ID = testBookingID
	existing.Active = &inactive

	repo := &mockBookingRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
			cp := *existing
			return &cp, nil
		},
		updateFn: func(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
			t.Fatal("cancelling an inactive booking must not write")
			return nil, nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestService(repo, nil, nil, pub, nil)

	result, err := svc.Cancel(context.Background(), testBookingID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if result.IsActive() {
		t.Error("booking should stay inactive")
	}
	if !result.EndTime.Equal(existing.EndTime) {
		t.Error("end_time of an already cancelled booking must not move")
	}
	if pub.cancelled.Load() != 0 {
		t.Error("no event should be published for a no-op cancel")
	}
}

// --- Delete ---

func TestDeleteNotFound(t *testing.T) {
	repo := &mockBookingRepo{
		deleteFn: func(ctx context.Context, id string) error {
			return bookingserrors.ErrNotFound
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	err := svc.Delete(context.Background(), testBookingID)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestDeleteSuccess(t *testing.T) {
	var deletedID string
	repo := &mockBookingRepo{
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := newTestService(repo, nil, nil, nil, nil)

	if err := svc.Delete(context.Background(), testBookingID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deletedID != testBookingID {
		t.Errorf("deleted wrong booking: %q", deletedID)
	}
}

// --- GetByID ---

func TestGetByIDErrors(t *testing.T) {
	t.Run("empty id", func(t *testing.T) {
		svc := newTestService(&mockBookingRepo{}, nil, nil, nil, nil)
		_, err := svc.GetByID(context.Background(), "")
		if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("invalid id format", func(t *testing.T) {
		repo := &mockBookingRepo{
			findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
				return nil, bookingserrors.ErrInvalidID
			},
		}
		svc := newTestService(repo, nil, nil, nil, nil)
		_, err := svc.GetByID(context.Background(), "zzz")
		if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo := &mockBookingRepo{
			findByIDFn: func(ctx context.Context, id string) (*model.Booking, error) {
				return nil, bookingserrors.ErrNotFound
			},
		}
		svc := newTestService(repo, nil, nil, nil, nil)
		_, err := svc.GetByID(context.Background(), testBookingID)
		if !apperrors.IsNotFound(err) {
			t.Fatalf("expected not-found, got %v", err)
		}
	})
}
