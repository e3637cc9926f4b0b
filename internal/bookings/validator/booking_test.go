package validator

import (
	"io"
	"strings"
	"testing"
	"time"

	"libretto/pkg/logger"
	"libretto/pkg/model"
)

func testValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}))
}

func at(h int) time.Time {
	return time.Date(2026, 9, 1, h, 0, 0, 0, time.UTC)
}

func TestValidateBooking(t *testing.T) {
	v := testValidator()

	cases := []struct {
		name    string
		booking model.Booking
		wantErr string
	}{
		{
			name: "valid",
			booking: model.Booking{
				BookID:    "64f000000000000000000001",
				UserID:    "64f000000000000000000002",
				StartTime: at(10),
				EndTime:   at(12),
			},
		},
		{
			name: "missing book_id",
			booking: model.Booking{
				UserID:    "64f000000000000000000002",
				StartTime: at(10),
				EndTime:   at(12),
			},
			wantErr: "BookID is required",
		},
		{
			name: "malformed book_id",
			booking: model.Booking{
				BookID:    "not-an-object-id",
				UserID:    "64f000000000000000000002",
				StartTime: at(10),
				EndTime:   at(12),
			},
			wantErr: "BookID must be a valid MongoDB ObjectID",
		},
		{
			name: "missing start_time",
			booking: model.Booking{
				BookID:  "64f000000000000000000001",
				UserID:  "64f000000000000000000002",
				EndTime: at(12),
			},
			wantErr: "StartTime is required",
		},
		{
			name: "end equals start",
			booking: model.Booking{
				BookID:    "64f000000000000000000001",
				UserID:    "64f000000000000000000002",
				StartTime: at(10),
				EndTime:   at(10),
			},
			wantErr: "end_time must be after start_time",
		},
		{
			name: "end before start",
			booking: model.Booking{
				BookID:    "64f000000000000000000001",
				UserID:    "64f000000000000000000002",
				StartTime: at(12),
				EndTime:   at(10),
			},
			wantErr: "end_time must be after start_time",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(&tc.booking)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := testValidator()

	start, end := at(10), at(12)
	badID := "nope"
	goodID := "64f000000000000000000001"

	t.Run("empty update is valid", func(t *testing.T) {
		if err := v.ValidateUpdate(&model.BookingUpdate{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("single bound is valid", func(t *testing.T) {
		if err := v.ValidateUpdate(&model.BookingUpdate{EndTime: &end}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("both bounds misordered", func(t *testing.T) {
		err := v.ValidateUpdate(&model.BookingUpdate{StartTime: &end, EndTime: &start})
		if err == nil || !strings.Contains(err.Error(), "end_time must be after start_time") {
			t.Fatalf("expected ordering error, got %v", err)
		}
	})

	t.Run("malformed reference", func(t *testing.T) {
		err := v.ValidateUpdate(&model.BookingUpdate{BookID: &badID})
		if err == nil || !strings.Contains(err.Error(), "BookID must be a valid MongoDB ObjectID") {
			t.Fatalf("expected ObjectID error, got %v", err)
		}
	})

	t.Run("valid references", func(t *testing.T) {
		if err := v.ValidateUpdate(&model.BookingUpdate{BookID: &goodID, UserID: &goodID}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
