package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"libretto/pkg/config"
	apperrors "libretto/pkg/errors"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			err:        apperrors.Validation("Booking validation failed", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Booking validation failed",
		},
		{
			name:       "conflict",
			err:        apperrors.Conflict("slot taken"),
			wantStatus: http.StatusConflict,
			wantError:  "slot taken",
		},
		{
			name:       "not found",
			err:        apperrors.NotFoundWithID("Booking", "abc"),
			wantStatus: http.StatusNotFound,
			wantError:  "Booking not found",
		},
		{
			name:       "invalid input",
			err:        apperrors.InvalidInput("bad id"),
			wantStatus: http.StatusBadRequest,
			wantError:  "bad id",
		},
		{
			name:       "unknown errors are masked",
			err:        errors.New("mongo: socket closed"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tc.err); err != nil {
				t.Fatalf("WriteError failed: %v", err)
			}

			if rec.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if resp.Error != tc.wantError {
				t.Errorf("expected error %q, got %q", tc.wantError, resp.Error)
			}
		})
	}
}

func TestExtractLimitOffset(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"defaults", "", config.DefaultPaginationLimit, 0, false},
		{"explicit", "?limit=25&offset=50", 25, 50, false},
		{"capped", "?limit=5000", config.MaxPaginationLimit, 0, false},
		{"negative offset clamped", "?offset=-3", config.DefaultPaginationLimit, 0, false},
		{"garbage limit", "?limit=abc", 0, 0, true},
		{"garbage offset", "?offset=x", 0, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings"+tc.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if limit != tc.wantLimit || offset != tc.wantOffset {
				t.Errorf("got limit=%d offset=%d, want limit=%d offset=%d", limit, offset, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}
