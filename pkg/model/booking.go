package model

import (
	"time"
)

// Booking reserves a book for a user over a half-open interval
// [start_time, end_time). While Active is true the interval blocks any
// overlapping reservation of the same book; cancelled or expired bookings keep
// their record but block nothing.
type Booking struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookID    string    `json:"book_id" bson:"book_id" validate:"required,mongodb"`
	UserID    string    `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required"`
	Active    *bool     `json:"active,omitempty" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsActive treats a missing flag as active, the creation default.
func (b *Booking) IsActive() bool {
	return b.Active == nil || *b.Active
}

// BookingUpdate carries partial updates. Nil fields keep the stored value, so
// "not supplied" is never confused with a legitimate zero value.
type BookingUpdate struct {
	BookID    *string    `json:"book_id,omitempty" validate:"omitempty,mongodb"`
	UserID    *string    `json:"user_id,omitempty" validate:"omitempty,mongodb"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Active    *bool      `json:"active,omitempty"`
}
