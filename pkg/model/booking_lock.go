package model

import "time"

// BookingLock is an advisory lock scoped to one book. Holding it serializes
// the overlap check and the write that follows, so two concurrent requests for
// the same free slot cannot both pass the check.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
