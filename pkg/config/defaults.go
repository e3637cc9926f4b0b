package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "libretto"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Expiry sweep cadence and the shared clock offset. Cancellation stamps
	// end_time with now+offset and the sweeper compares end_time against the
	// same reference, so the two never disagree at the boundary.
	DefaultSweepInterval     = 1 * time.Minute
	DefaultCancelGraceOffset = 3 * time.Hour

	// Advisory slot locks auto-expire so a crashed request cannot wedge a book.
	DefaultSlotLockTTL = 10 * time.Second

	DefaultBookingEventsTopic = ""
	DefaultCatalogBaseURL     = ""

	DefaultPaginationLimit = 10
	MaxPaginationLimit     = 100
)
