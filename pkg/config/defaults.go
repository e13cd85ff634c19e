package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "banya"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = ""

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Slot enumeration step. Fixed per deployment so availability output is
	// deterministic for a given occupancy snapshot.
	DefaultSlotGranularityMin = 10

	DefaultTimeZone = "UTC"

	DefaultMorningStart   = "08:30"
	DefaultMorningEnd     = "12:30"
	DefaultAfternoonStart = "14:00"
	DefaultAfternoonEnd   = "18:00"

	DefaultMaxShiftPlanDays     = 30
	DefaultShiftCalendarDays    = 14
	DefaultSlotLockTTL          = 10 * time.Second
	DefaultLockAcquireTimeout   = 3 * time.Second
	DefaultAvailabilityCacheTTL = 30 * time.Second

	DefaultAppointmentTopic = "scheduling.appointments"
)
