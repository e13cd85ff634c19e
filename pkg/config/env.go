package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotGranularityMin   = "SLOT_GRANULARITY_MIN"
	EnvTimeZone             = "BUSINESS_TIME_ZONE"
	EnvMorningStart         = "SHIFT_MORNING_START"
	EnvMorningEnd           = "SHIFT_MORNING_END"
	EnvAfternoonStart       = "SHIFT_AFTERNOON_START"
	EnvAfternoonEnd         = "SHIFT_AFTERNOON_END"
	EnvMaxShiftPlanDays     = "MAX_SHIFT_PLAN_DAYS"
	EnvShiftCalendarDays    = "SHIFT_CALENDAR_DAYS"
	EnvSlotLockTTL          = "SLOT_LOCK_TTL"
	EnvLockAcquireTimeout   = "LOCK_ACQUIRE_TIMEOUT"
	EnvAvailabilityCacheTTL = "AVAILABILITY_CACHE_TTL"
	EnvAppointmentTopic     = "APPOINTMENT_TOPIC"
)
