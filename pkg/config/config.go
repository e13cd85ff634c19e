package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"banya/pkg/client"
	"banya/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SlotGranularityMin int
	TimeZone           string

	MorningStart   string
	MorningEnd     string
	AfternoonStart string
	AfternoonEnd   string

	MaxShiftPlanDays  int
	ShiftCalendarDays int

	SlotLockTTL          time.Duration
	LockAcquireTimeout   time.Duration
	AvailabilityCacheTTL time.Duration

	AppointmentTopic string

	// Location is resolved from TimeZone at load time.
	Location *time.Location

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		SlotGranularityMin: getEnvNum(EnvSlotGranularityMin, DefaultSlotGranularityMin),
		TimeZone:           getEnvStr(EnvTimeZone, DefaultTimeZone),

		MorningStart:   getEnvStr(EnvMorningStart, DefaultMorningStart),
		MorningEnd:     getEnvStr(EnvMorningEnd, DefaultMorningEnd),
		AfternoonStart: getEnvStr(EnvAfternoonStart, DefaultAfternoonStart),
		AfternoonEnd:   getEnvStr(EnvAfternoonEnd, DefaultAfternoonEnd),

		MaxShiftPlanDays:  getEnvNum(EnvMaxShiftPlanDays, DefaultMaxShiftPlanDays),
		ShiftCalendarDays: getEnvNum(EnvShiftCalendarDays, DefaultShiftCalendarDays),

		SlotLockTTL:          getEnvDuration(EnvSlotLockTTL, DefaultSlotLockTTL),
		LockAcquireTimeout:   getEnvDuration(EnvLockAcquireTimeout, DefaultLockAcquireTimeout),
		AvailabilityCacheTTL: getEnvDuration(EnvAvailabilityCacheTTL, DefaultAvailabilityCacheTTL),

		AppointmentTopic: getEnvStr(EnvAppointmentTopic, DefaultAppointmentTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, availability cache disabled")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword)
}

var timeOfDayRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"SlotLockTTL", cfg.SlotLockTTL},
		{"LockAcquireTimeout", cfg.LockAcquireTimeout},
	} {
		if d.val <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", d.name, d.val))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.SlotGranularityMin <= 0 || cfg.SlotGranularityMin > 60 {
		errs = append(errs, fmt.Sprintf("SlotGranularityMin must be in 1..60, got: %d", cfg.SlotGranularityMin))
	}
	if cfg.MaxShiftPlanDays <= 0 {
		errs = append(errs, fmt.Sprintf("MaxShiftPlanDays must be positive, got: %d", cfg.MaxShiftPlanDays))
	}
	if cfg.ShiftCalendarDays <= 0 || cfg.ShiftCalendarDays > cfg.MaxShiftPlanDays {
		errs = append(errs, fmt.Sprintf("ShiftCalendarDays must be in 1..%d, got: %d", cfg.MaxShiftPlanDays, cfg.ShiftCalendarDays))
	}
	if cfg.AvailabilityCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("AvailabilityCacheTTL cannot be negative, got: %s", cfg.AvailabilityCacheTTL))
	}

	for _, tod := range []struct {
		name string
		val  string
	}{
		{"MorningStart", cfg.MorningStart},
		{"MorningEnd", cfg.MorningEnd},
		{"AfternoonStart", cfg.AfternoonStart},
		{"AfternoonEnd", cfg.AfternoonEnd},
	} {
		if !timeOfDayRegex.MatchString(tod.val) {
			errs = append(errs, fmt.Sprintf("%s must be in HH:MM format, got: %s", tod.name, tod.val))
		}
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("TimeZone is not a valid IANA zone: %s", cfg.TimeZone))
	} else {
		cfg.Location = loc
	}

	if len(errs) > 0 {
		msg := "Configuration validation failed:\n"
		for i, e := range errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_addr", cfg.RedisAddr,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"slot_granularity_min", cfg.SlotGranularityMin,
		"time_zone", cfg.TimeZone,
		"morning_window", cfg.MorningStart+"-"+cfg.MorningEnd,
		"afternoon_window", cfg.AfternoonStart+"-"+cfg.AfternoonEnd,
		"max_shift_plan_days", cfg.MaxShiftPlanDays,
		"shift_calendar_days", cfg.ShiftCalendarDays,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"lock_acquire_timeout", cfg.LockAcquireTimeout,
		"availability_cache_ttl", cfg.AvailabilityCacheTTL,
		"appointment_topic", cfg.AppointmentTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}
