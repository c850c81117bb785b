package config

import "time"

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

const (
	DefaultStorageBackend = BackendMemory
	DefaultLockBackend    = BackendMemory
	DefaultDotEnvFile     = ".env"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "spotbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultLockTTL           = 10 * time.Second
	DefaultLockRetryInterval = 25 * time.Millisecond

	DefaultKafkaEnabled          = false
	DefaultBookingEventsTopic    = "spotbook.bookings"
	DefaultBookingEventsDLQTopic = "spotbook.bookings.dlq"
	DefaultBookingEventsGroupID  = "spotbook-booking-events"
	DefaultBookingEventsQueue    = "spotbook.bookings"

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
