package config

const (
	// Log Defaults
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultLogFile        = ""
	DefaultMaxLogSizeMB   = 100
	DefaultMaxLogBackups  = 3
	DefaultMaxLogAgeDays  = 28
	DefaultLogServiceName = "marketwatch"

	// Storage Defaults
	DefaultStorageDriver     = StorageDriverSQLite
	DefaultStorageSQLitePath = "database/marketwatch.db"
	DefaultStorageRedisKey   = "marketwatch"

	// Search Defaults (marketplace query parameters applied to every watcher)
	DefaultSearchBaseURL          = "https://api.blocket.se/search_bff/v1/content"
	DefaultSearchLimit            = 60
	DefaultSearchSort             = "rel"
	DefaultSearchListingType      = "s"
	DefaultSearchStatus           = "active"
	DefaultSearchGeolocation      = 3
	DefaultSearchInclude          = "extend_with_shipping"
	DefaultSearchTimeoutSecs      = 15
	DefaultSearchSeenCapacity     = 200
	DefaultSearchMaxResponseBytes = 4 << 20
	DefaultSearchUserAgent        = "marketwatch/1.0"
	DefaultSearchIncludeShipping  = true

	// Notification Defaults
	DefaultNotificationEnableBatching = true
	DefaultNotificationBatchSize      = 5
	DefaultNotificationBatchDelayMs   = 2000
	DefaultNotificationMessageDelayMs = 500
	DefaultNotificationMaxRetries     = 3
	DefaultNotificationRetryDelayMs   = 1000
	DefaultNotificationTimeoutSecs    = 20
	DefaultDiscordEnabled             = true
	DefaultDiscordUsername            = "Blocket Bot"
	DefaultEmailEnabled               = false

	// Scheduler Defaults
	DefaultSchedulerShutdownTimeoutSecs = 30
	DefaultSchedulerRunTimeoutSecs      = 300

	// Server Defaults
	DefaultServerPort             = 8080
	DefaultServerReadTimeoutSecs  = 10
	DefaultServerWriteTimeoutSecs = 10
)

// Storage drivers understood by datastore.NewWatcherRepository.
const (
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
)
