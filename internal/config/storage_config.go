package config

// StorageConfig selects and configures the watcher repository backend
type StorageConfig struct {
	Driver      string `json:"driver,omitempty" yaml:"driver,omitempty" validate:"required,storagedriver"`
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" validate:"required_if=Driver sqlite"`
	PostgresURL string `json:"postgres_url,omitempty" yaml:"postgres_url,omitempty" validate:"required_if=Driver postgres"`
	RedisURL    string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" validate:"required_if=Driver redis"`
	RedisPrefix string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:      DefaultStorageDriver,
		SQLitePath:  DefaultStorageSQLitePath,
		RedisPrefix: DefaultStorageRedisKey,
	}
}
