package config

import "time"

// ServerConfig configures the management HTTP API
type ServerConfig struct {
	Enabled          bool `json:"enabled" yaml:"enabled"`
	Port             int  `json:"port,omitempty" yaml:"port,omitempty" validate:"min=1,max=65535"`
	ReadTimeoutSecs  int  `json:"read_timeout_secs,omitempty" yaml:"read_timeout_secs,omitempty" validate:"min=1"`
	WriteTimeoutSecs int  `json:"write_timeout_secs,omitempty" yaml:"write_timeout_secs,omitempty" validate:"min=1"`
}

// NewDefaultServerConfig creates default server configuration
func NewDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:          true,
		Port:             DefaultServerPort,
		ReadTimeoutSecs:  DefaultServerReadTimeoutSecs,
		WriteTimeoutSecs: DefaultServerWriteTimeoutSecs,
	}
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSecs) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecs) * time.Second
}
