package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name" validate:"required"`
	Host      string           `yaml:"host" validate:"required"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARNING ERROR"`
	GrpcPort  int              `yaml:"grpc_port"`
	Backend   MBackendConfig   `yaml:"backend"`
	Stream    MStreamConfig    `yaml:"stream"`
	Account   MAccountConfig   `yaml:"account"`
	Dashboard MDashboardConfig `yaml:"dashboard"`
	Storage   MStorageConfig   `yaml:"storage"`
}

type MBackendConfig struct {
	BaseURL        string `yaml:"base_url" validate:"required,url"`
	StreamURL      string `yaml:"stream_url" validate:"required,url"`
	RequestTimeout int    `yaml:"timeout" validate:"gt=0"`
	MaxRetries     int    `yaml:"retries" validate:"gte=0"`
	// Optional outbound proxy for REST and stream connections.
	Proxy string `yaml:"proxy"`
}

type MStreamConfig struct {
	// Fixed delay between a lost connection and the next attempt.
	ReconnectDelaySeconds int `yaml:"reconnect_delay_seconds" validate:"gte=3,lte=5"`
}

type MAccountConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds" validate:"gt=0"`
}

type MDashboardConfig struct {
	Enabled              bool    `yaml:"enabled"`
	PriceEventsPerSecond float64 `yaml:"price_events_per_second" validate:"gte=0"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" validate:"required,oneof=sqlite postgres"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}
