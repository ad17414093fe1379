package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	GrpcHost  string           `yaml:"grpc_host"`
	GrpcPort  int              `yaml:"grpc_port"`
	Storage   MStorageConfig   `yaml:"storage"`
	Network   MNetworkConfig   `yaml:"network"`
	Backend   MBackendConfig   `yaml:"backend"`
	Analytics MAnalyticsConfig `yaml:"analytics"`
	Realtime  MRealtimeConfig  `yaml:"realtime"`
	Cache     MCacheConfig     `yaml:"cache"`
	Messaging MMessagingConfig `yaml:"messaging"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	DataRetentionDays  int    `yaml:"data_retention_days"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

// MBackendConfig describes the shop REST API the pipeline reads from.
type MBackendConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIToken      string `yaml:"api_token"`
	JWTSecret     string `yaml:"jwt_secret"`
	JWTSubject    string `yaml:"jwt_subject"`
	JWTTTLSeconds int    `yaml:"jwt_ttl_seconds"`
	InsecureTLS   bool   `yaml:"insecure_tls"`
}

type MAnalyticsConfig struct {
	DefaultTimeframe       string `yaml:"default_timeframe"`
	RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
	SupersedePolicy        string `yaml:"supersede_policy"` // "generation" or "last_write"
	MaxChartPoints         int    `yaml:"max_chart_points"`
}

type MRealtimeConfig struct {
	LiveMode            bool `yaml:"live_mode"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	HistorySize         int  `yaml:"history_size"`
	MaxMemoryMB         int  `yaml:"max_memory_mb"` // heap budget before history buffers shrink
}

type MCacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	RedisURL   string `yaml:"redis_url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	KeyPrefix  string `yaml:"key_prefix"`
	// Manual refreshes allowed per client and minute, 0 disables the limit.
	RefreshRateLimit int `yaml:"refresh_rate_limit"`
}

type MMessagingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// GetLogLevel lets the logger read the level from either MConfig or a wrapper embedding it.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
