package config

const (
	DefaultAddr         = ":8080"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultStateBackend = "memory"
	DefaultStatePrefix  = "ateam"
	DefaultStateTable   = "ateam_state"
	DefaultModelTimeout = "120s"
	DefaultRedisAddr    = "localhost:6379"
)
