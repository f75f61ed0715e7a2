package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultMaxParallel     = 4
)
