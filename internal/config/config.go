// Package config loads the service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Decode engine
	FFmpegPath  string
	FFprobePath string
	JPEGQuality int

	// Filesystem layout
	FramesRoot  string
	UploadsRoot string

	// Restart policy
	MaxRestarts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	StopGrace   time.Duration

	// Logging
	LogLevel  string
	LogPretty bool
}

func New() *Config {
	return &Config{
		ListenAddr:   getEnv("FRAMED_LISTEN_ADDR", ":8090"),
		ReadTimeout:  getEnvAsDuration("FRAMED_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvAsDuration("FRAMED_WRITE_TIMEOUT", 30*time.Second),

		FFmpegPath:  getEnv("FRAMED_FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FRAMED_FFPROBE_PATH", "ffprobe"),
		JPEGQuality: getEnvAsInt("FRAMED_JPEG_QUALITY", 2),

		FramesRoot:  getEnv("FRAMED_FRAMES_ROOT", "/var/lib/framed/frames"),
		UploadsRoot: getEnv("FRAMED_UPLOADS_ROOT", "/var/lib/framed/uploads"),

		MaxRestarts: getEnvAsInt("FRAMED_MAX_RESTARTS", 5),
		BackoffBase: getEnvAsDuration("FRAMED_BACKOFF_BASE", 500*time.Millisecond),
		BackoffMax:  getEnvAsDuration("FRAMED_BACKOFF_MAX", 30*time.Second),
		StopGrace:   getEnvAsDuration("FRAMED_STOP_GRACE", 3*time.Second),

		LogLevel:  getEnv("FRAMED_LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("FRAMED_LOG_PRETTY", false),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
