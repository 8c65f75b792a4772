package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	WebRTC    WebRTCConfig
	Meeting   MeetingConfig
	Sampler   SamplerConfig
	Analytics AnalyticsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// WebRTCConfig holds STUN/TURN ICE server URLs for the media transport.
type WebRTCConfig struct {
	ICEUrls []string // comma-separated in env
}

// MeetingConfig holds live-session runtime settings: the track attachment
// retry ladder and telemetry channel reconnect bounds.
type MeetingConfig struct {
	// AttachRetryDelays is the schedule of attachment attempts after each
	// track-started event. Track negotiation and render-target readiness are
	// not ordered, so a single immediate attempt can land before the target
	// exists; the ladder retries until the registry reports success or the
	// track ends.
	AttachRetryDelays []time.Duration
	ReconnectBaseWait time.Duration // telemetry channel backoff start
	ReconnectMaxWait  time.Duration // telemetry channel backoff cap
}

// SamplerConfig holds emotion sampler settings.
type SamplerConfig struct {
	Interval time.Duration // one capture+classify per interval
}

// AnalyticsConfig holds attendance thresholds and the emotion weighting
// table. Values are deployment policy, not code constants.
type AnalyticsConfig struct {
	LateThresholdPercent float64       // min attendance percentage for "present"
	LateGrace            time.Duration // first join within this window of start counts as on time
	AlertStreak          int           // consecutive low-attentiveness samples before an alert
	AttentivenessWeights map[string]float64
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// DefaultAttentivenessWeights maps emotion labels to attentiveness scores
// in [0,1]. Used when ATTENTIVENESS_WEIGHTS is not set.
func DefaultAttentivenessWeights() map[string]float64 {
	return map[string]float64{
		"happy":     0.9,
		"surprised": 0.8,
		"neutral":   0.7,
		"sad":       0.4,
		"fearful":   0.3,
		"disgusted": 0.2,
		"angry":     0.2,
		"unknown":   0.0,
	}
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/smartlms?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "smartlms"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		WebRTC: WebRTCConfig{
			ICEUrls: splitTrim(getEnv("WEBRTC_ICE_URLS", "stun:stun.l.google.com:19302"), ","),
		},
		Meeting: MeetingConfig{
			AttachRetryDelays: parseDurations(getEnv("ATTACH_RETRY_DELAYS_MS", "0,250,1000,3000")),
			ReconnectBaseWait: time.Duration(getEnvInt("WS_RECONNECT_BASE_MS", 500)) * time.Millisecond,
			ReconnectMaxWait:  time.Duration(getEnvInt("WS_RECONNECT_MAX_MS", 30000)) * time.Millisecond,
		},
		Sampler: SamplerConfig{
			Interval: time.Duration(getEnvInt("SAMPLER_INTERVAL_MS", 5000)) * time.Millisecond,
		},
		Analytics: AnalyticsConfig{
			LateThresholdPercent: getEnvFloat("MEETING_LATE_THRESHOLD_PERCENT", 75),
			LateGrace:            time.Duration(getEnvInt("MEETING_LATE_GRACE_SECONDS", 600)) * time.Second,
			AlertStreak:          getEnvInt("EMOTION_ALERT_STREAK", 3),
			AttentivenessWeights: parseWeights(getEnv("ATTENTIVENESS_WEIGHTS", "")),
		},
	}
	return cfg, nil
}

// parseWeights parses "label:weight,label:weight". Empty or malformed input
// falls back to the defaults.
func parseWeights(s string) map[string]float64 {
	if s == "" {
		return DefaultAttentivenessWeights()
	}
	out := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		w, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		out[parts[0]] = w
	}
	if len(out) == 0 {
		return DefaultAttentivenessWeights()
	}
	return out
}

// parseDurations parses a comma-separated list of millisecond values.
func parseDurations(s string) []time.Duration {
	var out []time.Duration
	for _, v := range splitTrim(s, ",") {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			continue
		}
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	if len(out) == 0 {
		out = []time.Duration{0, 250 * time.Millisecond, time.Second, 3 * time.Second}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
