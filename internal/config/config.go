package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by YUMI_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("YUMI_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func ServerPort() int {
	port := intEnv("SERVER_PORT", 8080)
	if port <= 0 {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Valid values: openai, mock. Defaults to "openai".
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock. Defaults to "openai".
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// RateLimitRPS returns the API requests-per-second limit. Defaults to 100.
func RateLimitRPS() float64 {
	rps := floatEnv("RATE_LIMIT_RPS", 100)
	if rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for API rate limiting. Defaults to 20.
func RateLimitBurst() int {
	burst := intEnv("RATE_LIMIT_BURST", 20)
	if burst <= 0 {
		return 20
	}
	return burst
}

// DecayStaleThresholdDays returns the unused-memory age (days) after which
// the stale decay penalty applies. Empirically tuned in the original
// system; kept configurable on purpose.
func DecayStaleThresholdDays() float64 {
	v := floatEnv("DECAY_STALE_THRESHOLD_DAYS", 30)
	if v <= 0 {
		return 30
	}
	return v
}

// DecayUsageThreshold returns the usage count below which a memory is
// still considered rarely used. Same empirical-constant caveat as above.
func DecayUsageThreshold() int {
	v := intEnv("DECAY_USAGE_THRESHOLD", 3)
	if v <= 0 {
		return 3
	}
	return v
}

// MinExtractionInterval is the minimum gap between extraction runs.
func MinExtractionInterval() time.Duration {
	return time.Duration(intEnv("MIN_EXTRACTION_INTERVAL_SECONDS", 300)) * time.Second
}

// MaxExtractionsPerHour caps extraction frequency.
func MaxExtractionsPerHour() int {
	v := intEnv("MAX_EXTRACTIONS_PER_HOUR", 10)
	if v <= 0 {
		return 10
	}
	return v
}

// ExtractionIdleDelay is the quiet period required after the last user
// message before extraction may run.
func ExtractionIdleDelay() time.Duration {
	return time.Duration(intEnv("EXTRACTION_IDLE_DELAY_SECONDS", 30)) * time.Second
}

// ProactiveEnabled gates the proactive engagement controller.
func ProactiveEnabled() bool {
	return os.Getenv("PROACTIVE_ENABLED") != "false"
}

// ProactiveCooldown is the minimum gap between proactive actions.
func ProactiveCooldown() time.Duration {
	return time.Duration(intEnv("PROACTIVE_COOLDOWN_MINUTES", 10)) * time.Minute
}

// ProactiveSessionCap limits proactive actions per session.
func ProactiveSessionCap() int {
	v := intEnv("PROACTIVE_SESSION_CAP", 10)
	if v <= 0 {
		return 10
	}
	return v
}

// MaxMemories is the total storage limit before pruning.
func MaxMemories() int {
	v := intEnv("MAX_MEMORIES", 1000)
	if v <= 0 {
		return 1000
	}
	return v
}

// MaxMemoriesPerType is the per-type storage limit before pruning.
func MaxMemoriesPerType() int {
	v := intEnv("MAX_MEMORIES_PER_TYPE", 200)
	if v <= 0 {
		return 200
	}
	return v
}
