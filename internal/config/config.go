package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DBPath      string
	Concurrency int

	AppID              string
	AppSecret          string
	BaseDomain         string
	ViewerBaseURL      string
	PlatformTimeoutSec int

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	SystemPromptFile  string
	MaxGroundingBytes int

	DedupTTLSeconds      int
	DedupPruneSchedule   string
	HeartbeatIntervalSec int
	HeartbeatStaleSec    int
}

func FromEnv() Config {
	apiKey := strings.TrimSpace(os.Getenv("LARKBOT_LLM_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY"))
	}
	return Config{
		Environment: stringOrDefault("LARKBOT_ENV", "development"),
		HTTPAddr:    stringOrDefault("LARKBOT_HTTP_ADDR", ":8080"),
		DBPath:      stringOrDefault("LARKBOT_DB_PATH", "./data/larkbot.sqlite"),
		Concurrency: intOrDefault("LARKBOT_CONCURRENCY", 5),

		AppID:              strings.TrimSpace(os.Getenv("LARKBOT_APP_ID")),
		AppSecret:          os.Getenv("LARKBOT_APP_SECRET"),
		BaseDomain:         stringOrDefault("LARKBOT_BASE_DOMAIN", "https://open.feishu.cn"),
		ViewerBaseURL:      strings.TrimRight(stringOrDefault("LARKBOT_VIEWER_BASE_URL", "https://feishu.cn"), "/"),
		PlatformTimeoutSec: intOrDefault("LARKBOT_PLATFORM_TIMEOUT_SECONDS", 15),

		LLMBaseURL:     stringOrDefault("LARKBOT_LLM_BASE_URL", "https://api.deepseek.com/v1"),
		LLMAPIKey:      apiKey,
		LLMModel:       stringOrDefault("LARKBOT_LLM_MODEL", "deepseek-chat"),
		LLMMaxTokens:   intOrDefault("LARKBOT_LLM_MAX_TOKENS", 1000),
		LLMTemperature: floatOrDefault("LARKBOT_LLM_TEMPERATURE", 0.7),
		LLMTimeoutSec:  intOrDefault("LARKBOT_LLM_TIMEOUT_SECONDS", 60),

		SystemPromptFile:  strings.TrimSpace(os.Getenv("LARKBOT_SYSTEM_PROMPT_FILE")),
		MaxGroundingBytes: intOrDefault("LARKBOT_MAX_GROUNDING_BYTES", 32*1024),

		DedupTTLSeconds:      intOrDefault("LARKBOT_DEDUP_TTL_SECONDS", 86400),
		DedupPruneSchedule:   stringOrDefault("LARKBOT_DEDUP_PRUNE_SCHEDULE", "@every 10m"),
		HeartbeatIntervalSec: intOrDefault("LARKBOT_HEARTBEAT_INTERVAL_SECONDS", 30),
		HeartbeatStaleSec:    intOrDefault("LARKBOT_HEARTBEAT_STALE_SECONDS", 120),
	}
}

// LarkEnabled reports whether app credentials are present.
func (c Config) LarkEnabled() bool {
	return c.AppID != "" && strings.TrimSpace(c.AppSecret) != ""
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// floatOrDefault accepts zero; a temperature of 0 is a valid setting.
func floatOrDefault(name string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
