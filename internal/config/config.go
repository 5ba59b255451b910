package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port              int
	DatabaseURL       string
	NatsURL           string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	LLMTimeout        time.Duration
	LLMTemperature    float64
	DialogueTimeout   time.Duration
	ReminderTick      time.Duration
	ContextTurns      int
	ProfilePath       string
	SlackBotToken     string
	SlackAlertChannel string
	LogLevel          string
}

func Load() Config {
	return Config{
		Port:              envInt("ELDERCARE_PORT", 8710),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		NatsURL:           envStr("NATS_URL", ""),
		LLMAPIKey:         envStr("LLM_API_KEY", envStr("GROQ_API_KEY", "")),
		LLMBaseURL:        envStr("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:          envStr("LLM_MODEL", "llama3-70b-8192"),
		LLMTimeout:        time.Duration(envInt("LLM_TIMEOUT_MS", 15000)) * time.Millisecond,
		LLMTemperature:    envFloat("LLM_TEMPERATURE", 0.6),
		DialogueTimeout:   time.Duration(envInt("DIALOGUE_TIMEOUT_MS", 60000)) * time.Millisecond,
		ReminderTick:      time.Duration(envInt("REMINDER_TICK_MS", 30000)) * time.Millisecond,
		ContextTurns:      envInt("CONTEXT_TURNS", 10),
		ProfilePath:       envStr("PROFILE_PATH", "user_profile.yaml"),
		SlackBotToken:     envStr("SLACK_BOT_TOKEN", ""),
		SlackAlertChannel: envStr("SLACK_ALERT_CHANNEL", ""),
		LogLevel:          envStr("LOG_LEVEL", "info"),
	}
}

// SlackEnabled reports whether caregiver alerts can be posted to Slack.
func (c Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAlertChannel != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
