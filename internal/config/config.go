// Package config builds the process configuration from the environment.
// Validation happens here, once, at construction time; nothing in the
// codebase reads required variables ambiently.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SwarajMP/Bankbot/internal/retry"
)

// Required environment variables. Missing ones fail Load with every
// absent name listed.
var required = []string{
	"LIVEKIT_URL",
	"LIVEKIT_API_KEY",
	"LIVEKIT_API_SECRET",
	"SIP_OUTBOUND_TRUNK_ID",
}

type Config struct {
	LiveKitURL string
	APIKey     string
	APISecret  string
	TrunkID    string

	AgentName        string
	AgentDisplayName string
	Company          string
	PaymentAmount    string

	ListenTimeout time.Duration
	ClosingPause  time.Duration
	JoinTimeout   time.Duration

	DialRetry   retry.Policy
	HangupRetry retry.Policy

	ReportPath string
}

// Load reads .env (if present), then the environment, and validates.
func Load() (*Config, error) {
	_ = godotenv.Load() // loads .env

	var missing []string
	for _, v := range required {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		LiveKitURL: os.Getenv("LIVEKIT_URL"),
		APIKey:     os.Getenv("LIVEKIT_API_KEY"),
		APISecret:  os.Getenv("LIVEKIT_API_SECRET"),
		TrunkID:    os.Getenv("SIP_OUTBOUND_TRUNK_ID"),

		AgentName:        envOr("AGENT_NAME", "john-payment-specialist"),
		AgentDisplayName: envOr("AGENT_DISPLAY_NAME", "John"),
		Company:          envOr("COMPANY_NAME", "SecureCard Financial Services"),
		PaymentAmount:    envOr("PAYMENT_AMOUNT", "$250"),

		ListenTimeout: envDuration("LISTEN_TIMEOUT", 10*time.Second),
		ClosingPause:  envDuration("CLOSING_PAUSE", 2*time.Second),
		JoinTimeout:   envDuration("JOIN_TIMEOUT", 60*time.Second),

		DialRetry:   retry.Policy{MaxAttempts: 3, BaseDelay: time.Second},
		HangupRetry: retry.Policy{MaxAttempts: 3, BaseDelay: time.Second},

		ReportPath: os.Getenv("CALL_REPORT_PATH"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ListenTimeout <= 0 {
		return fmt.Errorf("LISTEN_TIMEOUT must be positive, got %v", c.ListenTimeout)
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("JOIN_TIMEOUT must be positive, got %v", c.JoinTimeout)
	}
	if c.ClosingPause < 0 {
		return fmt.Errorf("CLOSING_PAUSE must not be negative, got %v", c.ClosingPause)
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
