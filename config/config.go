package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port            int    // Port for the webhook server
	ConsolePort     int    // Port for the dev console server (used when ServerType is "both")
	ServerType      string // "webhook", "console", or "both"
	RedisURL        string
	RedisPassword   string
	MaxSessions     int
	SessionTimeout  time.Duration
	GeminiAPIKey    string
	GeminiModel     string
	LLMTimeout      time.Duration
	AllowedOrigins  []string
	BusinessProfile string // Path to the YAML business profile (optional)

	// Google Sheets booking log
	SheetID         string
	SheetRange      string
	SheetsCredsPath string

	// Instagram Graph API webhook + delivery
	PageID          string
	PageAccessToken string
	VerifyToken     string

	// Moderator notification channels (all optional)
	SlackToken       string
	SlackChannel     string
	DiscordToken     string
	DiscordChannelID string

	// Booking ledger database
	LedgerDSN string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:            8443,
		ConsolePort:     8080,
		ServerType:      "webhook",
		RedisURL:        "localhost:6379",
		RedisPassword:   "",
		MaxSessions:     1000,
		SessionTimeout:  30 * time.Minute,
		GeminiModel:     "models/gemini-2.5-flash",
		LLMTimeout:      15 * time.Second,
		AllowedOrigins:  []string{"*"},
		SheetRange:      "Sheet1!A:Z",
		SheetsCredsPath: "credentials.json",
		LedgerDSN:       "frontdesk.db",
	}

	// Required: GEMINI_API_KEY
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	// Optional: SERVER_TYPE ("webhook", "console", or "both")
	if serverType := os.Getenv("SERVER_TYPE"); serverType != "" {
		switch serverType {
		case "webhook", "console", "both":
			config.ServerType = serverType
		default:
			return nil, fmt.Errorf("invalid SERVER_TYPE: must be 'webhook', 'console', or 'both'")
		}
	}

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: CONSOLE_PORT (used when SERVER_TYPE is "both")
	if consolePort := os.Getenv("CONSOLE_PORT"); consolePort != "" {
		cp, err := strconv.Atoi(consolePort)
		if err != nil {
			return nil, fmt.Errorf("invalid CONSOLE_PORT: %w", err)
		}
		config.ConsolePort = cp
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: GEMINI_MODEL
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.GeminiModel = model
	}

	// Optional: LLM_TIMEOUT (in seconds)
	if llmTimeout := os.Getenv("LLM_TIMEOUT"); llmTimeout != "" {
		t, err := strconv.Atoi(llmTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
		}
		config.LLMTimeout = time.Duration(t) * time.Second
	}

	// Optional: ALLOWED_ORIGINS (comma-separated, console server only)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: BUSINESS_PROFILE (YAML path; built-in defaults when unset)
	config.BusinessProfile = os.Getenv("BUSINESS_PROFILE")

	// Optional: SHEET_ID, SHEET_RANGE, GOOGLE_CREDENTIALS
	// Bookings are logged to Sheets only when SHEET_ID is set.
	config.SheetID = os.Getenv("SHEET_ID")
	if sheetRange := os.Getenv("SHEET_RANGE"); sheetRange != "" {
		config.SheetRange = sheetRange
	}
	if creds := os.Getenv("GOOGLE_CREDENTIALS"); creds != "" {
		config.SheetsCredsPath = creds
	}

	// Instagram credentials, required for the webhook server
	config.PageID = os.Getenv("INSTAGRAM_PAGE_ID")
	config.PageAccessToken = os.Getenv("INSTAGRAM_PAGE_ACCESS_TOKEN")
	config.VerifyToken = os.Getenv("INSTAGRAM_VERIFY_TOKEN")
	if config.ServerType == "webhook" || config.ServerType == "both" {
		if config.PageID == "" || config.PageAccessToken == "" {
			return nil, fmt.Errorf("INSTAGRAM_PAGE_ID and INSTAGRAM_PAGE_ACCESS_TOKEN are required for the webhook server")
		}
		if config.VerifyToken == "" {
			return nil, fmt.Errorf("INSTAGRAM_VERIFY_TOKEN is required for the webhook server")
		}
	}

	// Optional: moderator notification channels
	config.SlackToken = os.Getenv("SLACK_BOT_TOKEN")
	config.SlackChannel = os.Getenv("SLACK_CHANNEL")
	config.DiscordToken = os.Getenv("DISCORD_BOT_TOKEN")
	config.DiscordChannelID = os.Getenv("DISCORD_CHANNEL_ID")
	if config.SlackToken != "" && config.SlackChannel == "" {
		return nil, fmt.Errorf("SLACK_CHANNEL is required when SLACK_BOT_TOKEN is set")
	}
	if config.DiscordToken != "" && config.DiscordChannelID == "" {
		return nil, fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}

	// Optional: LEDGER_DSN (sqlite path or mysql DSN; "off" disables the ledger)
	if dsn := os.Getenv("LEDGER_DSN"); dsn != "" {
		config.LedgerDSN = dsn
	}

	return config, nil
}
