package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"heatscore/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Block explorer configuration
	BlockscanURL    string
	BlockscanAPIKey string

	// Event indexer configuration
	IndexerURL string
	ChainSlug  string // chain path segment for indexer requests, e.g. "polygon"

	// Chain RPC configuration
	ChainRPCURL string // JSON-RPC endpoint for contract reads

	// Contract addresses (hex)
	GameContractAddress       string
	InvitationContractAddress string

	// Scheduling
	CronExpression string // standard 5-field cron, UTC

	// Scoring configuration
	VIPExclusions  []string  // addresses excluded from referral scoring (comma-separated env)
	LaunchDate     time.Time // floor for referral decay, UTC midnight
	ErrorHookURL   string    // webhook notified when a scoring run fails
	ScoringEnabled bool      // when false the scheduler never fires (backfill only)

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// OpenTelemetry configuration
	OTelEnabled      bool
	OTelServiceName  string
	OTelExporterType string // "console" or "otlp"
	OTelEndpoint     string

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Block explorer
		BlockscanURL:    getEnvWithDefault("BLOCKSCAN_URL", "https://api.polygonscan.com/api"),
		BlockscanAPIKey: os.Getenv("BLOCKSCAN_API_KEY"),

		// Indexer
		IndexerURL: os.Getenv("INDEXER_URL"),
		ChainSlug:  getEnvWithDefault("CHAIN_SLUG", "polygon"),

		// Chain RPC
		ChainRPCURL: os.Getenv("CHAIN_RPC_URL"),

		// Contracts
		GameContractAddress:       os.Getenv("GAME_CONTRACT_ADDRESS"),
		InvitationContractAddress: os.Getenv("INVITATION_CONTRACT_ADDRESS"),

		// Scheduling, daily at 01:00 UTC by default
		CronExpression: getEnvWithDefault("CRON_EXPRESSION", "0 1 * * *"),

		// Scoring
		ErrorHookURL:   os.Getenv("ERROR_HOOK_URL"),
		ScoringEnabled: os.Getenv("SCORING_DISABLED") != "1",

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// OpenTelemetry
		OTelEnabled:      os.Getenv("OTEL_ENABLED") == "1",
		OTelServiceName:  getEnvWithDefault("OTEL_SERVICE_NAME", "heatscore"),
		OTelExporterType: getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelEndpoint:     os.Getenv("OTEL_ENDPOINT"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Parse VIP exclusion list
	if exclusions := os.Getenv("VIP_EXCLUSIONS"); exclusions != "" {
		for _, addr := range strings.Split(exclusions, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				config.VIPExclusions = append(config.VIPExclusions, strings.ToLower(addr))
			}
		}
	}

	// Parse launch date floor
	if launch := os.Getenv("LAUNCH_DATE"); launch != "" {
		parsed, err := time.Parse("2006-01-02", launch)
		if err != nil {
			return nil, fmt.Errorf("LAUNCH_DATE must be YYYY-MM-DD: %w", err)
		}
		config.LaunchDate = parsed.UTC()
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.IndexerURL == "" {
			return nil, fmt.Errorf("INDEXER_URL is required")
		}
		if config.ChainRPCURL == "" {
			return nil, fmt.Errorf("CHAIN_RPC_URL is required")
		}
		if config.GameContractAddress == "" {
			return nil, fmt.Errorf("GAME_CONTRACT_ADDRESS is required")
		}
		if config.InvitationContractAddress == "" {
			return nil, fmt.Errorf("INVITATION_CONTRACT_ADDRESS is required")
		}
		if config.LaunchDate.IsZero() {
			return nil, fmt.Errorf("LAUNCH_DATE is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:    "test",
		ChainSlug:      "polygon",
		CronExpression: "0 1 * * *",
		LaunchDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ScoringEnabled: true,
	}
}
