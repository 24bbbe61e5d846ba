package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Submission profiles select the on-chain call shape and the ledger
// that gates it. The two profiles track separate processed-file lists.
const (
	ProfileSimple     = "simple"
	ProfileStructured = "structured"
)

// Config holds all configuration for the impact analysis pipeline.
type Config struct {
	// Directories
	PhotosDir   string
	AnalysisDir string
	OutputDir   string

	// Anthropic vision configuration
	AnthropicAPIKey string
	AnthropicModel  string

	// Pinata (IPFS) configuration
	PinataJWT     string
	PinataBaseURL string
	GatewayURL    string

	// Blockchain configuration
	ChainRPCURL     string
	PrivateKey      string
	ContractAddress string

	// Submission profile: "simple" or "structured"
	SubmissionProfile string

	// Ledger configuration. The simple and structured profiles keep
	// independent ledgers keyed by different filenames.
	LedgerPath           string
	StructuredLedgerPath string
	LedgerBackend        string // "file" or "mysql"

	// Database configuration (mysql ledger backend)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Image normalization
	MaxImageBytes   int
	StartQuality    int
	MinQuality      int
	QualityStep     int
	MaxDimension    int
	MaxHeicDimension int

	// External call timeout
	RequestTimeout time.Duration

	// News lookup window in days around the capture timestamp
	NewsDaysWindow int
	NewsMaxRecords int

	// RabbitMQ (optional publishing of completed analyses)
	RabbitMQURL        string
	RabbitMQExchange   string
	RabbitMQRoutingKey string

	// Server configuration (service binary)
	Port         string
	PollInterval time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		PhotosDir:   getEnv("PHOTOS_DIR", "details/photos"),
		AnalysisDir: getEnv("ANALYSIS_DIR", "details/analysis"),
		OutputDir:   getEnv("OUTPUT_DIR", "details/output"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),

		PinataJWT:     getEnv("PINATA_JWT", ""),
		PinataBaseURL: getEnv("PINATA_BASE_URL", "https://api.pinata.cloud"),
		GatewayURL:    getEnv("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs"),

		ChainRPCURL:     getEnv("DAO_CHAIN_RPC_URL", ""),
		PrivateKey:      getEnv("CREATE_PROPOSAL_PRIVATE_KEY", ""),
		ContractAddress: getEnv("DAO_CONTRACT_ADDRESS", ""),

		SubmissionProfile: getEnv("SUBMISSION_PROFILE", ProfileStructured),

		LedgerPath:           getEnv("PROCESSED_FILES_PATH", "processed-files.json"),
		StructuredLedgerPath: getEnv("PROCESSED_FILES_ENHANCED_PATH", "processed-files-enhanced.json"),
		LedgerBackend:        getEnv("LEDGER_BACKEND", "file"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "impact"),

		MaxImageBytes:    getIntEnv("MAX_IMAGE_BYTES", 5*1024*1024),
		StartQuality:     getIntEnv("IMAGE_START_QUALITY", 80),
		MinQuality:       getIntEnv("IMAGE_MIN_QUALITY", 30),
		QualityStep:      getIntEnv("IMAGE_QUALITY_STEP", 10),
		MaxDimension:     getIntEnv("IMAGE_MAX_DIMENSION", 2000),
		MaxHeicDimension: getIntEnv("IMAGE_MAX_HEIC_DIMENSION", 1600),

		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),

		NewsDaysWindow: getIntEnv("NEWS_DAYS_WINDOW", 1),
		NewsMaxRecords: getIntEnv("NEWS_MAX_RECORDS", 25),

		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "impact"),
		RabbitMQRoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "analysis.completed"),

		Port:         getEnv("PORT", "8080"),
		PollInterval: getDurationEnv("POLL_INTERVAL", 5*time.Minute),
	}
}

// Validate checks the configuration required before any file is
// touched. Missing keys here abort the whole batch.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.PinataJWT == "" {
		return fmt.Errorf("PINATA_JWT is required")
	}
	if c.ChainRPCURL == "" {
		return fmt.Errorf("DAO_CHAIN_RPC_URL is required")
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("CREATE_PROPOSAL_PRIVATE_KEY is required")
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("DAO_CONTRACT_ADDRESS is required")
	}
	if c.SubmissionProfile != ProfileSimple && c.SubmissionProfile != ProfileStructured {
		return fmt.Errorf("SUBMISSION_PROFILE must be %q or %q, got %q",
			ProfileSimple, ProfileStructured, c.SubmissionProfile)
	}
	return nil
}

// ActiveLedgerPath returns the ledger file gating the configured
// submission profile.
func (c *Config) ActiveLedgerPath() string {
	if c.SubmissionProfile == ProfileStructured {
		return c.StructuredLedgerPath
	}
	return c.LedgerPath
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
