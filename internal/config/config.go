package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Storage   StorageConfig   `yaml:"storage"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Email     EmailConfig     `yaml:"email"`
	Push      PushConfig      `yaml:"push"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
	GRPCPort int    `yaml:"grpc_port"`
	// TimeZone is the IANA zone used to decide what "today" is for agreement dates.
	TimeZone string `yaml:"time_zone"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// StorageConfig contains content store settings
type StorageConfig struct {
	Type            string `yaml:"type"`       // "mock" or "pinata"
	UploadDir       string `yaml:"upload_dir"` // For mock storage
	GatewayURL      string `yaml:"gateway_url"`
	PinataBaseURL   string `yaml:"pinata_base_url"`
	PinataAPIKey    string `yaml:"pinata_api_key"`
	PinataSecretKey string `yaml:"pinata_secret_key"`
	PinataJWT       string `yaml:"pinata_jwt"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxFileSizeMB   int64  `yaml:"max_file_size_mb"`
}

// LedgerConfig contains the EVM connection and contract settings
type LedgerConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	ChainID         int64  `yaml:"chain_id"`
	ContractAddress string `yaml:"contract_address"`
	PrivateKey      string `yaml:"private_key"`
	RentDecimals    int32  `yaml:"rent_decimals"`
	// ConfirmationTimeoutSeconds bounds the wait for a receipt. 0 waits indefinitely.
	ConfirmationTimeoutSeconds int    `yaml:"confirmation_timeout_seconds"`
	GasLimit                   uint64 `yaml:"gas_limit"`
	GasPriceWei                int64  `yaml:"gas_price_wei"`
}

// EmailConfig contains SendGrid settings. An empty API key disables email.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromAddress    string `yaml:"from_address"`
	FromName       string `yaml:"from_name"`
}

// PushConfig contains Firebase Cloud Messaging settings. Disabled when no credentials file is set.
type PushConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// MetricsConfig contains prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpireAgreements         string `yaml:"expire_agreements"`
	ReportStaleNotarizations string `yaml:"report_stale_notarizations"`
	StaleNotarizationMinutes int    `yaml:"stale_notarization_minutes"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	envString("SERVER_HOST", &c.Server.Host)
	envInt("HTTP_PORT", &c.Server.HTTPPort)
	envInt("GRPC_PORT", &c.Server.GRPCPort)
	envString("BUSINESS_TIME_ZONE", &c.Server.TimeZone)

	// Database
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	// JWT
	envString("JWT_SECRET", &c.JWT.Secret)

	// Storage
	envString("STORAGE_TYPE", &c.Storage.Type)
	envString("UPLOAD_DIR", &c.Storage.UploadDir)
	envString("PINATA_API_KEY", &c.Storage.PinataAPIKey)
	envString("PINATA_SECRET_API_KEY", &c.Storage.PinataSecretKey)
	envString("PINATA_JWT", &c.Storage.PinataJWT)

	// Ledger
	envString("RPC_URL", &c.Ledger.RPCURL)
	envString("CONTRACT_ADDRESS", &c.Ledger.ContractAddress)
	envString("PRIVATE_KEY", &c.Ledger.PrivateKey)
	if val := os.Getenv("CHAIN_ID"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Ledger.ChainID = n
		}
	}

	// Email / push
	envString("SENDGRID_API_KEY", &c.Email.SendGridAPIKey)
	envString("EMAIL_FROM", &c.Email.FromAddress)
	envString("FIREBASE_CREDENTIALS_FILE", &c.Push.CredentialsFile)

	// Log
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}
	if c.Server.TimeZone == "" {
		c.Server.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(c.Server.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Server.TimeZone, err)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// JWT
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Storage
	switch c.Storage.Type {
	case "", "mock":
		c.Storage.Type = "mock"
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory is required for mock storage")
		}
	case "pinata":
		if c.Storage.PinataJWT == "" && (c.Storage.PinataAPIKey == "" || c.Storage.PinataSecretKey == "") {
			return fmt.Errorf("pinata storage requires a JWT or an API key pair")
		}
		if c.Storage.PinataBaseURL == "" {
			c.Storage.PinataBaseURL = "https://api.pinata.cloud"
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if c.Storage.GatewayURL == "" {
		c.Storage.GatewayURL = "https://gateway.pinata.cloud/ipfs"
	}
	if c.Storage.TimeoutSeconds == 0 {
		c.Storage.TimeoutSeconds = 30
	}
	if c.Storage.MaxFileSizeMB == 0 {
		c.Storage.MaxFileSizeMB = 10
	}

	// Ledger
	if c.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger rpc url is required")
	}
	if c.Ledger.ContractAddress == "" {
		return fmt.Errorf("ledger contract address is required")
	}
	if c.Ledger.PrivateKey == "" {
		return fmt.Errorf("ledger private key is required")
	}
	if c.Ledger.ChainID <= 0 {
		return fmt.Errorf("invalid ledger chain id: %d", c.Ledger.ChainID)
	}
	if c.Ledger.RentDecimals == 0 {
		c.Ledger.RentDecimals = 18
	}

	// Email
	if c.Email.FromAddress == "" {
		c.Email.FromAddress = "no-reply@rentchain.local"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "RentChain"
	}

	// Metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	// Scheduler defaults
	if c.Scheduler.ExpireAgreements == "" {
		c.Scheduler.ExpireAgreements = "0 0 1 * * *" // 1 AM UTC
	}
	if c.Scheduler.ReportStaleNotarizations == "" {
		c.Scheduler.ReportStaleNotarizations = "0 */15 * * * *" // Every 15 minutes
	}
	if c.Scheduler.StaleNotarizationMinutes == 0 {
		c.Scheduler.StaleNotarizationMinutes = 30
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetHTTPAddress returns the HTTP API listen address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// GetGRPCAddress returns the gRPC health server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// Location returns the business time zone. Validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StaleNotarizationAfter is how long a journal row may sit unfinished before it is reported.
func (c *Config) StaleNotarizationAfter() time.Duration {
	return time.Duration(c.Scheduler.StaleNotarizationMinutes) * time.Minute
}
