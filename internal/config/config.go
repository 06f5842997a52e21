package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Mongo    MongoConfig    `json:"mongo"`
	Ledger   LedgerConfig   `json:"ledger"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// MongoConfig holds the evidence store connection
type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// LedgerConfig holds the well-known ledger addresses. Owner administers every
// ledger; the service addresses identify the ledgers themselves when they
// call each other.
type LedgerConfig struct {
	OwnerAddress    string `json:"owner_address"`
	RegistryAddress string `json:"registry_address"`
	LendingAddress  string `json:"lending_address"`
	BenefitsAddress string `json:"benefits_address"`
	PointsAddress   string `json:"points_address"`
	OracleAddress   string `json:"oracle_address"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "credo_ledger",
			SSLMode: "disable",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "credo_evidence",
		},
		Ledger: LedgerConfig{
			OwnerAddress:    "0x0000000000000000000000000000000000000001",
			RegistryAddress: "0x0000000000000000000000000000000000000010",
			LendingAddress:  "0x0000000000000000000000000000000000000011",
			BenefitsAddress: "0x0000000000000000000000000000000000000012",
			PointsAddress:   "0x0000000000000000000000000000000000000013",
			OracleAddress:   "0x0000000000000000000000000000000000000014",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if mongoURI := os.Getenv("MONGO_URI"); mongoURI != "" {
		config.Mongo.URI = mongoURI
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if owner := os.Getenv("LEDGER_OWNER_ADDRESS"); owner != "" {
		config.Ledger.OwnerAddress = owner
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
