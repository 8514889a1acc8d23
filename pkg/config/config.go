package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Hyperledger Fabric configuration
	Fabric FabricConfig `mapstructure:"fabric"`

	// JWT configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// FabricConfig holds Hyperledger Fabric configuration. All values are
// static for the lifetime of the process.
type FabricConfig struct {
	ChannelName       string `mapstructure:"channel_name"`
	ChaincodeName     string `mapstructure:"chaincode_name"`
	WalletPath        string `mapstructure:"wallet_path"`
	ConnectionProfile string `mapstructure:"connection_profile"`
	IdentityLabel     string `mapstructure:"identity_label"`
	MSPID             string `mapstructure:"msp_id"`
	PeerName          string `mapstructure:"peer_name"`
	GatewayTimeout    int    `mapstructure:"gateway_timeout"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	TokenTTL  int    `mapstructure:"token_ttl"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
	BurstSize      int  `mapstructure:"burst_size"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/biomtake")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3002)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// JWT defaults
	viper.SetDefault("jwt.token_ttl", 86400) // 24 hours
	viper.SetDefault("jwt.issuer", "biomtake-api")

	// Fabric defaults
	viper.SetDefault("fabric.channel_name", "mychannel")
	viper.SetDefault("fabric.chaincode_name", "biomtake")
	viper.SetDefault("fabric.wallet_path", "./wallet")
	viper.SetDefault("fabric.connection_profile", "./connection-org1.json")
	viper.SetDefault("fabric.identity_label", "admin")
	viper.SetDefault("fabric.msp_id", "Org1MSP")
	viper.SetDefault("fabric.gateway_timeout", 30)

	// Rate limiting defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_min", 100)
	viper.SetDefault("rate_limit.burst_size", 10)

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if walletPath := os.Getenv("WALLET_PATH"); walletPath != "" {
		config.Fabric.WalletPath = walletPath
	}

	if ccpPath := os.Getenv("CONNECTION_PROFILE"); ccpPath != "" {
		config.Fabric.ConnectionProfile = ccpPath
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.JWT.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required")
	}

	if config.JWT.TokenTTL <= 0 {
		return fmt.Errorf("invalid token TTL: %d", config.JWT.TokenTTL)
	}

	if config.Fabric.ChannelName == "" || config.Fabric.ChaincodeName == "" {
		return fmt.Errorf("fabric channel and chaincode names are required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	return nil
}
