// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	MigrationURL        string        `mapstructure:"MIGRATION_URL"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	TransferTimeout     time.Duration `mapstructure:"TRANSFER_TIMEOUT"`
	TransferMaxRetries  int           `mapstructure:"TRANSFER_MAX_RETRIES"`
	Environement        string        `mapstructure:"GO_ENV"`
}

// Defaults applied when neither the config file nor the environment sets a value.
const (
	DefaultTransferTimeout    = 5 * time.Second
	DefaultTransferMaxRetries = 3
	DefaultTokenType          = "paseto"
)

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("TRANSFER_TIMEOUT", DefaultTransferTimeout)
	v.SetDefault("TRANSFER_MAX_RETRIES", DefaultTransferMaxRetries)
	v.SetDefault("TOKEN_TYPE", DefaultTokenType)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
