package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Database holds the local storage configuration.
	Database DatabaseConfig `mapstructure:",squash"`

	// Redis holds the cache connection configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Sync holds the batch sync configuration.
	Sync SyncConfig `mapstructure:",squash"`

	// Providers holds the tracking provider endpoints.
	Providers ProvidersConfig `mapstructure:",squash"`

	// Credentials holds the credential store configuration.
	Credentials CredentialsConfig `mapstructure:",squash"`
}

// DatabaseConfig holds local storage details.
type DatabaseConfig struct {
	// Path is the SQLite database file location.
	Path string `mapstructure:"DB_PATH" default:"parcels.db"`
}

// RedisConfig holds the cache connection details. An empty URL disables
// the cache-backed sync cooldown.
type RedisConfig struct {
	// URL is the redis connection URL (redis://host:port).
	URL string `mapstructure:"REDIS_URL"`
}

// SyncConfig holds the batch sync tuning knobs.
type SyncConfig struct {
	// ActiveProvider selects which tracking provider syncs run against.
	ActiveProvider string `mapstructure:"ACTIVE_PROVIDER" default:"trackingmore"`
	// CooldownSeconds is how long a parcel is skipped after a successful sync.
	CooldownSeconds int `mapstructure:"SYNC_COOLDOWN_SECONDS" default:"300"`
}

// ProvidersConfig holds the tracking provider API base URLs.
type ProvidersConfig struct {
	// TrackingmoreURL is the Trackingmore API base URL.
	TrackingmoreURL string `mapstructure:"TRACKINGMORE_URL" default:"https://api.trackingmore.com"`
	// Track123URL is the Track123 API base URL.
	Track123URL string `mapstructure:"TRACK123_URL" default:"https://api.track123.com"`
}

// CredentialsConfig holds the credential store configuration.
type CredentialsConfig struct {
	// Dir is where the file-backend keyring keeps its encrypted store on
	// systems without an OS keyring.
	Dir string `mapstructure:"CREDENTIALS_DIR" default:".credentials"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
