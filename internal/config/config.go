// Package config defines service configuration and its loading order:
// defaults, then an optional YAML file, then environment variables.
package config

import "time"

// Config holds all process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Postgres connection settings.
	DBHost     string `koanf:"db_host"`
	DBPort     string `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_sslmode"`

	// JWTSecret verifies bearer tokens issued by the identity provider.
	JWTSecret string `koanf:"jwt_secret"`

	// WebhookSecret is the shared secret the payment processor signs
	// checkout-completion notifications with.
	WebhookSecret string `koanf:"webhook_secret"`

	// Blob storage signing.
	BlobBaseURL       string `koanf:"blob_base_url"`
	BlobSecret        string `koanf:"blob_secret"`
	PresignTTLSeconds int    `koanf:"presign_ttl_seconds"`

	// Checkout redirect targets handed to the payment processor.
	CheckoutSuccessURL string `koanf:"checkout_success_url"`
	CheckoutCancelURL  string `koanf:"checkout_cancel_url"`

	// PaymentAPIURL is the processor endpoint checkout sessions are created
	// against. Empty disables paid events (sessions fail fast).
	PaymentAPIURL string `koanf:"payment_api_url"`
}

// New returns a Config populated with local-development defaults.
func New() *Config {
	return &Config{
		Addr:               ":8080",
		LogLevel:           "info",
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "postgres",
		DBPassword:         "postgres",
		DBName:             "eventreg",
		DBSSLMode:          "disable",
		BlobBaseURL:        "http://localhost:8080/files",
		PresignTTLSeconds:  int((15 * time.Minute).Seconds()),
		CheckoutSuccessURL: "http://localhost:8080/checkout/success",
		CheckoutCancelURL:  "http://localhost:8080/checkout/cancel",
	}
}

// PresignTTL returns the presigned-URL lifetime as a duration.
func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLSeconds) * time.Second
}
