package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:   "secure-secret-at-least-32-chars-long",
		Port:        "8080",
		StoreDriver: StoreDriverPostgres,
		DBPassword:  "secure-password",
		DBSSLMode:   "require",
		Env:         "development",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid development config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"unknown store driver", func(c *Config) { c.StoreDriver = "firestore" }, true},
		{"memory driver outside production", func(c *Config) { c.StoreDriver = StoreDriverMemory }, false},
		{"memory driver in production", func(c *Config) {
			c.Env = "production"
			c.StoreDriver = StoreDriverMemory
		}, true},
		{"default secret in production", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"short secret in production", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"weak db password in production", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}, true},
		{"strong production config", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
