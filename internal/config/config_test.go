package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		HTTPPort:       "8080",
		AuthProvider:   "jwt",
		JWTSecret:      "secret",
		StorageBackend: "minio",
		MinIOBucket:    "images",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"jwt without secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"firebase without credentials", func(c *Config) { c.AuthProvider = "firebase" }, "FIREBASE_CREDENTIALS_PATH"},
		{"firebase with credentials", func(c *Config) {
			c.AuthProvider = "firebase"
			c.FirebaseCredentialsPath = "/etc/firebase.json"
		}, ""},
		{"unknown provider", func(c *Config) { c.AuthProvider = "ldap" }, "AUTH_PROVIDER"},
		{"s3 without bucket", func(c *Config) { c.StorageBackend = "s3" }, "S3_BUCKET"},
		{"unknown backend", func(c *Config) { c.StorageBackend = "gcs" }, "STORAGE_BACKEND"},
		{"missing port", func(c *Config) { c.HTTPPort = "" }, "HTTP_PORT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("DRAFT_TTL", "2h")
	t.Setenv("SMTP_EMAIL", "noreply@example.com")
	t.Setenv("SMTP_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "minio", cfg.StorageBackend)
	assert.Equal(t, 2*time.Hour, cfg.DraftTTL)
	assert.Equal(t, "cars", cfg.MongoCollection)
	assert.Equal(t, 15*time.Minute, cfg.PreviewTTL)
	assert.True(t, cfg.MinIOPublicRead)
	assert.True(t, cfg.MailEnabled())
}

func TestLoad_RejectsMissingSecret(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "jwt")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
