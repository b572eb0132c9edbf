package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingSecretFails(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Token.Secret)
	assert.Equal(t, 24*time.Hour, cfg.Token.AccessTokenTTL)
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, StoreDynamo, cfg.StoreBackend)
	assert.Equal(t, "users", cfg.DynamoTables.Users)
	assert.Equal(t, "user_uniques", cfg.DynamoTables.UserUniques)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("SMTP_HOST", "mail.internal")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMongo, cfg.StoreBackend)
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "postgres")
}
