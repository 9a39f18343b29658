package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("s", minSecretLength)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": testSecret,
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "forecasting-teller", cfg.JWT.Issuer)
	assert.Equal(t, "forecasting-teller-clients", cfg.JWT.Audience)
	assert.Equal(t, 60, cfg.JWT.ExpiryMinutes)
	assert.False(t, cfg.Policy.RequireEmailVerification)
	assert.Equal(t, 24*time.Hour, cfg.Policy.ResetTokenTTL)
	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.Equal(t, "forecasting_teller", cfg.Mongo.Database)
	assert.Equal(t, "log", cfg.Notify.Sender)
	assert.Equal(t, 4, cfg.Notify.Workers)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":                 testSecret,
		"ENV":                        "production",
		"JWT_EXPIRY_MINUTES":         "15",
		"REQUIRE_EMAIL_VERIFICATION": "true",
		"RESET_TOKEN_TTL":            "2h",
		"STORE_DRIVER":               "memory",
		"NOTIFIER":                   "postmark",
		"POSTMARK_SERVER_TOKEN":      "srv",
		"POSTMARK_ACCOUNT_TOKEN":     "acct",
		"SENDER_EMAIL":               "noreply@forecasting.test",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 15, cfg.JWT.ExpiryMinutes)
	assert.True(t, cfg.Policy.RequireEmailVerification)
	assert.Equal(t, 2*time.Hour, cfg.Policy.ResetTokenTTL)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "srv", cfg.Postmark.ServerToken)
}

func TestLoadFrom_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":       {},
		"short secret":         {"JWT_SECRET": "short"},
		"unknown store":        {"JWT_SECRET": testSecret, "STORE_DRIVER": "postgres"},
		"unknown notifier":     {"JWT_SECRET": testSecret, "NOTIFIER": "sms"},
		"postmark sans tokens": {"JWT_SECRET": testSecret, "NOTIFIER": "postmark"},
		"zero expiry":          {"JWT_SECRET": testSecret, "JWT_EXPIRY_MINUTES": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(env))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadFrom_MalformedValue(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      testSecret,
		"RESET_TOKEN_TTL": "tomorrow",
	}))
	assert.Error(t, err)
}
