package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CorrelAid/application_uploader/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"SUBMIT_URL": "https://lambda.example.com/submit",
	}))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, float64(DefaultRateLimitPerMinute), cfg.RateLimitPerMinute)
	assert.Equal(t, ProviderS3, cfg.Storage.Provider)
	assert.Equal(t, DefaultKeyPrefix, cfg.Storage.KeyPrefix)
	assert.Zero(t, cfg.Cooldown)
	assert.Equal(t, DefaultCleanupInterval, cfg.CooldownCleanupInterval)
	assert.False(t, cfg.SendGrid.Enabled())

	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, SinkConfig{
		Name:   "submit",
		Type:   SinkHTTP,
		URL:    "https://lambda.example.com/submit",
		Format: FormatMultipart,
	}, cfg.Sinks[0])
}

func TestFromLookupParsesValues(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"SUBMIT_URL":            "https://lambda.example.com/submit",
		"MAX_FILE_SIZE":         "1024",
		"SUBMISSION_COOLDOWN":   "10m",
		"ALLOWED_HOSTS":         "apply.example.com, localhost:8080 ,",
		"RATE_LIMIT_PER_MINUTE": "5",
		"SENDGRID_API_KEY":      "key",
		"SENDGRID_FROM":         "hr@example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, 10*time.Minute, cfg.Cooldown)
	assert.Equal(t, []string{"apply.example.com", "localhost:8080"}, cfg.AllowedHosts)
	assert.Equal(t, float64(5), cfg.RateLimitPerMinute)
	assert.True(t, cfg.SendGrid.Enabled())
}

func TestFromLookupRejectsBadNumbers(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"SUBMIT_URL":    "https://lambda.example.com/submit",
		"MAX_FILE_SIZE": "lots",
	}))
	var cerr *models.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Reason, "MAX_FILE_SIZE")

	_, err = FromLookup(lookupFrom(map[string]string{
		"SUBMIT_URL":                "https://lambda.example.com/submit",
		"SUBMISSION_COOLDOWN":       "1h",
		"COOLDOWN_CLEANUP_INTERVAL": "0",
	}))
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Reason, "COOLDOWN_CLEANUP_INTERVAL")
}

func TestFromLookupRequiresASink(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{}))
	var cerr *models.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"SUBMIT_URL or SINKS_FILE"}, cerr.Missing)
}

func TestLoadSinksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sinks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sinks:
  - name: webhook
    url: https://hooks.example.com/cv
    format: json
    headers:
      X-Candidate-Email: hr@example.com
  - name: sheet
    type: sheets
    spreadsheet_id: sheet-123
`), 0o600))

	cfg, err := FromLookup(lookupFrom(map[string]string{"SINKS_FILE": path}))
	require.NoError(t, err)
	require.Len(t, cfg.Sinks, 2)

	assert.Equal(t, FormatJSON, cfg.Sinks[0].Format)
	assert.Equal(t, "hr@example.com", cfg.Sinks[0].Headers["X-Candidate-Email"])
	assert.Equal(t, SinkSheets, cfg.Sinks[1].Type)
	assert.Equal(t, DefaultSheetsRange, cfg.Sinks[1].Range)
}

func TestValidateSinksRejectsBadDescriptors(t *testing.T) {
	cases := map[string][]SinkConfig{
		"relative url":   {{Name: "a", URL: "/submit"}},
		"unknown format": {{Name: "a", URL: "https://x.example", Format: "xml"}},
		"missing name":   {{URL: "https://x.example"}},
		"sheet id":       {{Name: "s", Type: SinkSheets}},
		"duplicate":      {{Name: "a", URL: "https://x.example"}, {Name: "a", URL: "https://y.example"}},
		"envelope form":  {{Name: "a", URL: "https://x.example", Envelope: true}},
	}
	for name, sinks := range cases {
		t.Run(name, func(t *testing.T) {
			var cerr *models.ConfigurationError
			assert.True(t, errors.As(ValidateSinks(sinks), &cerr))
		})
	}
}

func TestStorageValidateReportsEveryMissingSetting(t *testing.T) {
	err := StorageConfig{Provider: ProviderS3, Bucket: "cvs"}.Validate()

	var cerr *models.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.ElementsMatch(t, []string{"STORAGE_ACCESS_KEY_ID", "STORAGE_SECRET_ACCESS_KEY", "STORAGE_REGION"}, cerr.Missing)
}

func TestStorageValidateGCSNeedsOnlyBucket(t *testing.T) {
	assert.NoError(t, StorageConfig{Provider: ProviderGCS, Bucket: "cvs"}.Validate())

	var cerr *models.ConfigurationError
	require.True(t, errors.As(StorageConfig{Provider: ProviderGCS}.Validate(), &cerr))
	assert.Equal(t, []string{"STORAGE_BUCKET"}, cerr.Missing)
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
