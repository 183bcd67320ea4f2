package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/CorrelAid/application_uploader/models"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort               = "8080"
	DefaultMaxFileSize        = 4 << 20 // 4 MiB
	DefaultRateLimitPerMinute = 30
	DefaultKeyPrefix          = "resumes/"
	DefaultSheetsRange        = "Sheet1!A1"
	DefaultCleanupInterval    = time.Hour

	ProviderS3  = "s3"
	ProviderGCS = "gcs"

	SinkHTTP   = "http"
	SinkSheets = "sheets"

	FormatMultipart = "multipart"
	FormatJSON      = "json"

	DefaultEnvelopeStatus = "prod"
	CandidateEmailHeader  = "X-Candidate-Email"
)

type Config struct {
	Port      string
	GinMode   string
	LogFormat string
	LogLevel  string

	MaxFileSize        int64
	RateLimitPerMinute float64
	AllowedHosts       []string
	CORSAllowedOrigins []string

	TurnstileSecret string
	TestToken       string

	Cooldown                time.Duration
	CooldownCleanupInterval time.Duration

	SubmitTimeout time.Duration

	Storage  StorageConfig
	Sinks    []SinkConfig
	SendGrid SendGridConfig
}

// StorageConfig selects and configures the object store for résumés.
type StorageConfig struct {
	Provider        string `env:"STORAGE_PROVIDER" validate:"oneof=s3 gcs"`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY_ID" validate:"required_if=Provider s3"`
	SecretAccessKey string `env:"STORAGE_SECRET_ACCESS_KEY" validate:"required_if=Provider s3"`
	Bucket          string `env:"STORAGE_BUCKET" validate:"required"`
	Region          string `env:"STORAGE_REGION" validate:"required_if=Provider s3"`
	Endpoint        string `env:"STORAGE_ENDPOINT" validate:"omitempty,url"`
	KeyPrefix       string `env:"STORAGE_KEY_PREFIX"`
	PublicBaseURL   string `env:"STORAGE_PUBLIC_BASE_URL" validate:"omitempty,url"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// SinkConfig describes one destination for the submitted payload.
type SinkConfig struct {
	Name            string            `yaml:"name" validate:"required"`
	Type            string            `yaml:"type" validate:"oneof=http sheets"`
	URL             string            `yaml:"url"`
	Format          string            `yaml:"format" validate:"oneof=multipart json"`
	Headers         map[string]string `yaml:"headers"`
	SpreadsheetID   string            `yaml:"spreadsheet_id" validate:"required_if=Type sheets"`
	Range           string            `yaml:"range"`
	CredentialsFile string            `yaml:"credentials_file"`
	Envelope        bool              `yaml:"envelope"`
	Status          string            `yaml:"status"`
}

type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
}

func (c SendGridConfig) Enabled() bool {
	return c.APIKey != "" && c.From != ""
}

type sinkFile struct {
	Sinks []SinkConfig `yaml:"sinks"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		if name := strings.Split(f.Tag.Get("yaml"), ",")[0]; name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// LoadDotEnv loads a .env file when one exists. A missing file is not an
// error so deployments can rely on the real environment alone.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the configuration through lookup, which has the
// signature of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		Port:               get("PORT", DefaultPort),
		GinMode:            get("GIN_MODE", "debug"),
		LogFormat:          get("LOG_FORMAT", "logfmt"),
		LogLevel:           get("LOG_LEVEL", "info"),
		AllowedHosts:       splitList(get("ALLOWED_HOSTS", "")),
		CORSAllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS", "")),
		TurnstileSecret:    get("TURNSTILE_SECRET_KEY", ""),
		TestToken:          get("TEST_TOKEN", ""),
		Storage: StorageConfig{
			Provider:        strings.ToLower(get("STORAGE_PROVIDER", ProviderS3)),
			AccessKeyID:     get("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: get("STORAGE_SECRET_ACCESS_KEY", ""),
			Bucket:          get("STORAGE_BUCKET", ""),
			Region:          get("STORAGE_REGION", ""),
			Endpoint:        get("STORAGE_ENDPOINT", ""),
			KeyPrefix:       get("STORAGE_KEY_PREFIX", DefaultKeyPrefix),
			PublicBaseURL:   get("STORAGE_PUBLIC_BASE_URL", ""),
			CredentialsFile: get("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		SendGrid: SendGridConfig{
			APIKey:   get("SENDGRID_API_KEY", ""),
			From:     get("SENDGRID_FROM", ""),
			FromName: get("SENDGRID_FROM_NAME", ""),
		},
	}

	var err error
	if cfg.MaxFileSize, err = parseInt("MAX_FILE_SIZE", get("MAX_FILE_SIZE", ""), DefaultMaxFileSize); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = parseFloat("RATE_LIMIT_PER_MINUTE", get("RATE_LIMIT_PER_MINUTE", ""), DefaultRateLimitPerMinute); err != nil {
		return Config{}, err
	}
	if cfg.Cooldown, err = parseDuration("SUBMISSION_COOLDOWN", get("SUBMISSION_COOLDOWN", ""), 0); err != nil {
		return Config{}, err
	}
	if cfg.CooldownCleanupInterval, err = parseDuration("COOLDOWN_CLEANUP_INTERVAL", get("COOLDOWN_CLEANUP_INTERVAL", ""), DefaultCleanupInterval); err != nil {
		return Config{}, err
	}
	if cfg.CooldownCleanupInterval <= 0 {
		return Config{}, &models.ConfigurationError{Reason: "COOLDOWN_CLEANUP_INTERVAL must be positive"}
	}
	if cfg.SubmitTimeout, err = parseDuration("SUBMIT_TIMEOUT", get("SUBMIT_TIMEOUT", ""), 0); err != nil {
		return Config{}, err
	}

	if submitURL := get("SUBMIT_URL", ""); submitURL != "" {
		cfg.Sinks = append(cfg.Sinks, SinkConfig{Name: "submit", URL: submitURL})
	}
	if path := get("SINKS_FILE", ""); path != "" {
		sinks, err := LoadSinks(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Sinks = append(cfg.Sinks, sinks...)
	}
	if err := ValidateSinks(cfg.Sinks); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadSinks parses a YAML sink descriptor file.
func LoadSinks(path string) ([]SinkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sinks file: %w", err)
	}
	return ParseSinks(data)
}

func ParseSinks(data []byte) ([]SinkConfig, error) {
	var file sinkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &models.ConfigurationError{Reason: "sinks file: " + err.Error()}
	}
	return file.Sinks, nil
}

// ValidateSinks applies defaults in place and checks every descriptor.
func ValidateSinks(sinks []SinkConfig) error {
	if len(sinks) == 0 {
		return &models.ConfigurationError{Missing: []string{"SUBMIT_URL or SINKS_FILE"}}
	}
	seen := make(map[string]bool, len(sinks))
	for i := range sinks {
		s := &sinks[i]
		if s.Type == "" {
			s.Type = SinkHTTP
		}
		if s.Format == "" {
			s.Format = FormatMultipart
		}
		if s.Type == SinkSheets && s.Range == "" {
			s.Range = DefaultSheetsRange
		}
		if s.Envelope && s.Status == "" {
			s.Status = DefaultEnvelopeStatus
		}
		if err := validate.Struct(s); err != nil {
			return toConfigurationError(err, "sink "+strconv.Quote(s.Name))
		}
		if s.Type == SinkHTTP {
			u, err := url.ParseRequestURI(s.URL)
			if err != nil || u.Host == "" {
				return &models.ConfigurationError{Reason: fmt.Sprintf("sink %q: url %q is not absolute", s.Name, s.URL)}
			}
		}
		if s.Envelope && (s.Type != SinkHTTP || s.Format != FormatJSON) {
			return &models.ConfigurationError{Reason: fmt.Sprintf("sink %q: envelope needs type http and format json", s.Name)}
		}
		if seen[s.Name] {
			return &models.ConfigurationError{Reason: fmt.Sprintf("sink %q declared twice", s.Name)}
		}
		seen[s.Name] = true
	}
	return nil
}

// Validate reports every missing storage setting at once.
func (c StorageConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return toConfigurationError(err, "storage "+c.Provider)
	}
	return nil
}

func toConfigurationError(err error, scope string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &models.ConfigurationError{Reason: scope + ": " + err.Error()}
	}
	cerr := &models.ConfigurationError{}
	var invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			cerr.Missing = append(cerr.Missing, fe.Field())
		default:
			invalid = append(invalid, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
		}
	}
	cerr.Reason = scope
	if len(invalid) > 0 {
		cerr.Reason += ": " + strings.Join(invalid, ", ")
	}
	return cerr
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(key, raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, &models.ConfigurationError{Reason: fmt.Sprintf("%s=%q is not a positive integer", key, raw)}
	}
	return v, nil
}

func parseFloat(key, raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, &models.ConfigurationError{Reason: fmt.Sprintf("%s=%q is not a positive number", key, raw)}
	}
	return v, nil
}

func parseDuration(key, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		return 0, &models.ConfigurationError{Reason: fmt.Sprintf("%s=%q is not a duration", key, raw)}
	}
	return v, nil
}
