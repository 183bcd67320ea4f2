package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/CorrelAid/application_uploader/config"
	"github.com/CorrelAid/application_uploader/models"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const defaultContentType = "application/octet-stream"

// ObjectStore writes one object with public-read access and returns the URL
// it can be fetched from.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// Uploader stores résumés under unique keys.
type Uploader struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
	logger log.Logger
}

// New validates cfg and builds an Uploader for the configured provider.
// Configuration problems are reported before any client is created.
func New(ctx context.Context, cfg config.StorageConfig, logger log.Logger) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var store ObjectStore
	switch cfg.Provider {
	case config.ProviderGCS:
		gcsStore, err := NewGCSStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = gcsStore
	default:
		store = NewS3Store(cfg)
	}
	return NewUploader(cfg, store, logger)
}

func NewUploader(cfg config.StorageConfig, store ObjectStore, logger log.Logger) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &models.ConfigurationError{Reason: "no object store for provider " + cfg.Provider}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Uploader{
		store:  store,
		prefix: cfg.KeyPrefix,
		now:    time.Now,
		logger: log.With(logger, "component", "uploader"),
	}, nil
}

// Upload writes file to the bucket in a single attempt.
func (u *Uploader) Upload(ctx context.Context, file models.File) (models.UploadResult, error) {
	key := ObjectKey(u.prefix, u.now(), file.Name)
	contentType := file.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	publicURL, err := u.store.PutObject(ctx, key, bytes.NewReader(file.Content), int64(len(file.Content)), contentType)
	if err != nil {
		level.Error(u.logger).Log("method", "Upload", "key", key, "err", err)
		return models.UploadResult{}, &models.UploadError{Key: key, Err: err}
	}

	level.Info(u.logger).Log("method", "Upload", "key", key, "size", len(file.Content), "url", publicURL)
	return models.UploadResult{PublicURL: publicURL}, nil
}

// ObjectKey is prefix + Unix milliseconds + "-" + the normalised file name.
func ObjectKey(prefix string, t time.Time, name string) string {
	return fmt.Sprintf("%s%d-%s", prefix, t.UnixMilli(), processName(name))
}

func processName(input string) string {
	base := path.Base(strings.ReplaceAll(input, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	lowercase := strings.ToLower(strings.TrimSpace(base))
	return strings.ReplaceAll(lowercase, " ", "_")
}

func publicURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
