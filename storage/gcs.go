package storage

import (
	"context"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/CorrelAid/application_uploader/config"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore writes to a Google Cloud Storage bucket. Credentials come from
// GOOGLE_APPLICATION_CREDENTIALS or the ambient service account.
type GCSStore struct {
	client     *gcs.Client
	bucket     string
	publicBase string
}

func NewGCSStore(ctx context.Context, cfg config.StorageConfig, opts ...option.ClientOption) (*GCSStore, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = publicURL(gcsPublicHost, cfg.Bucket)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, publicBase: base}, nil
}

func (s *GCSStore) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"
	w.ACL = []gcs.ACLRule{{Entity: gcs.AllUsers, Role: gcs.RoleReader}}

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return publicURL(s.publicBase, key), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
