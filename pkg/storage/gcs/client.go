package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/mahuwo/mahuwo-backend/pkg/config"
	"github.com/mahuwo/mahuwo-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// ObjectStore is the storage surface used by the image service.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Client stores listing media in a single bucket.
type Client struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	var opts []option.ClientOption
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	client := &Client{
		client:        sc,
		bucket:        strings.TrimSpace(cfg.BucketName),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	if client.publicBaseURL == "" {
		client.publicBaseURL = "https://storage.googleapis.com"
	}

	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", client.bucket), "gcs client initialized")
	}
	return client, nil
}

func (c *Client) handle() (*storage.BucketHandle, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("gcs client not initialized")
	}
	return c.client.Bucket(c.bucket), nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Put streams body into the object at key.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	bh, err := c.handle()
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gcs object key is empty")
	}

	w := bh.Object(key).NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing gcs object %s: %w", key, err)
	}
	return nil
}

// Delete removes the object at key. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	bh, err := c.handle()
	if err != nil {
		return err
	}
	if err := bh.Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting gcs object %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the public address of the object at key.
func (c *Client) PublicURL(key string) string {
	if c == nil {
		return ""
	}
	return PublicURL(c.publicBaseURL, c.bucket, key)
}

// Ping checks the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	bh, err := c.handle()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := bh.Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// PublicURL joins base, bucket and an escaped object key.
func PublicURL(base, bucket, key string) string {
	base = strings.TrimRight(base, "/")
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, strings.Join(segments, "/"))
}
