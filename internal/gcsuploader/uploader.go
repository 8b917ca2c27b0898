// Package gcsuploader moves statement documents and exports in and out of
// Google Cloud Storage.
package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-analyzer/internal/logger"
)

const uploadTimeout = 2 * time.Minute

// Client wraps a storage client. It uses Application Default Credentials
// unless a credentials file is given.
type Client struct {
	storage *storage.Client
}

// New creates a Client. credentialsFile may be empty.
func New(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{storage: sc}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.storage.Close()
}

// FetchFromGCS downloads the object at gcsURI.
func (c *Client) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := c.storage.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// UploadBytes writes data to gcsURI with the given content type.
func (c *Client) UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error {
	return c.upload(ctx, gcsURI, bytes.NewReader(data), contentType)
}

// UploadFile uploads a local file to gcsURI.
func (c *Client) UploadFile(ctx context.Context, gcsURI, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()
	return c.upload(ctx, gcsURI, f, ContentTypeFor(filePath))
}

func (c *Client) upload(ctx context.Context, gcsURI string, r io.Reader, contentType string) error {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.storage.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("uri", gcsURI).
		Str("content_type", contentType).
		Msg("Uploaded object")
	return nil
}

// ParseURI splits gs://bucket/path/to/object into bucket and object.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ObjectURI joins a bucket and object name into a gs:// URI.
func ObjectURI(bucket, object string) string {
	return "gs://" + bucket + "/" + strings.TrimPrefix(object, "/")
}

// ContentTypeFor guesses the content type from a file name.
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
