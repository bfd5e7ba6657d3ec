package storage

import (
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"airtrack/internal/config"
)

// Client wraps a storage backend and the bucket used for airplay reports.
type Client struct {
	backend Provider
	bucket  string
}

func New(cfg *config.Config) *Client {
	var backend Provider

	// 1. Internal Selection Logic
	if cfg.Reports.Provider == "local" {
		backend = NewLocalProvider(cfg.Reports.LocalPath)
	} else {
		// Defaulting to S3/B2 for anything else
		s3Config := &aws.Config{
			Credentials:      credentials.NewStaticCredentials(cfg.Reports.KeyID, cfg.Reports.AppKey, ""),
			Endpoint:         aws.String(cfg.Reports.Endpoint),
			Region:           aws.String(cfg.Reports.Region),
			S3ForcePathStyle: aws.Bool(true),
		}
		sess := session.Must(session.NewSession(s3Config))
		backend = NewS3Provider(sess)
	}

	return &Client{backend: backend, bucket: cfg.Reports.Bucket}
}

// NewWithProvider wires an explicit backend. Used by tests.
func NewWithProvider(backend Provider, bucket string) *Client {
	return &Client{backend: backend, bucket: bucket}
}

func (c *Client) PutReport(key string, body io.ReadSeeker) error {
	return c.backend.Put(c.bucket, key, body, "text/csv")
}

func (c *Client) GetReport(key string) (*FileObject, error) {
	return c.backend.Get(c.bucket, key)
}

func (c *Client) ListReports() ([]string, error) {
	return c.backend.List(c.bucket, "reports/")
}
