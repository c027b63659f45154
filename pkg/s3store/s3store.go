// Package s3store archives backup snapshots in an S3 compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"
)

// Config describes the target bucket.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Archiver uploads snapshot files to S3.
type Archiver struct {
	client s3iface.S3API
	bucket string
	prefix string
	logger zerolog.Logger
}

// New builds an archiver backed by a fresh aws session.
func New(cfg Config, logger zerolog.Logger) (*Archiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket must be provided")
	}

	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		DisableSSL:       aws.Bool(!cfg.UseSSL),
		S3ForcePathStyle: aws.Bool(cfg.Endpoint != ""),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return NewWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewWithClient wires an archiver around an existing S3 client.
func NewWithClient(client s3iface.S3API, bucket, prefix string, logger zerolog.Logger) *Archiver {
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With().Str("component", "s3_archiver").Logger(),
	}
}

// Upload puts the snapshot under the configured prefix and returns its s3:// location.
func (a *Archiver) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}

	key := a.objectKey(name)
	_, err = a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	a.logger.Info().Str("bucket", a.bucket).Str("key", key).Int("bytes", len(payload)).Msg("snapshot archived to s3")

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

func (a *Archiver) objectKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "backup.json"
	}
	if a.prefix == "" {
		return base
	}
	return a.prefix + "/" + base
}
