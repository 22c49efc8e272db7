// Package s3fetch downloads reference artifacts (KAT archives) from S3.
package s3fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eunmann/mqom2-manage/internal/logctx"
	"github.com/eunmann/mqom2-manage/pkg/logging"
)

// Client provides S3 operations for fetching reference archives.
type Client struct {
	downloader *Downloader
}

// NewClient creates a new S3 client using default AWS configuration.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return NewClientWithConfig(cfg), nil
}

// NewClientWithConfig creates a new S3 client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config) *Client {
	return &Client{
		downloader: NewDownloader(s3.NewFromConfig(cfg), DefaultDownloaderConfig()),
	}
}

// DownloadFile downloads s3://bucket/key to destPath.
func (c *Client) DownloadFile(ctx context.Context, bucket, key, destPath string) (*DownloadResult, error) {
	return c.downloader.DownloadToFile(ctx, bucket, key, destPath)
}

// FetchURI downloads the object named by uri into destDir and returns the
// local path. The file keeps the key's base name.
func (c *Client) FetchURI(ctx context.Context, uri, destDir string) (string, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("fetch %s: missing object key", uri)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	dest := filepath.Join(destDir, localName(key))
	res, err := c.DownloadFile(ctx, bucket, key, dest)
	if err != nil {
		return "", err
	}

	logFetched(ctx, uri, res)
	return dest, nil
}

// logFetched reports a finished download through the logger carried by ctx.
func logFetched(ctx context.Context, uri string, res *DownloadResult) {
	logging.PhaseComplete(logctx.FromContext(ctx), "fetch", res.Duration).
		Str("uri", uri).
		Bytes("bytes", res.BytesDownloaded).
		Int("concurrency", res.Concurrency).
		Log("reference archive downloaded")
}
