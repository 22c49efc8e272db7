package s3fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/eunmann/mqom2-manage/pkg/fileutil"
)

// DownloaderConfig configures the S3 Download Manager.
type DownloaderConfig struct {
	// Concurrency is the number of concurrent download parts.
	// Default: max(4, NumCPU), capped at 16.
	Concurrency int

	// PartSize is the size of each download part in bytes.
	// Default: 8MB. KAT archives are tens of megabytes at most.
	PartSize int64
}

// DefaultDownloaderConfig returns sensible defaults based on the current machine.
func DefaultDownloaderConfig() DownloaderConfig {
	concurrency := runtime.NumCPU()
	if concurrency < 4 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}

	return DownloaderConfig{
		Concurrency: concurrency,
		PartSize:    8 * 1024 * 1024,
	}
}

func (cfg DownloaderConfig) withDefaults() DownloaderConfig {
	def := DefaultDownloaderConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PartSize <= 0 {
		cfg.PartSize = def.PartSize
	}
	return cfg
}

// Downloader wraps the AWS S3 Download Manager.
type Downloader struct {
	manager *manager.Downloader
	config  DownloaderConfig
}

// NewDownloader creates an S3 Downloader from an existing S3 client.
func NewDownloader(s3Client *s3.Client, cfg DownloaderConfig) *Downloader {
	cfg = cfg.withDefaults()

	mgr := manager.NewDownloader(s3Client, func(d *manager.Downloader) {
		d.Concurrency = cfg.Concurrency
		d.PartSize = cfg.PartSize
	})

	return &Downloader{
		manager: mgr,
		config:  cfg,
	}
}

// DownloadResult contains information about a completed download.
type DownloadResult struct {
	BytesDownloaded int64
	Duration        time.Duration
	Concurrency     int
	PartSize        int64
}

// DownloadToFile downloads an S3 object to destPath. The object lands in a
// temp file next to destPath and is renamed into place once complete, so an
// interrupted download never leaves a truncated archive behind.
func (d *Downloader) DownloadToFile(ctx context.Context, bucket, key, destPath string) (*DownloadResult, error) {
	startTime := time.Now()

	var n int64
	err := fileutil.WriteTmpThenMove(filepath.Dir(destPath), destPath, func(tmpPath string) error {
		file, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create destination file: %w", err)
		}
		defer file.Close()

		n, err = d.manager.Download(ctx, file, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	return &DownloadResult{
		BytesDownloaded: n,
		Duration:        time.Since(startTime),
		Concurrency:     d.config.Concurrency,
		PartSize:        d.config.PartSize,
	}, nil
}
