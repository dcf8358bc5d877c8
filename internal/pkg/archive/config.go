package archive

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/korefinance/kore/internal/pkg/env"
)

const (
	// DefaultAfterDays is how long terminal webhook events stay in the
	// hot table before a sweep exports them.
	DefaultAfterDays = 30

	// DefaultBatchSize caps how many events one sweep exports.
	DefaultBatchSize = 500
)

// Config holds webhook archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	AfterDays       int
	Enabled         bool
}

// LoadConfig loads archive configuration from environment variables
func LoadConfig() (*Config, error) {
	afterDays := DefaultAfterDays
	if v, err := strconv.Atoi(env.GetEnv("ARCHIVE_AFTER_DAYS", "")); err == nil && v > 0 {
		afterDays = v
	}

	config := &Config{
		AccessKeyID:     env.GetEnv("ARCHIVE_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("ARCHIVE_S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("ARCHIVE_S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("ARCHIVE_S3_BUCKET", ""),
		EndpointURL:     env.GetEnv("ARCHIVE_S3_ENDPOINT", ""),
		AfterDays:       afterDays,
		Enabled:         env.GetEnv("ARCHIVE_ENABLED", "false") == "true",
	}

	// Validate required fields if the archive is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("ARCHIVE_S3_ACCESS_KEY_ID is required when the webhook archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("ARCHIVE_S3_SECRET_ACCESS_KEY is required when the webhook archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("ARCHIVE_S3_BUCKET is required when the webhook archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the webhook archive is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// GetObjectKey generates the S3 object key for one webhook event,
// partitioned by the day it was received.
// Format: webhooks/YYYY/MM/DD/{id}.json
func (c *Config) GetObjectKey(eventID string, receivedAt time.Time) string {
	d := receivedAt.UTC()
	return fmt.Sprintf("webhooks/%04d/%02d/%02d/%s.json", d.Year(), int(d.Month()), d.Day(), eventID)
}
