// Package archive exports terminal webhook events to S3-compatible
// object storage so the hot webhook_events table stays small. Rows are
// marked archived, never deleted; the audit trail survives in the
// bucket as one JSON object per event.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/korefinance/kore/app/repository"
)

// Archiver wraps the S3 client with webhook-export functionality
type Archiver struct {
	s3Client *s3.Client
	config   *Config
	repos    *repository.Repositories
}

// NewArchiver creates a new webhook archiver
func NewArchiver(cfg *Config, repos *repository.Repositories) (*Archiver, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("webhook archive is disabled")
	}

	// Create AWS config
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client; path-style for S3-compatible endpoints
	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	archiver := &Archiver{
		s3Client: s3Client,
		config:   cfg,
		repos:    repos,
	}

	if err := archiver.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to archive bucket: %w", err)
	}

	log.Infof("[Archive] Initialized S3 client for bucket: %s", cfg.BucketName)
	return archiver, nil
}

// testConnection checks that the configured bucket is reachable
func (a *Archiver) testConnection() error {
	_, err := a.s3Client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.config.BucketName),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", a.config.BucketName, err)
	}
	return nil
}

// Sweep exports terminal webhook events received before the retention
// cutoff, at most batchSize per run, and marks them archived. Zero
// arguments fall back to the configured/default values. Returns how
// many events were exported; an upload failure stops the sweep but
// already-exported events stay marked, so a retried sweep resumes
// where this one stopped.
func (a *Archiver) Sweep(ctx context.Context, olderThanDays, batchSize int) (int, error) {
	if olderThanDays <= 0 {
		olderThanDays = a.config.AfterDays
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	events, err := a.repos.WebhookEvent.ListArchivable(cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list archivable events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	log.Infof("[Archive] Sweeping %d webhook events older than %d days", len(events), olderThanDays)

	now := time.Now()
	archived := make([]string, 0, len(events))
	for i := range events {
		event := &events[i]

		body, err := json.Marshal(event)
		if err != nil {
			return len(archived), fmt.Errorf("marshal webhook event %s: %w", event.ID, err)
		}

		key := a.config.GetObjectKey(event.ID, event.ReceivedAt)
		_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.config.BucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			// Mark what made it before reporting the failure.
			if len(archived) > 0 {
				if markErr := a.repos.WebhookEvent.MarkArchived(archived, now); markErr != nil {
					log.Errorf("[Archive] Failed to mark %d exported events: %v", len(archived), markErr)
				}
			}
			return len(archived), fmt.Errorf("upload webhook event %s to %s: %w", event.ID, key, err)
		}
		archived = append(archived, event.ID)
	}

	if err := a.repos.WebhookEvent.MarkArchived(archived, now); err != nil {
		return len(archived), fmt.Errorf("mark archived events: %w", err)
	}
	return len(archived), nil
}
