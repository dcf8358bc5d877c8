package jobqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.NotNil(t, queue.workerPool)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	// Test Redis key constants
	assert.Equal(t, "kore:jobs:", JobKeyPrefix)
	assert.Equal(t, "kore:jobs:queue", JobQueueKey)
	assert.Equal(t, "kore:jobs:processing", JobProcessingKey)
	assert.Equal(t, "kore:jobs:stats", JobStatsKey)

	// Test job settings constants
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestEnqueueDequeue(t *testing.T) {
	host, port, password := resolveTestRedis(t)
	configureTestCache(host, port, password)
	resetJobQueueRedis(t)
	t.Cleanup(func() { resetJobQueueRedis(t) })

	queue := NewQueue(1)
	ctx := context.Background()

	job, err := queue.EnqueueJob(JobTypeWebhookProcess, WebhookProcessJobPayload{EventID: "evt-queue-test"}.ToMap())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobStatusPending, job.Status)

	size, err := queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	stored, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)
	assert.Equal(t, JobTypeWebhookProcess, stored.Type)

	dequeued, err := queue.dequeueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID, dequeued.ID)

	processing, err := queue.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), processing)
}

func TestWorkerProcessesWebhookJob(t *testing.T) {
	host, port, password := resolveTestRedis(t)
	configureTestCache(host, port, password)
	resetJobQueueRedis(t)
	t.Cleanup(func() { resetJobQueueRedis(t) })

	var processed atomic.Int32
	queue := NewQueue(1)
	queue.SetHandlers(Handlers{
		ProcessWebhookEvent: func(ctx context.Context, eventID string) error {
			if eventID == "evt-worker-test" {
				processed.Add(1)
			}
			return nil
		},
	})

	queue.Start()
	t.Cleanup(queue.Stop)

	_, err := queue.EnqueueJob(JobTypeWebhookProcess, WebhookProcessJobPayload{EventID: "evt-worker-test"}.ToMap())
	require.NoError(t, err)

	deadline := time.Now().Add(10 * time.Second)
	for processed.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	assert.Equal(t, int32(1), processed.Load())
}

func TestProcessJobWithoutHandlerFails(t *testing.T) {
	host, port, password := resolveTestRedis(t)
	configureTestCache(host, port, password)
	resetJobQueueRedis(t)
	t.Cleanup(func() { resetJobQueueRedis(t) })

	queue := NewQueue(1)
	job := &Job{
		ID:         "no-handler-job",
		Type:       JobTypeWebhookProcess,
		Status:     JobStatusPending,
		Payload:    WebhookProcessJobPayload{EventID: "evt-1"}.ToMap(),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		MaxRetries: 0, // no retries so the failure is immediately terminal
	}

	queue.processJob(context.Background(), job)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMsg, "no webhook processor wired")
}
