package jobqueue

import (
	"context"
	"fmt"
)

// processWebhookProcessJob drives one stored webhook event through the
// reconciliation pipeline. The handler only errors on infrastructure
// failures (event not loadable, terminal mark not persistable), so a
// retry here repeats exactly the attempts that can still change state;
// business failures are already terminal on the event row.
func (q *Queue) processWebhookProcessJob(ctx context.Context, job *Job) error {
	if q.handlers.ProcessWebhookEvent == nil {
		return fmt.Errorf("no webhook processor wired")
	}

	payload, err := WebhookProcessJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid webhook_process payload: %w", err)
	}
	if payload.EventID == "" {
		return fmt.Errorf("webhook_process job %s has no event_id", job.ID)
	}

	return q.handlers.ProcessWebhookEvent(ctx, payload.EventID)
}
