package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// processArchiveEventsJob runs one archive sweep: export terminal
// webhook events past the retention window to object storage and mark
// them archived. Sweeps are idempotent (archived rows are filtered
// out), so a retried job cannot export an event twice.
func (q *Queue) processArchiveEventsJob(ctx context.Context, job *Job) error {
	if q.handlers.ArchiveSweep == nil {
		return fmt.Errorf("no archiver wired")
	}

	payload, err := ArchiveEventsJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid archive_events payload: %w", err)
	}

	archived, err := q.handlers.ArchiveSweep(ctx, payload.OlderThanDays, payload.BatchSize)
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Archive sweep exported %d webhook events", archived)
	return nil
}
