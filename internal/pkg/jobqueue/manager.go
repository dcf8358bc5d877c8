package jobqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/korefinance/kore/internal/pkg/metrics"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	archiveTicker *time.Ticker
	depthTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 5
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "5")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// SetHandlers installs the domain handlers on the managed queue. Must
// be called before Start.
func (m *Manager) SetHandlers(h Handlers) {
	m.queue.SetHandlers(h)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Periodic archive sweep, only when the archive feature is on
	if env.GetEnv("ARCHIVE_ENABLED", "false") == "true" {
		interval := 60
		if v, err := strconv.Atoi(env.GetEnv("ARCHIVE_SWEEP_INTERVAL_MINUTES", "60")); err == nil && v > 0 {
			interval = v
		}
		m.archiveTicker = time.NewTicker(time.Duration(interval) * time.Minute)
		m.wg.Add(1)
		go m.archiveWorker(interval)
	}

	// Queue depth gauge refresh
	m.depthTicker = time.NewTicker(15 * time.Second)
	m.wg.Add(1)
	go m.depthWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.archiveTicker != nil {
		m.archiveTicker.Stop()
	}
	if m.depthTicker != nil {
		m.depthTicker.Stop()
	}

	// Signal workers to stop. The channel stays non-nil so a worker
	// mid-loop still observes the close.
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// archiveWorker periodically enqueues an archive sweep so old terminal
// webhook events leave the hot table.
func (m *Manager) archiveWorker(intervalMinutes int) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started archive worker (interval: %d minutes)", intervalMinutes)

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Archive worker stopping")
			return
		case <-m.archiveTicker.C:
			if _, err := m.queue.EnqueueJob(JobTypeArchiveEvents, ArchiveEventsJobPayload{}.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueuing archive sweep: %v", err)
			}
		}
	}
}

// depthWorker refreshes the queue depth gauges.
func (m *Manager) depthWorker() {
	defer m.wg.Done()
	ctx := context.Background()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Depth worker stopping")
			return
		case <-m.depthTicker.C:
			if pending, err := m.queue.GetQueueSize(ctx); err == nil {
				metrics.SetQueueDepth("pending", float64(pending))
			}
			if processing, err := m.queue.GetProcessingSize(ctx); err == nil {
				metrics.SetQueueDepth("processing", float64(processing))
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
