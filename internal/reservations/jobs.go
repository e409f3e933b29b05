package reservations

import (
	"context"
	"sync"
	"time"

	"taquilla/pkg/logger"
)

// JobProcessor runs the expired-hold sweep in the background
type JobProcessor struct {
	service Service
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	SweepInterval time.Duration
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		SweepInterval: 1 * time.Minute,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil || config.SweepInterval <= 0 {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		service: service,
		config:  config,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start starts the sweep loop
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.wg.Add(1)
	go jp.startSweeper(ctx)

	jp.log.Info("Hold sweeper started", "interval", jp.config.SweepInterval.String())
}

// Stop stops the sweep loop and waits for an in-flight sweep to finish
func (jp *JobProcessor) Stop() {
	jp.once.Do(func() { close(jp.done) })
	jp.wg.Wait()
	jp.log.Info("Hold sweeper stopped")
}

func (jp *JobProcessor) startSweeper(ctx context.Context) {
	defer jp.wg.Done()

	ticker := time.NewTicker(jp.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.processExpiredHolds(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// processExpiredHolds runs one sweep
func (jp *JobProcessor) processExpiredHolds(ctx context.Context) {
	released, err := jp.service.ReleaseExpired(ctx)
	if err != nil {
		jp.log.ErrorWithContext(ctx, "Error releasing expired holds", err, nil)
		return
	}

	if released > 0 {
		jp.log.InfoContext(ctx, "Released expired holds", "seats", released)
	}
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	status := "running"
	select {
	case <-jp.done:
		status = "stopped"
	default:
	}
	return map[string]interface{}{
		"sweep_interval": jp.config.SweepInterval.String(),
		"status":         status,
	}
}
