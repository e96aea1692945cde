// Package checker fans a probe out over a proxy list with a bounded
// worker pool and collects the verdicts.
package checker

import (
	"context"
	"log/slog"
	"sync"

	"proxychains-pool/pkg/models"
)

// DefaultWorkers bounds concurrency when the caller does not choose a
// limit, keeping socket and file descriptor use in check.
const DefaultWorkers = 20

// Prober probes a single endpoint. Implemented by probe.Prober.
type Prober interface {
	Probe(ctx context.Context, ep models.Endpoint, proxyType models.ProxyType) models.Verdict
}

type Checker struct {
	prober  Prober
	workers int
	logger  *slog.Logger
}

func New(prober Prober, workers int, logger *slog.Logger) *Checker {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		prober:  prober,
		workers: workers,
		logger:  logger,
	}
}

// Check probes every endpoint exactly once and returns the endpoints that
// passed, in probe-completion order, along with all verdicts. Completion
// order is not stable across runs. A failed probe never aborts the batch.
// Cancelling ctx stops issuing new probes; in-flight probes finish or
// time out, and their verdicts are still collected.
func (c *Checker) Check(ctx context.Context, endpoints []models.Endpoint, proxyType models.ProxyType) ([]models.Endpoint, []models.Verdict) {
	if len(endpoints) == 0 {
		return nil, nil
	}

	workers := c.workers
	if workers > len(endpoints) {
		workers = len(endpoints)
	}

	c.logger.Info("Starting validation", "endpoints", len(endpoints), "workers", workers, "proxyType", proxyType)

	jobs := make(chan models.Endpoint, len(endpoints))
	results := make(chan models.Verdict, len(endpoints))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, jobs, results, proxyType)
	}

	// Send jobs to workers; stop issuing on cancellation.
feed:
	for _, ep := range endpoints {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- ep:
		}
	}
	close(jobs)

	// Close results once all workers are done
	go func() {
		wg.Wait()
		close(results)
	}()

	logEvery := workers / 2
	if logEvery < 1 {
		logEvery = 1
	}

	var valid []models.Endpoint
	var verdicts []models.Verdict
	for verdict := range results {
		verdicts = append(verdicts, verdict)
		if verdict.Valid {
			valid = append(valid, verdict.Endpoint)
		} else {
			c.logger.Debug("Endpoint failed validation", "endpoint", verdict.Endpoint, "error", verdict.Error)
		}
		if len(verdicts)%logEvery == 0 || len(verdicts) == len(endpoints) {
			c.logger.Info("Validation progress", "checked", len(verdicts), "total", len(endpoints), "valid", len(valid))
		}
	}

	return valid, verdicts
}

func (c *Checker) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan models.Endpoint, results chan<- models.Verdict, proxyType models.ProxyType) {
	defer wg.Done()
	for ep := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- c.prober.Probe(ctx, ep, proxyType)
	}
}
