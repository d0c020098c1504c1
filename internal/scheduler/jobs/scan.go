package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/unslug/backend/internal/scan"
	"github.com/wonny/unslug/backend/pkg/config"
	"github.com/wonny/unslug/backend/pkg/logger"
)

// ScanJob runs the daily scoring cycle over the configured symbol universe.
type ScanJob struct {
	runner *scan.Runner
	config *config.Config
	logger *logger.Logger
}

// NewScanJob creates a new scan job
func NewScanJob(runner *scan.Runner, cfg *config.Config, log *logger.Logger) *ScanJob {
	return &ScanJob{
		runner: runner,
		config: cfg,
		logger: log,
	}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "signal_scan"
}

// Schedule returns the cron schedule from config (after US market close by
// default).
func (j *ScanJob) Schedule() string {
	return j.config.Scan.Schedule
}

// Run executes one scoring cycle
func (j *ScanJob) Run(ctx context.Context) error {
	symbols := j.config.Scan.Symbols

	j.logger.WithField("symbols", len(symbols)).Info("Starting scheduled signal scan")

	result, err := j.runner.RunCycle(ctx, symbols)
	if err != nil {
		return fmt.Errorf("run scan cycle: %w", err)
	}

	if len(result.Failed) > 0 {
		for symbol, ferr := range result.Failed {
			j.logger.WithError(ferr).WithField("symbol", symbol).Warn("Symbol failed during scan")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"scored": len(result.Scored),
		"failed": len(result.Failed),
	}).Info("Scheduled signal scan completed")

	// partial failure is not a job failure; every symbol failing is
	if len(result.Scored) == 0 && len(result.Failed) > 0 {
		return fmt.Errorf("scan cycle scored no symbols (%d failed)", len(result.Failed))
	}

	return nil
}
