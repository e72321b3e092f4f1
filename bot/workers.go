package bot

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// StartSweepWorker starts the background reclamation loop. Returns a cleanup
// function to stop the worker gracefully.
func (b *Bot) StartSweepWorker(ctx context.Context, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	runSweep := func() {
		report, err := b.sweeper.RunCycle(context.Background())
		if err != nil {
			log.Errorf("Sweep cycle failed: %v", err)
			return
		}
		if report.Reclaimed > 0 || report.Drifted > 0 || report.Failed > 0 {
			log.WithFields(log.Fields{
				"scanned":   report.Scanned,
				"reclaimed": report.Reclaimed,
				"drifted":   report.Drifted,
				"failed":    report.Failed,
			}).Info("Sweep cycle completed")
		}
	}

	go func() {
		log.Info("Channel sweep worker started")

		// Run immediately on startup to catch channels that expired while
		// the bot was down
		runSweep()

		for {
			select {
			case <-ctx.Done():
				log.Info("Channel sweep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Channel sweep worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				runSweep()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
