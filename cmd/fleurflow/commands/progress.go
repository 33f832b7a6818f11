package commands

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/viant/fleurflow/progress"
)

// reportProgress logs workchain counters every interval until the returned stop is called
func reportProgress(lookup func(nodeID string) (progress.Progress, bool), nodeID string, interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				snapshot, ok := lookup(nodeID)
				if !ok {
					return
				}
				log.Info().
					Str("node", nodeID).
					Int("loops", snapshot.Loops).
					Int("submitted", snapshot.Submitted).
					Int("running", snapshot.Running).
					Int("restarts", snapshot.Restarts).
					Dur("elapsed", time.Since(snapshot.StartedAt)).
					Msg("workchain progress")
			}
		}
	}()
	return func() { close(done) }
}
