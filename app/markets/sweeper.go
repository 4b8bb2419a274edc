package markets

import (
	"context"
	"time"

	"github.com/joefazee/marketcore/internal/logger"
)

// RunExpirySweeper closes expired markets every interval until ctx ends.
func RunExpirySweeper(ctx context.Context, svc Service, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CloseExpiredMarkets(ctx)
			if err != nil {
				log.Error(err, map[string]interface{}{"op": "expiry sweep"})
			}
			if n > 0 {
				log.Info("expired markets closed", map[string]interface{}{"count": n})
			}
		}
	}
}
