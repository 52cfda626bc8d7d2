package jobs

import (
	"context"

	"rentchain-backend/internal/logger"
)

// ReportStaleNotarizations surfaces journal rows stuck in SUBMITTING or
// CONFIRMED. A CONFIRMED row means the ledger holds an agreement with no local
// record; re-running finalize for the offer records it.
func (jr *JobRunner) ReportStaleNotarizations() {
	jr.runWithRecovery("ReportStaleNotarizations", func() {
		ctx := context.Background()
		before := jr.now().Add(-jr.config.StaleNotarizationAfter())

		stale, err := jr.repos.Notarizations.ListStale(ctx, before)
		if err != nil {
			logger.Error("Failed to list stale notarizations", "error", err)
			return
		}
		jr.metrics.SetStaleNotarizations(len(stale))

		if len(stale) == 0 {
			logger.Info("No stale notarizations")
			return
		}
		for _, n := range stale {
			txHash := ""
			if n.TxHash != nil {
				txHash = *n.TxHash
			}
			logger.Warn("Notarization needs reconciliation",
				"offer_id", n.OfferID,
				"status", n.Status,
				"content_id", n.ContentID,
				"tx_hash", txHash,
				"last_error", n.LastError,
				"updated_on", n.UpdatedOn)
		}
		logger.Warn("Stale notarizations found", "count", len(stale))
	})
}
