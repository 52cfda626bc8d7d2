package jobs

import (
	"context"
	"fmt"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/utils"
)

// ExpireAgreements marks ACTIVE agreements as EXPIRED once their end date has
// passed in the business time zone. Only local state changes; the ledger
// record is immutable.
func (jr *JobRunner) ExpireAgreements() {
	jr.runWithRecovery("ExpireAgreements", func() {
		ctx := context.Background()
		today := utils.Today(jr.now(), jr.config.Location())

		expired, err := jr.repos.Agreements.ExpireEnded(ctx, today.String())
		if err != nil {
			logger.Error("Failed to expire agreements", "error", err)
			return
		}
		jr.metrics.AgreementsExpired(len(expired))
		logger.Info("Expired agreements", "count", len(expired), "today", today.String())

		for _, a := range expired {
			logger.Debug("Agreement expired",
				"agreement_id", a.ID,
				"property_id", a.PropertyID,
				"tenant_id", a.TenantID,
				"end_date", a.EndDate)
			if jr.notifier == nil {
				continue
			}
			for _, userID := range []string{a.OwnerID, a.TenantID} {
				_ = jr.notifier.Notify(ctx, &domain.Notification{
					UserID:  userID,
					Title:   "Agreement Ended",
					Message: fmt.Sprintf("The rental agreement ending %s has expired", a.EndDate),
					Attributes: map[string]string{
						"type":         "AGREEMENT_EXPIRED",
						"agreement_id": a.ID,
					},
				})
			}
		}
	})
}
