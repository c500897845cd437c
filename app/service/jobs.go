package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

// RunReconcileBatch re-reads stale pending or processing intents from the provider and
// applies the authoritative status. A record succeeding here is finalized once.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.paymentsCfg.ReconcileStaleAfter)
	items, err := s.repos.PaymentRecords.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, record := range items {
		if record == nil || record.PaymentIntentID == nil {
			continue
		}

		updated, err := s.refreshFromProvider(ctx, record, "payment_reconciled")
		if err != nil {
			s.touchReconciled(ctx, record.ID, now)
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if updated.Status == record.Status {
			s.touchReconciled(ctx, record.ID, now)
		}
		if updated.Status != entity.PaymentStatusSucceeded || updated.Finalized() {
			continue
		}

		if _, err := s.finalizer.Finalize(ctx, updated); err != nil {
			s.logger.WithError(err).WithField("payment_record_id", updated.ID).Error("Finalization failed during reconcile")
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// touchReconciled sends a record the provider left unchanged to the back of the
// reconcile queue so later batches reach newer records.
func (s *PaymentService) touchReconciled(ctx context.Context, id uint64, at time.Time) {
	if err := s.repos.PaymentRecords.Touch(ctx, id, at); err != nil {
		s.logger.WithError(err).WithField("payment_record_id", id).Warn("Failed to touch reconciled payment record")
	}
}

// RunExpirePendingBatch cancels pending records older than the pending timeout. A later
// success event still promotes them.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.paymentsCfg.PendingTimeout)
	items, err := s.repos.PaymentRecords.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, record := range items {
		if record == nil {
			continue
		}

		expired := false
		updated, err := s.mutate(ctx, record.ID, func(_ context.Context, _ Repositories, locked *entity.PaymentRecord) error {
			if locked.Status != entity.PaymentStatusPending {
				return errNoChange
			}
			expired = true
			locked.Merge(entity.PaymentPatch{
				Status: entity.PaymentStatusCanceled,
				Metadata: map[string]string{
					entity.MetaCanceledAt: now.Format(time.RFC3339),
				},
			})
			return nil
		})
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if expired {
			oldStatus := entity.PaymentStatusPending
			s.recordEvent(ctx, updated.ID, "payment_expired", &oldStatus, updated.Status, nil, nil)
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
