package enrollment

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const reconcileBatchSize = 50

// ReconcileWorker retries refunds for charges that settled while their
// enrollment transaction failed. Each pending row is retried until the
// gateway accepts the reversal or the retry budget runs out, after which
// the row is parked for manual review.
type ReconcileWorker struct {
	repo       ReconciliationRepository
	gateway    Gateway
	interval   time.Duration
	maxRetries int
	stopCh     chan struct{}
}

// NewReconcileWorker creates a new reconciliation worker
func NewReconcileWorker(repo ReconciliationRepository, gateway Gateway, interval time.Duration, maxRetries int) *ReconcileWorker {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &ReconcileWorker{
		repo:       repo,
		gateway:    gateway,
		interval:   interval,
		maxRetries: maxRetries,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background worker
func (w *ReconcileWorker) Start() {
	log.Info().Msg("Starting payment reconciliation worker...")
	go w.loop()
}

// Stop gracefully stops the background worker
func (w *ReconcileWorker) Stop() {
	log.Info().Msg("Stopping payment reconciliation worker...")
	close(w.stopCh)
}

func (w *ReconcileWorker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.processPending()

	for {
		select {
		case <-ticker.C:
			w.processPending()
		case <-w.stopCh:
			return
		}
	}
}

func (w *ReconcileWorker) processPending() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := w.repo.ListPending(ctx, reconcileBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pending payment reconciliations")
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Info().Int("count", len(pending)).Msg("Retrying stranded charge reversals")

	for i := range pending {
		w.reconcile(ctx, &pending[i])
	}
}

func (w *ReconcileWorker) reconcile(ctx context.Context, rec *Reconciliation) {
	_, err := w.gateway.Refund(ctx, rec.GatewayTxnID, refundKey(rec.GatewayTxnID))
	if err != nil {
		log.Warn().
			Err(err).
			Str("reconciliation_id", rec.ID.String()).
			Str("gateway_txn_id", rec.GatewayTxnID).
			Int("retry_count", rec.RetryCount+1).
			Msg("Charge reversal failed")
		if bumpErr := w.repo.BumpRetry(ctx, rec.ID, w.maxRetries); bumpErr != nil {
			log.Error().Err(bumpErr).Str("reconciliation_id", rec.ID.String()).Msg("Failed to record reversal retry")
		}
		return
	}

	if err := w.repo.MarkReversed(ctx, rec.ID); err != nil {
		log.Error().Err(err).Str("reconciliation_id", rec.ID.String()).Msg("Failed to mark reconciliation reversed")
		return
	}

	log.Info().
		Str("reconciliation_id", rec.ID.String()).
		Str("gateway_txn_id", rec.GatewayTxnID).
		Int64("amount_cents", rec.AmountCents).
		Msg("Stranded charge reversed")
}
