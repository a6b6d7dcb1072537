package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"biblio/internal/model"
	"biblio/internal/service"
)

// AuditWorker listens on the loan event topics and appends every event to the
// loan_audit table.
type AuditWorker struct {
	svc      service.LendingService
	natsConn *nats.Conn
}

func NewAuditWorker(svc service.LendingService, nc *nats.Conn) *AuditWorker {
	return &AuditWorker{
		svc:      svc,
		natsConn: nc,
	}
}

// Start subscribes to the loan event topics and blocks until ctx is
// cancelled. QueueSubscribe ensures that with multiple instances running,
// each event is recorded by exactly one worker in the group.
func (w *AuditWorker) Start(ctx context.Context) error {
	sub, err := w.natsConn.QueueSubscribe(model.TopicLoanEvents, "audit_workers", func(m *nats.Msg) {
		w.handle(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Loan audit worker is running")

	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	// Drain waits for in-flight messages before closing the subscription.
	return sub.Drain()
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *AuditWorker) Stop(ctx context.Context) error {
	return nil
}

// handle records one event. The event id deduplicates redeliveries, so a
// failed insert can simply be retried on the next delivery.
func (w *AuditWorker) handle(ctx context.Context, data []byte) {
	var event model.LoanEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("worker: failed to unmarshal loan event", "error", err)
		return
	}

	if err := w.svc.RecordLoanEvent(ctx, event); err != nil {
		slog.Error("worker: failed to record loan event",
			"event_id", event.EventID,
			"loan_id", event.LoanID,
			"error", err,
		)
		return
	}

	slog.Info("worker: loan event recorded",
		"event_id", event.EventID,
		"kind", event.Kind,
		"loan_id", event.LoanID,
	)
}
