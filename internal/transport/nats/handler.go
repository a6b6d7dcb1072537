package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"biblio/internal/model"
	"biblio/internal/service"
)

// Handler subscribes to NATS command topics and delegates to the lending
// service. Commands are fire-and-forget; failures are logged, results are
// observable through the HTTP API or the audit trail.
type Handler struct {
	svc  service.LendingService
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewHandler(svc service.LendingService, nc *nats.Conn) *Handler {
	return &Handler{svc: svc, nc: nc}
}

// Start subscribes to command topics and blocks until ctx is cancelled.
func (h *Handler) Start(ctx context.Context) error {
	s1, err := h.nc.QueueSubscribe("commands.issue", "lending_group", func(m *nats.Msg) {
		h.handleIssue(ctx, m.Data)
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, s1)

	s2, err := h.nc.QueueSubscribe("commands.return", "lending_group", func(m *nats.Msg) {
		h.handleReturn(ctx, m.Data)
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, s2)

	slog.Info("NATS command handler is running")

	<-ctx.Done()
	slog.Info("NATS command handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (h *Handler) handleIssue(ctx context.Context, data []byte) {
	var req model.IssueRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Error("nats: failed to unmarshal issue command", "error", err)
		return
	}
	res, err := h.svc.IssueLoan(ctx, req.BookID, req.BorrowerID)
	if err != nil {
		slog.Error("nats: issue failed", "error", err, "book_id", req.BookID, "borrower_id", req.BorrowerID)
		return
	}
	slog.Info("nats: loan issued", "loan_id", res.LoanID, "due_date", res.DueDate)
}

func (h *Handler) handleReturn(ctx context.Context, data []byte) {
	var req model.ReturnRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Error("nats: failed to unmarshal return command", "error", err)
		return
	}
	res, err := h.svc.ReturnLoan(ctx, req.LoanID)
	if err != nil {
		slog.Error("nats: return failed", "error", err, "loan_id", req.LoanID)
		return
	}
	slog.Info("nats: loan returned", "loan_id", req.LoanID, "book_id", res.BookID)
}
