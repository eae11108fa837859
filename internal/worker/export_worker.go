package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// ExportWorker mirrors transaction events into an external ledger.
type ExportWorker struct {
	exporter ports.TransactionExporter
	logger   *log.Logger
}

// NewExportWorker creates a worker. A nil exporter makes the worker log
// events without exporting them.
func NewExportWorker(exporter ports.TransactionExporter) *ExportWorker {
	return &ExportWorker{
		exporter: exporter,
		logger:   log.ForComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single transaction event from AMQP. Returned
// errors cause the event to be redelivered, except exports the ledger
// rejected outright.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		"message_id", e.MessageID,
		"kind", e.Kind,
		log.FieldTransactionID, e.TransactionID)

	if w.exporter == nil {
		w.logger.WarnContext(ctx, "No exporter configured, skipping event",
			log.FieldTransactionID, e.TransactionID)
		return nil
	}

	switch e.Kind {
	case amqp.KindCreated:
		return w.handleCreated(ctx, e)
	case amqp.KindDeleted:
		return w.handleDeleted(ctx, e)
	default:
		// Unknown kinds cannot succeed on retry.
		w.logger.ErrorContext(ctx, "Dropping event of unknown kind", "kind", e.Kind)
		return nil
	}
}

func (w *ExportWorker) handleCreated(ctx context.Context, e *amqp.TransactionEvent) error {
	t, err := e.ToTransaction()
	if err != nil {
		w.logger.ErrorContext(ctx, "Dropping malformed created event",
			"message_id", e.MessageID, log.FieldError, err)
		return nil
	}

	ref, err := w.exporter.AppendTransaction(ctx, t)
	if err != nil {
		return retryable(fmt.Errorf("export transaction %d: %w", t.ID, err))
	}

	w.logger.InfoContext(ctx, "Successfully exported transaction",
		log.FieldTransactionID, t.ID,
		log.FieldRowRef, ref)
	return nil
}

func (w *ExportWorker) handleDeleted(ctx context.Context, e *amqp.TransactionEvent) error {
	err := w.exporter.DeleteTransaction(ctx, e.TransactionID)
	if errors.Is(err, ports.ErrNotExported) {
		w.logger.WarnContext(ctx, "Deleted transaction was never exported",
			log.FieldTransactionID, e.TransactionID)
		return nil
	}
	if err != nil {
		return retryable(fmt.Errorf("remove exported transaction %d: %w", e.TransactionID, err))
	}

	w.logger.InfoContext(ctx, "Successfully removed exported transaction",
		log.FieldTransactionID, e.TransactionID)
	return nil
}

func retryable(err error) error {
	if errors.Is(err, ports.ErrExportRejected) {
		return amqp.Permanent(err)
	}
	return err
}
