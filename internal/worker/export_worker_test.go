package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

type fakeExporter struct {
	appended  []core.Transaction
	deleted   []int64
	appendErr error
	deleteErr error
}

func (f *fakeExporter) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appended = append(f.appended, t)
	return fmt.Sprintf("Transactions!A%d:G%d", len(f.appended)+1, len(f.appended)+1), nil
}

func (f *fakeExporter) DeleteTransaction(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func createdEvent() *amqp.TransactionEvent {
	return amqp.NewCreatedEvent(core.Transaction{
		ID:       5,
		Date:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.NewFromInt(20),
		Type:     core.Income,
		Category: "gift",
		Account:  "bank",
	})
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	transient := errors.New("quota exceeded")

	tests := []struct {
		name         string
		exporter     *fakeExporter
		event        *amqp.TransactionEvent
		wantErr      error
		wantAppended int
		wantDeleted  int
	}{
		{"created exports", &fakeExporter{}, createdEvent(), nil, 1, 0},
		{"deleted removes", &fakeExporter{}, amqp.NewDeletedEvent(5), nil, 0, 1},
		{"append failure retries", &fakeExporter{appendErr: transient}, createdEvent(), transient, 0, 0},
		{"delete failure retries", &fakeExporter{deleteErr: transient}, amqp.NewDeletedEvent(5), transient, 0, 0},
		{"never exported is done", &fakeExporter{deleteErr: fmt.Errorf("row: %w", ports.ErrNotExported)}, amqp.NewDeletedEvent(5), nil, 0, 0},
		{"unknown kind is dropped", &fakeExporter{}, &amqp.TransactionEvent{Kind: "transaction.renamed"}, nil, 0, 0},
		{"created without payload is dropped", &fakeExporter{}, &amqp.TransactionEvent{Kind: amqp.KindCreated, TransactionID: 5}, nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewExportWorker(tt.exporter)
			err := w.HandleEvent(ctx, tt.event)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(tt.exporter.appended) != tt.wantAppended || len(tt.exporter.deleted) != tt.wantDeleted {
				t.Fatalf("appended %d deleted %d", len(tt.exporter.appended), len(tt.exporter.deleted))
			}
		})
	}
}

func TestHandleEventRejectedExportIsPermanent(t *testing.T) {
	ctx := context.Background()
	rejected := fmt.Errorf("append to sheet: %w", ports.ErrExportRejected)

	tests := []struct {
		name     string
		exporter *fakeExporter
		event    *amqp.TransactionEvent
	}{
		{"append rejected", &fakeExporter{appendErr: rejected}, createdEvent()},
		{"delete rejected", &fakeExporter{deleteErr: rejected}, amqp.NewDeletedEvent(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewExportWorker(tt.exporter).HandleEvent(ctx, tt.event)
			if !errors.Is(err, amqp.ErrPermanent) || !errors.Is(err, ports.ErrExportRejected) {
				t.Fatalf("err = %v, want a permanent rejection", err)
			}
		})
	}

	err := NewExportWorker(&fakeExporter{appendErr: errors.New("timeout")}).HandleEvent(ctx, createdEvent())
	if err == nil || errors.Is(err, amqp.ErrPermanent) {
		t.Fatalf("transient failure should stay retryable, got %v", err)
	}
}

func TestHandleEventPassesTransaction(t *testing.T) {
	exp := &fakeExporter{}
	if err := NewExportWorker(exp).HandleEvent(context.Background(), createdEvent()); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	got := exp.appended[0]
	if got.ID != 5 || got.Type != core.Income || !got.Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected exported transaction %+v", got)
	}
}

func TestHandleEventWithoutExporter(t *testing.T) {
	w := NewExportWorker(nil)
	if err := w.HandleEvent(context.Background(), createdEvent()); err != nil {
		t.Fatalf("events should be accepted without an exporter: %v", err)
	}
}
