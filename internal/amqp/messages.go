package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/provider"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	KindCreated EventKind = "transaction.created"
	KindDeleted EventKind = "transaction.deleted"
)

// TransactionPayload is the wire form of a transaction.
type TransactionPayload struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Account     string          `json:"account"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionEvent announces a change to a stored transaction. Created
// events carry the full transaction so consumers need no database access.
type TransactionEvent struct {
	MessageID     string              `json:"message_id"`
	Kind          EventKind           `json:"kind"`
	TransactionID int64               `json:"transaction_id"`
	Transaction   *TransactionPayload `json:"transaction,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

func NewCreatedEvent(t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		MessageID:     provider.NewReference(),
		Kind:          KindCreated,
		TransactionID: t.ID,
		Transaction: &TransactionPayload{
			ID:          t.ID,
			Date:        t.Date,
			Amount:      t.Amount,
			Type:        t.Type.String(),
			Category:    t.Category,
			Account:     t.Account,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		},
		OccurredAt: time.Now(),
	}
}

func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{
		MessageID:     provider.NewReference(),
		Kind:          KindDeleted,
		TransactionID: id,
		OccurredAt:    time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindCreated:
		if e.Transaction == nil {
			return nil, fmt.Errorf("created event %s has no transaction", e.MessageID)
		}
	case KindDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return &e, nil
}

// ToTransaction rebuilds the domain transaction carried by a created event.
func (e *TransactionEvent) ToTransaction() (core.Transaction, error) {
	if e.Transaction == nil {
		return core.Transaction{}, fmt.Errorf("event %s has no transaction", e.MessageID)
	}
	p := e.Transaction
	typ, err := core.ParseTransactionType(p.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          p.ID,
		Date:        p.Date,
		Amount:      p.Amount,
		Type:        typ,
		Category:    p.Category,
		Account:     p.Account,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}, nil
}
