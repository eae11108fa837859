package log

import (
	"time"

	"fintrack/internal/core"
)

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldType          = "type"
	FieldCategory      = "category"
	FieldAccount       = "account"
	FieldRowRef        = "row_ref"
)

const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentTransaction = "transaction"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentProvider    = "provider"
	ComponentBackend     = "backend"
)

// Values for FieldOperation.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpDelete   = "delete"
	OpList     = "list"
	OpSearch   = "search"
	OpSummary  = "summary"
	OpExport   = "export"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// Fields collects slog key/value pairs in insertion order.
//
//	logger.InfoContext(ctx, "Transaction created",
//		log.NewFields().Operation(log.OpCreate).Transaction(t).Args()...)
type Fields []any

func NewFields() Fields {
	return make(Fields, 0, 16)
}

func (f Fields) Add(key string, value any) Fields {
	return append(f, key, value)
}

func (f Fields) Operation(op string) Fields {
	return f.Add(FieldOperation, op)
}

// Err records err's message. A nil error adds nothing.
func (f Fields) Err(err error) Fields {
	if err == nil {
		return f
	}
	return f.Add(FieldError, err.Error())
}

// Transaction adds the id (once assigned), amount, type, category and
// account of t. The description is left out.
func (f Fields) Transaction(t core.Transaction) Fields {
	if t.ID != 0 {
		f = f.Add(FieldTransactionID, t.ID)
	}
	return f.
		Add(FieldAmount, core.FormatAmount(t.Amount)).
		Add(FieldType, t.Type.String()).
		Add(FieldCategory, t.Category).
		Add(FieldAccount, t.Account)
}

func (f Fields) Request(method, path, query string) Fields {
	return f.Add(FieldMethod, method).Add(FieldPath, path).Add(FieldQuery, query)
}

// Response records the status, the elapsed milliseconds, and whether the
// status counts as a success (below 400).
func (f Fields) Response(status int, elapsed time.Duration) Fields {
	return f.
		Add(FieldStatusCode, status).
		Add(FieldDuration, elapsed.Milliseconds()).
		Add(FieldSuccess, status < 400)
}

func (f Fields) Args() []any {
	return f
}
