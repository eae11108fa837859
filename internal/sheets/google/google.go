package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSheetName = "Transactions"
	rowCacheSize     = 1024
	rowCacheTTL      = 24 * time.Hour
)

var ErrRowNotFound = fmt.Errorf("transaction row not found: %w", ports.ErrNotExported)

var _ ports.TransactionExporter = (*Client)(nil)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client mirrors transactions into a spreadsheet, one row per transaction:
// ID, date, type, category, account, description, amount.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	rows          *cache.LRUCache[int] // transaction id -> sheet row
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     sheet,
		rows:          cache.NewLRUCache[int](rowCacheSize, rowCacheTTL),
		logger:        log.ForComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when the config names none.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendTransaction writes t as a new row and returns the updated range.
// A transaction already present in the sheet is not written twice.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	if row, err := c.findRow(ctx, t.ID); err == nil {
		ref := c.rowRange(row)
		c.logger.InfoContext(ctx, "Transaction already exported",
			log.FieldTransactionID, t.ID, log.FieldRowRef, ref)
		return ref, nil
	} else if !errors.Is(err, ErrRowNotFound) {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{transactionRow(t)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:G", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, classify(err))
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
		if row, ok := rowFromRange(ref); ok {
			c.rows.Set(idKey(t.ID), row)
		}
	}
	c.logger.InfoContext(ctx, "Transaction exported",
		log.NewFields().Transaction(t).Args()...)
	return ref, nil
}

// DeleteTransaction clears the row holding the transaction id. It returns
// ErrRowNotFound when no row carries that id.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}

	rng := c.rowRange(row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, classify(err))
	}
	c.rows.Delete(idKey(id))

	c.logger.InfoContext(ctx, "Transaction row cleared",
		log.FieldTransactionID, id, log.FieldRowRef, rng)
	return nil
}

// findRow locates the 1-based sheet row whose column A holds id. A cached
// row is confirmed with a single-cell read before it is trusted.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	want := strconv.FormatInt(id, 10)

	if row, ok := c.rows.Get(idKey(id)); ok {
		cell := fmt.Sprintf("%s!A%d", c.sheetName, row)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, cell).Context(ctx).Do()
		if err == nil && len(resp.Values) > 0 && len(resp.Values[0]) > 0 &&
			strings.TrimSpace(fmt.Sprint(resp.Values[0][0])) == want {
			return row, nil
		}
		c.rows.Delete(idKey(id))
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, classify(err))
	}
	for i, r := range resp.Values {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == want {
			row := i + 1
			c.rows.Set(idKey(id), row)
			return row, nil
		}
	}
	return 0, fmt.Errorf("%w: id %d", ErrRowNotFound, id)
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row)
}

func transactionRow(t core.Transaction) []any {
	return []any{
		strconv.FormatInt(t.ID, 10),
		t.Date.Format("2006-01-02"),
		t.Type.String(),
		literalCell(t.Category),
		literalCell(t.Account),
		literalCell(t.Description),
		core.FormatAmount(t.Amount),
	}
}

// classify tags client errors other than throttling with
// ports.ErrExportRejected.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429 {
		return fmt.Errorf("%w: %w", ports.ErrExportRejected, err)
	}
	return err
}

// literalCell keeps user text from being parsed as a formula under
// USER_ENTERED. The leading apostrophe is hidden by Sheets.
func literalCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// rowFromRange extracts the first row number from an A1 range such as
// "Transactions!A5:G5".
func rowFromRange(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, false
	}
	return row, true
}

// RowCache exposes the id-to-row cache for periodic expiry sweeps.
func (c *Client) RowCache() cache.Cleaner {
	return c.rows
}
