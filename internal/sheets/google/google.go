package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"kasir/internal/core"
	ports "kasir/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	cashHeader        = []any{"ID", "Waktu", "Saldo", "Keterangan"}
	transactionHeader = []any{"ID", "Waktu", "Kategori", "Tipe", "Jumlah", "Pembayaran", "Platform", "Status", "Keterangan", "Order", "User"}
)

// valuesAPI is the slice of the Sheets values resource the client uses.
type valuesAPI interface {
	get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (updatedRange string, err error)
}

type sheetsValues struct {
	svc *gsheet.Service
}

func (v sheetsValues) get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v sheetsValues) append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error) {
	resp, err := v.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}

// Config names the spreadsheet and the base tab names. Tabs are year
// prefixed, e.g. "2025 Kas".
type Config struct {
	SpreadsheetID     string
	CashSheet         string
	TransactionsSheet string
	Location          *time.Location
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	cashBase      string
	txBase        string
	loc           *time.Location

	mu          sync.Mutex
	headerReady map[string]bool
}

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

// NewClient creates a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(sheetsValues{svc: svc}, cfg), nil
}

func newClient(values valuesAPI, cfg Config) *Client {
	cashBase := strings.TrimSpace(cfg.CashSheet)
	if cashBase == "" {
		cashBase = "Kas"
	}
	txBase := strings.TrimSpace(cfg.TransactionsSheet)
	if txBase == "" {
		txBase = "Transaksi"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		values:        values,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		cashBase:      cashBase,
		txBase:        txBase,
		loc:           loc,
		headerReady:   make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
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

// AppendCashEntry writes one ledger row to the tab of the entry's year.
func (c *Client) AppendCashEntry(ctx context.Context, e core.CashEntry) (string, error) {
	sheet := yearPrefixedName(c.cashBase, e.UpdatedAt.In(c.loc).Year())
	return c.appendRow(ctx, sheet, cashHeader, cashRow(e, c.loc))
}

// AppendTransaction writes one transaction row to the tab of its year.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	sheet := yearPrefixedName(c.txBase, t.CreatedAt.In(c.loc).Year())
	return c.appendRow(ctx, sheet, transactionHeader, transactionRow(t, c.loc))
}

func (c *Client) appendRow(ctx context.Context, sheet string, header, row []any) (string, error) {
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.ensureHeader(ctx, sheet, header); err != nil {
		return "", err
	}
	ref, err := c.values.append(ctx, c.spreadsheetID, sheet+"!A:A", [][]any{row})
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	return ref, nil
}

// ensureHeader writes the header row into an empty tab, once per process.
func (c *Client) ensureHeader(ctx context.Context, sheet string, header []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headerReady[sheet] {
		return nil
	}
	first, err := c.values.get(ctx, c.spreadsheetID, sheet+"!A1:A1")
	if err != nil {
		return fmt.Errorf("read header of %s: %w", sheet, err)
	}
	if len(first) == 0 {
		if _, err := c.values.append(ctx, c.spreadsheetID, sheet+"!A:A", [][]any{header}); err != nil {
			return fmt.Errorf("write header of %s: %w", sheet, err)
		}
	}
	c.headerReady[sheet] = true
	return nil
}

// MirroredIDs returns the ids in column A of the kind's tab for year.
func (c *Client) MirroredIDs(ctx context.Context, kind ports.Kind, year int) (map[string]struct{}, error) {
	if c.values == nil {
		return nil, errors.New("sheets service not initialized")
	}
	var base string
	switch kind {
	case ports.KindCash:
		base = c.cashBase
	case ports.KindTransaction:
		base = c.txBase
	default:
		return nil, fmt.Errorf("unknown mirror kind %q", kind)
	}
	rng := yearPrefixedName(base, year) + "!A:A"
	values, err := c.values.get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseIDs(values), nil
}

func cashRow(e core.CashEntry, loc *time.Location) []any {
	return []any{
		strconv.FormatInt(e.ID, 10),
		e.UpdatedAt.In(loc).Format(timeLayout),
		e.Nominal.Rupiah,
		e.Description,
	}
}

func transactionRow(t core.Transaction, loc *time.Location) []any {
	orderID := ""
	if t.OrderID != nil {
		orderID = *t.OrderID
	}
	return []any{
		t.ID,
		t.CreatedAt.In(loc).Format(timeLayout),
		string(t.Category),
		string(t.Type),
		t.Amount.Rupiah,
		string(t.PaymentMethod),
		string(t.Platform),
		string(t.Status),
		t.Description,
		orderID,
		t.UserID,
	}
}

// parseIDs collects the first cell of each row, skipping blanks and the header.
func parseIDs(values [][]any) map[string]struct{} {
	ids := make(map[string]struct{}, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.EqualFold(v, "id") {
			continue
		}
		ids[v] = struct{}{}
	}
	return ids
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
