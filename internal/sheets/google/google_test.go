package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"kasir/internal/core"
	ports "kasir/internal/sheets"
)

// fakeValues keeps tabs as row slices keyed by sheet name.
type fakeValues struct {
	mu      sync.Mutex
	sheets  map[string][][]any
	gets    int
	failGet error
}

func newFakeValues() *fakeValues {
	return &fakeValues{sheets: make(map[string][][]any)}
}

func sheetOf(rng string) string {
	name, _, _ := strings.Cut(rng, "!")
	return name
}

func (f *fakeValues) get(_ context.Context, _ string, rng string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return nil, f.failGet
	}
	rows := f.sheets[sheetOf(rng)]
	if strings.HasSuffix(rng, "A1:A1") && len(rows) > 0 {
		return rows[:1], nil
	}
	return rows, nil
}

func (f *fakeValues) append(_ context.Context, _ string, rng string, rows [][]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := sheetOf(rng)
	f.sheets[name] = append(f.sheets[name], rows...)
	n := len(f.sheets[name])
	return fmt.Sprintf("'%s'!A%d", name, n), nil
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Kas", 2025, "2025 Kas"},
		{"  Transaksi ", 2024, "2024 Transaksi"},
		{"2023 Kas", 2025, "2023 Kas"},
		{"", 2025, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestAppendCashEntry_WritesHeaderOnce(t *testing.T) {
	values := newFakeValues()
	jakarta := time.FixedZone("WIB", 7*3600)
	c := newClient(values, Config{SpreadsheetID: "sheet", Location: jakarta})
	ctx := context.Background()

	// 31 Dec 20:00 UTC is already 1 Jan in Jakarta.
	at := time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC)
	if _, err := c.AppendCashEntry(ctx, core.CashEntry{ID: 7, Nominal: core.Money{Rupiah: 150000}, Description: "x", UpdatedAt: at}); err != nil {
		t.Fatal(err)
	}
	ref, err := c.AppendCashEntry(ctx, core.CashEntry{ID: 8, Nominal: core.Money{Rupiah: 100000}, Description: "y", UpdatedAt: at})
	if err != nil {
		t.Fatal(err)
	}

	rows := values.sheets["2025 Kas"]
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows in 2025 Kas, got %v", values.sheets)
	}
	if rows[0][0] != "ID" || rows[1][0] != "7" || rows[1][1] != "2025-01-01 03:00:00" || rows[2][2] != int64(100000) {
		t.Fatalf("unexpected rows %v", rows)
	}
	if ref != "'2025 Kas'!A3" {
		t.Fatalf("ref = %q", ref)
	}
	if values.gets != 1 {
		t.Fatalf("header should be checked once per tab, got %d reads", values.gets)
	}
}

func TestAppendTransaction(t *testing.T) {
	values := newFakeValues()
	values.sheets["2025 Transaksi"] = [][]any{transactionHeader}
	c := newClient(values, Config{SpreadsheetID: "sheet"})

	order := "order-1"
	_, err := c.AppendTransaction(context.Background(), core.Transaction{
		ID:            "tx-1",
		OrderID:       &order,
		UserID:        "u1",
		Amount:        core.Money{Rupiah: 25000},
		Status:        core.StatusCompleted,
		Category:      core.CategorySelling,
		Type:          core.TypeIncome,
		Description:   "Order for Kopi",
		PaymentMethod: core.PaymentCash,
		CreatedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	rows := values.sheets["2025 Transaksi"]
	if len(rows) != 2 {
		t.Fatalf("existing header should not be duplicated: %v", rows)
	}
	row := rows[1]
	if row[0] != "tx-1" || row[2] != "selling" || row[4] != int64(25000) || row[9] != "order-1" || row[6] != "" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestAppend_ReadFailure(t *testing.T) {
	values := newFakeValues()
	values.failGet = errors.New("quota exceeded")
	c := newClient(values, Config{SpreadsheetID: "sheet"})

	_, err := c.AppendCashEntry(context.Background(), core.CashEntry{ID: 1, UpdatedAt: time.Now()})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
	if len(values.sheets) != 0 {
		t.Fatal("nothing should be written when the header check fails")
	}
}

func TestMirroredIDs(t *testing.T) {
	values := newFakeValues()
	values.sheets["2025 Kas"] = [][]any{{"ID"}, {"1"}, {}, {" 2 "}, {""}}
	c := newClient(values, Config{SpreadsheetID: "sheet"})

	ids, err := c.MirroredIDs(context.Background(), ports.KindCash, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected ids 1 and 2, got %v", ids)
	}
	if _, ok := ids["2"]; !ok {
		t.Fatal("ids should be trimmed")
	}

	if ids, err := c.MirroredIDs(context.Background(), ports.KindTransaction, 2025); err != nil || len(ids) != 0 {
		t.Fatalf("empty tab should give no ids, got %v %v", ids, err)
	}
	if _, err := c.MirroredIDs(context.Background(), "orders", 2025); err == nil {
		t.Fatal("unknown kind should fail")
	}
}

func TestNewClient_RequiresSpreadsheet(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Fatal("missing spreadsheet id should fail")
	}
}
