package core

import (
	"fmt"
	"strings"
)

// NextBalance applies a cash event to the previous balance.
func NextBalance(old Money, c Category, amount Money) Money {
	if c.IsBuying() {
		return Money{Rupiah: old.Rupiah - amount.Rupiah}
	}
	return Money{Rupiah: old.Rupiah + amount.Rupiah}
}

// DescribeCashEvent builds the ledger description for a balance change.
// Amounts are written as plain integers so the row stays greppable.
func DescribeCashEvent(c Category, amount, old, updated Money, reason string) string {
	var head string
	if c.IsBuying() {
		head = "Saldo berkurang karena pembelian."
	} else {
		head = "Saldo bertambah dari penjualan."
	}
	reason = strings.TrimSpace(reason)
	if reason != "" {
		head += " " + strings.TrimSuffix(reason, ".") + "."
	}
	return fmt.Sprintf("%s Nominal: %d. Saldo lama: %d. Saldo baru: %d",
		head, amount.Rupiah, old.Rupiah, updated.Rupiah)
}

// PlanCashEvent derives the entry to append after prev. A nil prev means the
// ledger is empty and the balance starts at zero. ID and UpdatedAt are left
// for the data service to assign.
func PlanCashEvent(prev *CashEntry, c Category, amount Money, reason string) CashEntry {
	var old Money
	if prev != nil {
		old = prev.Nominal
	}
	updated := NextBalance(old, c, amount)
	return CashEntry{
		Nominal:     updated,
		Description: DescribeCashEvent(c, amount, old, updated, reason),
	}
}

// ClassifyCashEntry maps a ledger description to a short display reason and
// whether the entry lowered the balance.
func ClassifyCashEntry(desc string) (reason string, decrease bool) {
	d := strings.ToLower(desc)
	switch {
	case strings.Contains(d, "berkurang"):
		switch {
		case strings.Contains(d, "pembelian") || strings.Contains(d, "buying"):
			return "Pembelian Barang", true
		case strings.Contains(d, "pengeluaran") || strings.Contains(d, "outcome"):
			return "Pengeluaran", true
		case strings.Contains(d, "tarik") || strings.Contains(d, "withdraw"):
			return "Penarikan Tunai", true
		}
		return "Saldo Berkurang", true
	case strings.Contains(d, "bertambah"):
		switch {
		case strings.Contains(d, "penjualan") || strings.Contains(d, "selling"):
			return "Penjualan", false
		case strings.Contains(d, "pemasukan") || strings.Contains(d, "income"):
			return "Pemasukan", false
		case strings.Contains(d, "setor") || strings.Contains(d, "deposit"):
			return "Setoran Tunai", false
		}
		return "Saldo Bertambah", false
	}
	if desc == "" {
		return "Tidak ada keterangan", false
	}
	return desc, false
}
