package core

import (
	"sort"
	"strings"
	"time"
)

// Fixed filter candidates. Category candidates come from the loaded rows.
var (
	PaymentMethodCandidates = []string{string(PaymentQRIS), string(PaymentCash)}
	PlatformCandidates      = []string{
		string(PlatformShopee),
		string(PlatformOffline),
		string(PlatformGrab),
		string(PlatformGojek),
		string(PlatformNone),
	}
)

// FilterState is the set of active transaction list filters. Empty strings
// and zero Month/Year mean "unset".
type FilterState struct {
	Category      string
	PaymentMethod string
	Platform      string
	Month         time.Month
	Year          int
}

// Totals holds income and outcome sums for a scope.
type Totals struct {
	Income  Money
	Outcome Money
}

// Net is income minus outcome.
func (t Totals) Net() Money {
	return Money{Rupiah: t.Income.Rupiah - t.Outcome.Rupiah}
}

// HasDate reports whether the month/year filter applies.
func (f FilterState) HasDate() bool {
	return f.Month >= time.January && f.Month <= time.December && f.Year > 0
}

// HasActiveFilters reports whether any non-date filter is set.
func (f FilterState) HasActiveFilters() bool {
	return f.Category != "" || f.PaymentMethod != "" || f.Platform != ""
}

// NeedsFullLoad is true when filtering a partial page would silently drop rows.
func (f FilterState) NeedsFullLoad() bool {
	return f.HasActiveFilters()
}

// PlatformIgnored reports whether the platform filter is suspended because
// sell-side rows are not bucketed by acquisition platform.
func (f FilterState) PlatformIgnored() bool {
	return strings.EqualFold(f.Category, string(CategorySelling))
}

// CycleCategory advances the category chip. Landing on selling clears the
// platform filter.
func (f FilterState) CycleCategory(candidates []string) FilterState {
	f.Category = Cycle(f.Category, candidates)
	if f.PlatformIgnored() {
		f.Platform = ""
	}
	return f
}

func (f FilterState) CyclePaymentMethod() FilterState {
	f.PaymentMethod = Cycle(f.PaymentMethod, PaymentMethodCandidates)
	return f
}

// CyclePlatform advances the platform chip; it is disabled while the
// category is selling.
func (f FilterState) CyclePlatform() FilterState {
	if f.PlatformIgnored() {
		return f
	}
	f.Platform = Cycle(f.Platform, PlatformCandidates)
	return f
}

// ClearFilters drops the chip filters and keeps the date.
func (f FilterState) ClearFilters() FilterState {
	f.Category, f.PaymentMethod, f.Platform = "", "", ""
	return f
}

// ToggleMonth switches between the month of now and all time.
func (f FilterState) ToggleMonth(now time.Time) FilterState {
	if f.HasDate() {
		f.Month, f.Year = 0, 0
		return f
	}
	f.Month, f.Year = now.Month(), now.Year()
	return f
}

// Cycle returns the candidate after current. Unset advances to the first
// candidate and the last one wraps back to unset, so len(candidates)+1 calls
// return to where they started.
func Cycle(current string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	if current == "" {
		return candidates[0]
	}
	for i, c := range candidates {
		if c == current {
			if i+1 < len(candidates) {
				return candidates[i+1]
			}
			return ""
		}
	}
	return candidates[0]
}

// CategoryCandidates lists distinct non-empty categories in first-seen order.
func CategoryCandidates(txs []Transaction) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 4)
	for _, t := range txs {
		c := string(t.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Apply filters, deduplicates and sorts txs for display. The input is not
// modified. Order of evaluation: month/year, category, payment method, then
// platform (skipped when the category is selling). The result is always sorted
// by CreatedAt, newest first; rows without a timestamp go last.
func Apply(txs []Transaction, f FilterState) []Transaction {
	out := make([]Transaction, 0, len(txs))
	seen := make(map[string]struct{}, len(txs))
	for _, t := range txs {
		if t.ID != "" {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
		}
		if !matchDate(t, f) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(string(t.Category), f.Category) {
			continue
		}
		if f.PaymentMethod != "" && !strings.EqualFold(string(t.PaymentMethod), f.PaymentMethod) {
			continue
		}
		if f.Platform != "" && !f.PlatformIgnored() && !matchPlatform(t, f.Platform) {
			continue
		}
		out = append(out, t)
	}
	SortNewestFirst(out)
	return out
}

// ComputeTotals sums selling (income) and buying (outcome) amounts. Only the
// month/year filter narrows the scope; chip filters never affect totals.
func ComputeTotals(txs []Transaction, f FilterState) Totals {
	var totals Totals
	seen := make(map[string]struct{}, len(txs))
	for _, t := range txs {
		if t.ID != "" {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
		}
		if !matchDate(t, f) {
			continue
		}
		switch {
		case t.Category.IsSelling():
			totals.Income.Rupiah += t.Amount.Rupiah
		case t.Category.IsBuying():
			totals.Outcome.Rupiah += t.Amount.Rupiah
		}
	}
	return totals
}

// SortNewestFirst orders txs by CreatedAt descending in place.
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i].CreatedAt, txs[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
}

func matchDate(t Transaction, f FilterState) bool {
	if !f.HasDate() {
		return true
	}
	if t.CreatedAt.IsZero() {
		return false
	}
	utc := t.CreatedAt.UTC()
	return utc.Month() == f.Month && utc.Year() == f.Year
}

func matchPlatform(t Transaction, want string) bool {
	if strings.EqualFold(want, string(PlatformNone)) {
		return t.Platform == ""
	}
	return strings.EqualFold(string(t.Platform), want)
}
