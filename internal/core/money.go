// Package core provides money parsing and handling utilities.
//
// Amounts are whole Rupiah. Input typed on the till is grouped with dots
// (100.000) the way id-ID formatting renders it, so parsing strips the
// grouping instead of treating the dot as a decimal separator.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseRupiah converts a user-entered amount to whole Rupiah.
//
// It accepts plain digits, dot-grouped digits and an optional "Rp" prefix.
// Negative, zero and non-numeric input is rejected with ErrInvalidAmount.
//
// Examples:
//   ParseRupiah("100000")     -> 100000, nil
//   ParseRupiah("100.000")    -> 100000, nil
//   ParseRupiah("Rp 1.250.000") -> 1250000, nil
func ParseRupiah(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatRupiah renders an amount the way the till displays it: "Rp 1.250.000".
func FormatRupiah(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return FormatRupiah(m.Rupiah)
}
