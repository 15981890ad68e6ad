// Package core holds the tenpista and transaction domain model.
//
// This file contains parsing for transaction amounts entered as text.
// Amounts are whole Chilean pesos: no sign, no decimals.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseMonto converts a user-entered amount to whole pesos.
//
// It accepts optional "." or "," thousands separators (es-CL formatting,
// e.g. "5.000" or "1,250,000") and rejects signs, decimals expressed with
// trailing groups shorter than three digits, and non-positive values.
//
// Examples:
//
//	ParseMonto("5000")      -> 5000, nil
//	ParseMonto("5.000")     -> 5000, nil
//	ParseMonto("1.250.000") -> 1250000, nil
//	ParseMonto("-10")       -> 0, ErrInvalidMonto
//	ParseMonto("10.5")      -> 0, ErrInvalidMonto
func ParseMonto(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMonto
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidMonto
	}

	sep := ""
	if strings.ContainsRune(s, '.') {
		sep = "."
	}
	if strings.ContainsRune(s, ',') {
		if sep != "" {
			// Mixed separators never appear in es-CL amounts.
			return 0, ErrInvalidMonto
		}
		sep = ","
	}

	digits := s
	if sep != "" {
		groups := strings.Split(s, sep)
		// First group 1-3 digits, every following group exactly 3.
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return 0, ErrInvalidMonto
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ErrInvalidMonto
			}
		}
		digits = strings.Join(groups, "")
	}

	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidMonto
		}
	}

	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidMonto
	}
	if v <= 0 {
		return 0, ErrInvalidMonto
	}
	return v, nil
}

// FormatMonto renders whole pesos with "." thousands separators for display,
// e.g. 1250000 -> "$1.250.000".
func FormatMonto(monto int64) string {
	neg := monto < 0
	if neg {
		monto = -monto
	}
	s := strconv.FormatInt(monto, 10)
	var b strings.Builder
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte('.')
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
