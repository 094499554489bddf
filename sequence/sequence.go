/*
Package sequence defines document number series and their formatting rules.

A series is a namespace of human-readable document numbers sharing one
prefix, e.g. quotations ("COT-ANTA-000123") versus purchase orders
("OC-ANTA-000045"). Numbers are formatted from a per-series counter that
the store increments inside the same transaction as the document insert,
so two concurrent creations can never observe the same predecessor.

The formatted number is advisory for humans; the store's unique index on
it is the backstop, and callers retry allocation on a collision.
*/
package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Series prefixes. One counter row exists per prefix.
const (
	Quotations     = "COT-ANTA"
	PurchaseOrders = "OC-ANTA"
)

// Width is the zero-padded width of the numeric suffix.
const Width = 6

var (
	// ErrMalformedNumber is returned when a stored number's trailing
	// suffix cannot be parsed. This is operator-attention territory:
	// the legacy behavior of silently restarting a series at 1 would
	// mint duplicate numbers, so we refuse instead.
	ErrMalformedNumber = errors.New("malformed sequence number")
)

// Format renders the nth number of a series: prefix + "-" + zero-padded n.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, Width, n)
}

// Parse splits a formatted number into its series prefix and numeric value.
// The suffix after the last '-' must be digits only and positive, and the
// prefix must not end in another '-'; anything else is ErrMalformedNumber.
func Parse(number string) (prefix string, n int64, err error) {
	i := strings.LastIndexByte(number, '-')
	if i <= 0 || number[i-1] == '-' || !allDigits(number[i+1:]) {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	n, err = strconv.ParseInt(number[i+1:], 10, 64)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	return number[:i], n, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// SeedValue computes the counter value a series should start from, given
// every number already stored in that series. It returns the highest
// parsed suffix, or 0 for an empty series. A single unparsable number
// aborts seeding with ErrMalformedNumber rather than guessing.
func SeedValue(numbers []string) (int64, error) {
	var max int64
	for _, number := range numbers {
		_, n, err := Parse(number)
		if err != nil {
			return 0, err
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}
