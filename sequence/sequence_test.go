package sequence

import (
	"errors"
	"testing"
)

func TestFormat_ZeroPadding(t *testing.T) {
	// GIVEN: counter values of different magnitudes
	// WHEN: they are formatted
	// THEN: the suffix is always zero-padded to six digits
	cases := []struct {
		n    int64
		want string
	}{
		{1, "COT-ANTA-000001"},
		{42, "COT-ANTA-000042"},
		{999999, "COT-ANTA-999999"},
		{1000000, "COT-ANTA-1000000"},
	}
	for _, c := range cases {
		if got := Format(Quotations, c.n); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	prefix, n, err := Parse(Format(PurchaseOrders, 123))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if prefix != PurchaseOrders || n != 123 {
		t.Errorf("Parse = (%q, %d), want (%q, 123)", prefix, n, PurchaseOrders)
	}
}

func TestParse_Malformed(t *testing.T) {
	// GIVEN: numbers with unparsable or out-of-range suffixes
	// THEN: Parse refuses with ErrMalformedNumber instead of guessing
	for _, number := range []string{
		"COT-ANTA-",
		"COT-ANTA-abc",
		"COT-ANTA-0",
		"COT-ANTA--5",
		"COT-ANTA-+5",
		"COT--000003",
		"nodash",
		"",
	} {
		if _, _, err := Parse(number); !errors.Is(err, ErrMalformedNumber) {
			t.Errorf("Parse(%q) = %v, want ErrMalformedNumber", number, err)
		}
	}
}

func TestSeedValue_PicksHighestSuffix(t *testing.T) {
	// GIVEN: stored numbers out of order
	got, err := SeedValue([]string{
		"COT-ANTA-000007",
		"COT-ANTA-000101",
		"COT-ANTA-000099",
	})
	if err != nil {
		t.Fatalf("SeedValue failed: %v", err)
	}
	if got != 101 {
		t.Errorf("SeedValue = %d, want 101", got)
	}
}

func TestSeedValue_EmptySeries(t *testing.T) {
	got, err := SeedValue(nil)
	if err != nil {
		t.Fatalf("SeedValue failed: %v", err)
	}
	if got != 0 {
		t.Errorf("SeedValue = %d, want 0", got)
	}
}

func TestSeedValue_MalformedAborts(t *testing.T) {
	// GIVEN: one corrupted legacy number among valid ones
	// THEN: seeding aborts rather than restarting the series low
	_, err := SeedValue([]string{
		"COT-ANTA-000007",
		"COT-ANTA-broken",
	})
	if !errors.Is(err, ErrMalformedNumber) {
		t.Errorf("SeedValue = %v, want ErrMalformedNumber", err)
	}
}
