package format

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestPrice(t *testing.T) {
	cases := []struct {
		in     *decimal.Decimal
		places int
		want   string
	}{
		{nil, 2, "N/A"},
		{dec("1234567.891"), 2, "1,234,567.89"},
		{dec("0.6543"), 4, "0.6543"},
		{dec("42"), 2, "42.00"},
	}
	for _, tc := range cases {
		if got := Price(tc.in, tc.places); got != tc.want {
			t.Fatalf("Price(%v, %d) = %q, want %q", tc.in, tc.places, got, tc.want)
		}
	}
}

func TestChange(t *testing.T) {
	cases := map[string]string{
		"1.5":   "+1.50%",
		"0":     "+0.00%",
		"-0.25": "-0.25%",
	}
	for in, want := range cases {
		if got := Change(dec(in)); got != want {
			t.Fatalf("Change(%s) = %q, want %q", in, got, want)
		}
	}
	if got := Change(nil); got != NA {
		t.Fatalf("nil change should render %q, got %q", NA, got)
	}
}

func TestCurrencyLinePicksPlaces(t *testing.T) {
	got := CurrencyLine("AUD/USD", dec("0.65432"), dec("-0.1"))
	if got != "  AUD/USD: 0.6543 (-0.10%)" {
		t.Fatalf("unexpected line %q", got)
	}
	got = CurrencyLine("Gold", dec("2345.5"), dec("0.8"))
	if got != "  Gold: 2,345.50 (+0.80%)" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestSectionHeader(t *testing.T) {
	if got := SectionHeader("Markets"); got != "**Markets**" {
		t.Fatalf("unexpected header %q", got)
	}
}
