package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half away from zero
		{"-1.005", -101, true},
		{" 50000 ", 5000000, true},
		{"-500", -50000, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1000000000000", 100000000000000, true},
		{"1000000000000.01", 0, false},
		{"10000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{-95000000, "-950000.00"},
		{123456, "1234.56"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyFromDecimalRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("950000.50")
	m, err := MoneyFromDecimal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Decimal().Equal(d) {
		t.Fatalf("Decimal() = %s, want %s", m.Decimal(), d)
	}
}

func TestMoneyDisplay(t *testing.T) {
	usd := Money{Cents: 123456}.Display("USD")
	if usd != "$1,234.56" {
		t.Errorf("USD display = %q", usd)
	}
	unknown := Money{Cents: 100}.Display("ZZZ")
	if unknown != "1.00 ZZZ" {
		t.Errorf("unknown currency display = %q", unknown)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(Money{Cents: 1}, Money{Cents: 3}); got != 33.33 {
		t.Errorf("Percent(1,3) = %v, want 33.33", got)
	}
	if got := Percent(Money{Cents: 50}, Money{}); got != 0 {
		t.Errorf("Percent with zero total = %v, want 0", got)
	}
}
