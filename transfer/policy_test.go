package transfer

import (
	"testing"

	"bank-backoffice/money"
)

func TestComputeFeeAndTax(t *testing.T) {
	cases := []struct {
		amount string
		fee    string
		tax    string
	}{
		{"100.00", "0.00", "0.10"},
		{"999.99", "0.00", "1.00"},
		{"1000.00", "0.00", "1.00"}, // fee starts strictly above 1000.00
		{"1000.01", "1.00", "1.00"},
		{"2000.00", "2.00", "2.00"},
		{"1500.00", "1.50", "1.50"},
		{"0.01", "0.00", "0.00"},
	}
	for _, tc := range cases {
		amount, err := money.Parse(tc.amount)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.amount, err)
		}
		fee, tax := ComputeFeeAndTax(amount)
		if fee.String() != tc.fee {
			t.Errorf("fee for %s = %s, want %s", tc.amount, fee, tc.fee)
		}
		if tax.String() != tc.tax {
			t.Errorf("tax for %s = %s, want %s", tc.amount, tax, tc.tax)
		}
	}
}

func TestComputeFeeAndTaxRounding(t *testing.T) {
	// 0.1% of 4.99 is 0.00499, which rounds half-up to 0.00.
	amount, _ := money.Parse("4.99")
	_, tax := ComputeFeeAndTax(amount)
	if tax.String() != "0.00" {
		t.Errorf("tax for 4.99 = %s, want 0.00", tax)
	}

	// 0.1% of 5.00 is exactly 0.005, which rounds half-up to 0.01.
	amount, _ = money.Parse("5.00")
	_, tax = ComputeFeeAndTax(amount)
	if tax.String() != "0.01" {
		t.Errorf("tax for 5.00 = %s, want 0.01", tax)
	}
}
