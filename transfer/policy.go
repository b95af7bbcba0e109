package transfer

import (
	"github.com/shopspring/decimal"

	"bank-backoffice/money"
)

// feeRate and taxRate are both 0.1%. The fee applies only above the
// threshold; the tax applies to every transfer.
var (
	feeRate      = decimal.New(1, -3)
	taxRate      = decimal.New(1, -3)
	feeThreshold = decimal.New(100000, -2) // 1000.00
)

// ComputeFeeAndTax is the pure fee/tax policy, evaluated once at transfer
// creation; the result is frozen into the transfer record and never
// recomputed. Both values round half up to 2 decimals.
func ComputeFeeAndTax(amount money.Amount) (fee, tax money.Amount) {
	d := amount.Decimal()
	if d.GreaterThan(feeThreshold) {
		fee = money.Round(d.Mul(feeRate))
	} else {
		fee = money.Zero
	}
	tax = money.Round(d.Mul(taxRate))
	return fee, tax
}
