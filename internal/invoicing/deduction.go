package invoicing

import (
	"constructerp/internal/common"
	"constructerp/internal/models"

	"github.com/shopspring/decimal"
)

// DeductionAmount is how much advance payment a PO or CO invoice draws down.
// An explicit advance_payment_deduction wins; otherwise it is the gap between the breakdown's
// item + charges + tax totals and the payable amount, floored at zero.
func DeductionAmount(payload map[string]interface{}, fb models.FinancialBreakdown, amount *float64) decimal.Decimal {
	if explicit := common.ToNumberOrNull(payload["advance_payment_deduction"]); explicit != nil {
		return decimal.NewFromFloat(*explicit)
	}

	gross := decimalOf(fb.Totals.ItemTotal).
		Add(decimalOf(fb.Totals.ChargesTotal)).
		Add(decimalOf(fb.Totals.TaxTotal))
	gap := gross.Sub(decimalOf(amount))
	if gap.IsNegative() {
		return decimal.Zero
	}
	return gap
}

// deductionKeys are the payload fields besides the breakdown that a deduction depends on.
var deductionKeys = []string{"advance_payment_deduction", "amount", "invoice_type", "purchase_order_uuid", "change_order_uuid"}

// HasDeductionInput reports whether a payload touches anything DeductionAmount reads.
func HasDeductionInput(payload map[string]interface{}) bool {
	for _, k := range deductionKeys {
		if _, ok := payload[k]; ok {
			return true
		}
	}
	return HasBreakdownInput(payload)
}

func decimalOf(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}
