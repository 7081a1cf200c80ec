package invoicing

import (
	"constructerp/internal/common"
	"constructerp/internal/models"
)

// breakdownSource is how a request carries its financial breakdown: either a nested
// financial_breakdown object (edit flows re-posting a stored invoice) or flat form fields.
type breakdownSource interface {
	breakdown(amount *float64) models.FinancialBreakdown
}

type nestedBreakdown struct {
	fb models.FinancialBreakdown
}

type flatFields struct {
	payload map[string]interface{}
}

func resolveBreakdownSource(payload map[string]interface{}) breakdownSource {
	switch v := payload["financial_breakdown"].(type) {
	case map[string]interface{}:
		return nestedBreakdown{fb: models.FinancialBreakdownFromValue(v)}
	case models.FinancialBreakdown:
		return nestedBreakdown{fb: v.Clone()}
	case *models.FinancialBreakdown:
		if v != nil {
			return nestedBreakdown{fb: v.Clone()}
		}
	}
	return flatFields{payload: payload}
}

// BuildFinancialBreakdown computes the breakdown stored on an invoice from a create or update payload.
// Advance-payment invoices always come out as a single undifferentiated sum.
func BuildFinancialBreakdown(payload map[string]interface{}) models.FinancialBreakdown {
	amount := common.ToNumberOrNull(payload["amount"])
	fb := resolveBreakdownSource(payload).breakdown(amount)

	if NormalizeInvoiceType(payload["invoice_type"]) == models.InvoiceTypeAdvancePayment && amount != nil {
		EnforceAdvancePaymentTotals(&fb, *amount)
	}
	return fb
}

// EnforceAdvancePaymentTotals sets item and invoice totals to amount and zeroes charges and tax.
func EnforceAdvancePaymentTotals(fb *models.FinancialBreakdown, amount float64) {
	fb.Totals.ItemTotal = common.Float64Ptr(amount)
	fb.Totals.TotalInvoiceAmount = common.Float64Ptr(amount)
	fb.Totals.ChargesTotal = common.Float64Ptr(0)
	fb.Totals.TaxTotal = common.Float64Ptr(0)
}

func (n nestedBreakdown) breakdown(amount *float64) models.FinancialBreakdown {
	fb := n.fb
	total := fb.Totals.TotalInvoiceAmount
	if amount != nil && (total == nil || *total == 0) {
		fb.Totals.TotalInvoiceAmount = common.Float64Ptr(*amount)
	}
	return fb
}

func (f flatFields) breakdown(amount *float64) models.FinancialBreakdown {
	p := f.payload
	fb := models.FinancialBreakdown{
		Charges: models.Charges{
			Freight:      flatCharge(p, "freight_charges", ""),
			Packing:      flatCharge(p, "packing_charges", ""),
			CustomDuties: flatCharge(p, "custom_duties_charges", "custom_duties"),
			Other:        flatCharge(p, "other_charges", ""),
		},
		SalesTaxes: models.SalesTaxes{
			SalesTax1: flatSalesTax(p, "sales_tax_1", "sales_tax1"),
			SalesTax2: flatSalesTax(p, "sales_tax_2", "sales_tax2"),
		},
		Totals: models.Totals{
			ItemTotal:          common.ToNumberOrNull(p["item_total"]),
			ChargesTotal:       common.ToNumberOrNull(p["charges_total"]),
			TaxTotal:           common.ToNumberOrNull(p["tax_total"]),
			TotalInvoiceAmount: common.ToNumberOrNull(p["total_invoice_amount"]),
		},
	}
	if fb.Totals.TotalInvoiceAmount == nil && amount != nil {
		fb.Totals.TotalInvoiceAmount = common.Float64Ptr(*amount)
	}
	return fb
}

func flatCharge(p map[string]interface{}, prefix, legacy string) models.ChargeLine {
	return models.ChargeLine{
		Percentage: common.ToNumberOrNull(aliased(p, prefix, legacy, "_percentage")),
		Amount:     common.ToNumberOrNull(aliased(p, prefix, legacy, "_amount")),
		Taxable:    common.ToBoolean(aliased(p, prefix, legacy, "_taxable")),
	}
}

func flatSalesTax(p map[string]interface{}, prefix, legacy string) models.SalesTaxLine {
	return models.SalesTaxLine{
		Percentage: common.ToNumberOrNull(aliased(p, prefix, legacy, "_percentage")),
		Amount:     common.ToNumberOrNull(aliased(p, prefix, legacy, "_amount")),
	}
}

func aliased(p map[string]interface{}, prefix, legacy, suffix string) interface{} {
	if legacy == "" {
		return p[prefix+suffix]
	}
	return firstPresent(p, prefix+suffix, legacy+suffix)
}

// HasBreakdownInput reports whether a payload carries anything the breakdown is built from.
func HasBreakdownInput(payload map[string]interface{}) bool {
	if _, ok := payload["financial_breakdown"]; ok {
		return true
	}
	for _, k := range FlatBreakdownKeys {
		if _, ok := payload[k]; ok {
			return true
		}
	}
	return false
}

// HasFlatBreakdownFields reports whether a payload carries any flat charge, tax or total field.
func HasFlatBreakdownFields(payload map[string]interface{}) bool {
	for _, k := range FlatBreakdownKeys {
		if _, ok := payload[k]; ok {
			return true
		}
	}
	return false
}

// FlatBreakdownKeys are the flat form fields a breakdown can be built from, legacy aliases included.
var FlatBreakdownKeys = []string{
	"freight_charges_percentage", "freight_charges_amount", "freight_charges_taxable",
	"packing_charges_percentage", "packing_charges_amount", "packing_charges_taxable",
	"custom_duties_charges_percentage", "custom_duties_charges_amount", "custom_duties_charges_taxable",
	"custom_duties_percentage", "custom_duties_amount", "custom_duties_taxable",
	"other_charges_percentage", "other_charges_amount", "other_charges_taxable",
	"sales_tax_1_percentage", "sales_tax_1_amount", "sales_tax1_percentage", "sales_tax1_amount",
	"sales_tax_2_percentage", "sales_tax_2_amount", "sales_tax2_percentage", "sales_tax2_amount",
	"item_total", "charges_total", "tax_total", "total_invoice_amount",
}
