package models

import (
	"bytes"
	"encoding/json"

	"constructerp/internal/common"
)

// ChargeLine is one additional charge on a vendor invoice.
type ChargeLine struct {
	Percentage *float64 `json:"percentage"`
	Amount     *float64 `json:"amount"`
	Taxable    bool     `json:"taxable"`
}

// Charges holds the four charge slots.
type Charges struct {
	Freight      ChargeLine `json:"freight"`
	Packing      ChargeLine `json:"packing"`
	CustomDuties ChargeLine `json:"custom_duties"`
	Other        ChargeLine `json:"other"`
}

// SalesTaxLine is one sales tax slot.
type SalesTaxLine struct {
	Percentage *float64 `json:"percentage"`
	Amount     *float64 `json:"amount"`
}

// SalesTaxes holds the two sales tax slots.
type SalesTaxes struct {
	SalesTax1 SalesTaxLine `json:"sales_tax_1"`
	SalesTax2 SalesTaxLine `json:"sales_tax_2"`
}

// Totals are the computed invoice totals.
type Totals struct {
	ItemTotal          *float64 `json:"item_total"`
	ChargesTotal       *float64 `json:"charges_total"`
	TaxTotal           *float64 `json:"tax_total"`
	TotalInvoiceAmount *float64 `json:"total_invoice_amount"`
	// LegacyAmount is the key older rows used for the invoice total.
	LegacyAmount *float64 `json:"amount,omitempty"`
}

// FinancialBreakdown is the single source of truth for charge and tax math on an invoice.
type FinancialBreakdown struct {
	Charges    Charges    `json:"charges"`
	SalesTaxes SalesTaxes `json:"sales_taxes"`
	Totals     Totals     `json:"totals"`
}

// Clone returns a deep copy.
func (fb FinancialBreakdown) Clone() FinancialBreakdown {
	out := fb
	out.Charges.Freight = fb.Charges.Freight.clone()
	out.Charges.Packing = fb.Charges.Packing.clone()
	out.Charges.CustomDuties = fb.Charges.CustomDuties.clone()
	out.Charges.Other = fb.Charges.Other.clone()
	out.SalesTaxes.SalesTax1 = fb.SalesTaxes.SalesTax1.clone()
	out.SalesTaxes.SalesTax2 = fb.SalesTaxes.SalesTax2.clone()
	out.Totals = Totals{
		ItemTotal:          copyFloat(fb.Totals.ItemTotal),
		ChargesTotal:       copyFloat(fb.Totals.ChargesTotal),
		TaxTotal:           copyFloat(fb.Totals.TaxTotal),
		TotalInvoiceAmount: copyFloat(fb.Totals.TotalInvoiceAmount),
		LegacyAmount:       copyFloat(fb.Totals.LegacyAmount),
	}
	return out
}

func (c ChargeLine) clone() ChargeLine {
	return ChargeLine{Percentage: copyFloat(c.Percentage), Amount: copyFloat(c.Amount), Taxable: c.Taxable}
}

func (s SalesTaxLine) clone() SalesTaxLine {
	return SalesTaxLine{Percentage: copyFloat(s.Percentage), Amount: copyFloat(s.Amount)}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// FinancialBreakdownFromValue reads a breakdown out of loosely typed JSON data.
// Anything that is not an object yields an empty breakdown; numbers and flags are coerced.
func FinancialBreakdownFromValue(v interface{}) FinancialBreakdown {
	var fb FinancialBreakdown
	root, ok := v.(map[string]interface{})
	if !ok {
		return fb
	}

	charges := objectAt(root, "charges")
	fb.Charges.Freight = chargeLineFrom(charges["freight"])
	fb.Charges.Packing = chargeLineFrom(charges["packing"])
	fb.Charges.CustomDuties = chargeLineFrom(charges["custom_duties"])
	fb.Charges.Other = chargeLineFrom(charges["other"])

	taxes := objectAt(root, "sales_taxes")
	fb.SalesTaxes.SalesTax1 = salesTaxLineFrom(taxes["sales_tax_1"])
	fb.SalesTaxes.SalesTax2 = salesTaxLineFrom(taxes["sales_tax_2"])

	totals := objectAt(root, "totals")
	fb.Totals = Totals{
		ItemTotal:          common.ToNumberOrNull(totals["item_total"]),
		ChargesTotal:       common.ToNumberOrNull(totals["charges_total"]),
		TaxTotal:           common.ToNumberOrNull(totals["tax_total"]),
		TotalInvoiceAmount: common.ToNumberOrNull(totals["total_invoice_amount"]),
		LegacyAmount:       common.ToNumberOrNull(totals["amount"]),
	}
	return fb
}

// UnmarshalJSON decodes leniently: malformed nested data becomes null/false instead of an error.
func (fb *FinancialBreakdown) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*fb = FinancialBreakdown{}
		return nil
	}
	*fb = FinancialBreakdownFromValue(raw)
	return nil
}

func objectAt(m map[string]interface{}, key string) map[string]interface{} {
	if obj, ok := m[key].(map[string]interface{}); ok {
		return obj
	}
	return map[string]interface{}{}
}

func chargeLineFrom(v interface{}) ChargeLine {
	m, _ := v.(map[string]interface{})
	return ChargeLine{
		Percentage: common.ToNumberOrNull(m["percentage"]),
		Amount:     common.ToNumberOrNull(m["amount"]),
		Taxable:    common.ToBoolean(m["taxable"]),
	}
}

func salesTaxLineFrom(v interface{}) SalesTaxLine {
	m, _ := v.(map[string]interface{})
	return SalesTaxLine{
		Percentage: common.ToNumberOrNull(m["percentage"]),
		Amount:     common.ToNumberOrNull(m["amount"]),
	}
}
