package invoicing

import (
	"constructerp/internal/common"
	"constructerp/internal/models"
)

// DecorateVendorInvoiceRecord projects the stored financial breakdown onto the flat presentation
// fields and normalizes attachments, amount and holdback. It mutates and returns record; nil is a no-op.
// The flattened totals are display hints only.
func DecorateVendorInvoiceRecord(record *models.VendorInvoice) *models.VendorInvoice {
	if record == nil {
		return nil
	}

	fb := record.FinancialBreakdown
	flat := &record.FlatBreakdown

	flat.FreightChargesPercentage, flat.FreightChargesAmount, flat.FreightChargesTaxable = flattenCharge(fb.Charges.Freight)
	flat.PackingChargesPercentage, flat.PackingChargesAmount, flat.PackingChargesTaxable = flattenCharge(fb.Charges.Packing)
	flat.CustomDutiesChargesPercentage, flat.CustomDutiesChargesAmount, flat.CustomDutiesChargesTaxable = flattenCharge(fb.Charges.CustomDuties)
	flat.OtherChargesPercentage, flat.OtherChargesAmount, flat.OtherChargesTaxable = flattenCharge(fb.Charges.Other)

	flat.SalesTax1Percentage = common.ToNumberOrNull(fb.SalesTaxes.SalesTax1.Percentage)
	flat.SalesTax1Amount = common.ToNumberOrNull(fb.SalesTaxes.SalesTax1.Amount)
	flat.SalesTax2Percentage = common.ToNumberOrNull(fb.SalesTaxes.SalesTax2.Percentage)
	flat.SalesTax2Amount = common.ToNumberOrNull(fb.SalesTaxes.SalesTax2.Amount)

	flat.ItemTotal = common.ToNumberOrNull(fb.Totals.ItemTotal)
	flat.ChargesTotal = common.ToNumberOrNull(fb.Totals.ChargesTotal)
	flat.TaxTotal = common.ToNumberOrNull(fb.Totals.TaxTotal)
	flat.TotalInvoiceAmount = common.ToNumberOrNull(fb.Totals.TotalInvoiceAmount)
	if flat.TotalInvoiceAmount == nil {
		flat.TotalInvoiceAmount = common.ToNumberOrNull(fb.Totals.LegacyAmount)
	}

	if record.Attachments == nil {
		record.Attachments = []map[string]interface{}{}
	}
	record.Amount = common.ToNumberOrNull(record.Amount)
	record.Holdback = common.ToNumberOrNull(record.Holdback)

	return record
}

func flattenCharge(c models.ChargeLine) (*float64, *float64, bool) {
	return common.ToNumberOrNull(c.Percentage), common.ToNumberOrNull(c.Amount), common.ToBoolean(c.Taxable)
}
