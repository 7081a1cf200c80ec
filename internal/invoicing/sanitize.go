package invoicing

import (
	"sort"
	"strings"

	"constructerp/internal/common"
	"constructerp/internal/models"
)

// RawItems reads a child collection out of a request payload.
// Anything that is not an array yields nil; non-object elements become empty records.
func RawItems(v interface{}) []map[string]interface{} {
	switch items := v.(type) {
	case []map[string]interface{}:
		return items
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				m = map[string]interface{}{}
			}
			out = append(out, m)
		}
		return out
	}
	return nil
}

// SanitizeDirectLineItem normalizes a raw direct-invoice line.
func SanitizeDirectLineItem(raw map[string]interface{}, index int) models.DirectLineItem {
	metadata := metadataOf(raw)
	return models.DirectLineItem{
		InvoiceChildRow: childRow(raw, index),
		CostCodeUUID:    common.NormalizeID(raw["cost_code_uuid"]),
		CostCodeLabel:   common.StringOrNil(raw["cost_code_label"]),
		ItemUUID:        common.NormalizeID(raw["item_uuid"]),
		ItemName:        itemName(raw, metadata),
		Description:     common.StringOrNil(raw["description"]),
		UnitPrice:       common.ToNumberOrNull(raw["unit_price"]),
		Quantity:        common.ToNumberOrNull(raw["quantity"]),
		Total:           common.ToNumberOrNull(raw["total"]),
		UOMUUID:         common.NormalizeID(raw["uom_uuid"]),
		UOMLabel:        common.StringOrNil(raw["uom_label"]),
		Metadata:        metadata,
	}
}

// SanitizePOInvoiceItem normalizes a raw purchase-order invoice item.
// The PO line's own committed quantity and price are not carried; only the invoice_* values are.
func SanitizePOInvoiceItem(raw map[string]interface{}, index int) models.POInvoiceItem {
	return models.POInvoiceItem{
		InvoiceChildRow:   childRow(raw, index),
		PurchaseOrderUUID: common.NormalizeID(raw["purchase_order_uuid"]),
		POItemUUID:        common.NormalizeID(raw["po_item_uuid"]),
		OrderInvoiceLine:  orderInvoiceLine(raw),
	}
}

// SanitizeCOInvoiceItem normalizes a raw change-order invoice item.
func SanitizeCOInvoiceItem(raw map[string]interface{}, index int) models.COInvoiceItem {
	return models.COInvoiceItem{
		InvoiceChildRow:  childRow(raw, index),
		ChangeOrderUUID:  common.NormalizeID(raw["change_order_uuid"]),
		COItemUUID:       common.NormalizeID(raw["co_item_uuid"]),
		OrderInvoiceLine: orderInvoiceLine(raw),
	}
}

// SanitizeAdvancePaymentCostCode normalizes a raw advance-payment cost code allocation.
// total_amount and advance_amount are always numeric.
func SanitizeAdvancePaymentCostCode(raw map[string]interface{}, index int) models.AdvancePaymentCostCode {
	return models.AdvancePaymentCostCode{
		InvoiceChildRow: childRow(raw, index),
		CostCodeUUID:    common.NormalizeID(raw["cost_code_uuid"]),
		CostCodeLabel:   common.StringOrNil(raw["cost_code_label"]),
		CostCodeNumber:  common.StringOrNil(raw["cost_code_number"]),
		CostCodeName:    common.StringOrNil(raw["cost_code_name"]),
		TotalAmount:     common.ToNumberOrZero(raw["total_amount"]),
		AdvanceAmount:   common.ToNumberOrZero(raw["advance_amount"]),
	}
}

// Adjustment is one cost code draw-down against an advance payment.
type Adjustment struct {
	CostCodeKey    string
	AdjustedAmount *float64
}

// AdjustmentsFromValue reads draw-downs submitted either as an object keyed by cost code
// or as an array of {cost_code_uuid, adjusted_amount} records. Object keys are sorted.
func AdjustmentsFromValue(v interface{}) []Adjustment {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Adjustment, 0, len(keys))
		for _, k := range keys {
			out = append(out, Adjustment{CostCodeKey: strings.TrimSpace(k), AdjustedAmount: common.ToNumberOrNull(val[k])})
		}
		return out
	case []interface{}, []map[string]interface{}:
		var out []Adjustment
		for _, raw := range RawItems(val) {
			key := common.NormalizeID(raw["cost_code_uuid"])
			if key == nil {
				key = common.NormalizeID(raw["uuid"])
			}
			out = append(out, Adjustment{
				CostCodeKey:    common.SafeString(key),
				AdjustedAmount: common.ToNumberOrNull(firstPresent(raw, "adjusted_amount", "amount")),
			})
		}
		return out
	}
	return nil
}

// ResolveAdjustedCostCodes matches draw-downs against the advance payment's own cost code rows.
// Non-positive amounts and blank keys are skipped. A row matches on either its own uuid or
// its cost_code_uuid; unmatched draw-downs are kept with empty label metadata.
func ResolveAdjustedCostCodes(advancePaymentUUID string, adjustments []Adjustment, original []models.AdvancePaymentCostCode) []models.AdjustedAdvancePaymentCostCode {
	var out []models.AdjustedAdvancePaymentCostCode
	for _, adj := range adjustments {
		if adj.CostCodeKey == "" || adj.AdjustedAmount == nil || *adj.AdjustedAmount <= 0 {
			continue
		}

		row := models.AdjustedAdvancePaymentCostCode{
			InvoiceChildRow:    models.InvoiceChildRow{OrderIndex: len(out), IsActive: true},
			AdvancePaymentUUID: advancePaymentUUID,
			CostCodeUUID:       adj.CostCodeKey,
			AdjustedAmount:     *adj.AdjustedAmount,
		}
		if match := findCostCode(original, adj.CostCodeKey); match != nil {
			if match.CostCodeUUID != nil {
				row.CostCodeUUID = *match.CostCodeUUID
			}
			row.CostCodeLabel = match.CostCodeLabel
			row.CostCodeNumber = match.CostCodeNumber
			row.CostCodeName = match.CostCodeName
		}
		out = append(out, row)
	}
	return out
}

func findCostCode(rows []models.AdvancePaymentCostCode, key string) *models.AdvancePaymentCostCode {
	for i := range rows {
		if rows[i].UUID == key || common.SafeString(rows[i].CostCodeUUID) == key {
			return &rows[i]
		}
	}
	return nil
}

func childRow(raw map[string]interface{}, index int) models.InvoiceChildRow {
	orderIndex := index
	if n := common.ToNumberOrNull(raw["order_index"]); n != nil {
		orderIndex = int(*n)
	}
	return models.InvoiceChildRow{OrderIndex: orderIndex, IsActive: true}
}

func orderInvoiceLine(raw map[string]interface{}) models.OrderInvoiceLine {
	metadata := metadataOf(raw)
	return models.OrderInvoiceLine{
		CostCodeUUID:     common.NormalizeID(raw["cost_code_uuid"]),
		CostCodeLabel:    common.StringOrNil(raw["cost_code_label"]),
		CostCodeNumber:   common.StringOrNil(raw["cost_code_number"]),
		CostCodeName:     common.StringOrNil(raw["cost_code_name"]),
		ItemTypeUUID:     common.NormalizeID(raw["item_type_uuid"]),
		ItemTypeLabel:    common.StringOrNil(raw["item_type_label"]),
		ItemUUID:         common.NormalizeID(raw["item_uuid"]),
		ItemName:         itemName(raw, metadata),
		Description:      common.StringOrNil(raw["description"]),
		ModelNumber:      common.StringOrNil(raw["model_number"]),
		LocationUUID:     common.NormalizeID(raw["location_uuid"]),
		LocationLabel:    common.StringOrNil(raw["location_label"]),
		UnitUUID:         common.NormalizeID(raw["unit_uuid"]),
		UnitLabel:        common.StringOrNil(raw["unit_label"]),
		InvoiceQuantity:  common.ToNumberOrNull(raw["invoice_quantity"]),
		InvoiceUnitPrice: common.ToNumberOrNull(raw["invoice_unit_price"]),
		InvoiceTotal:     common.ToNumberOrNull(raw["invoice_total"]),
		Metadata:         metadata,
	}
}

func metadataOf(raw map[string]interface{}) map[string]interface{} {
	if m, ok := raw["metadata"].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// item_name, then metadata.item_name, then description
func itemName(raw, metadata map[string]interface{}) string {
	for _, v := range []interface{}{raw["item_name"], metadata["item_name"], raw["description"]} {
		if s := common.StringValue(v); s != "" {
			return s
		}
	}
	return ""
}

// firstPresent returns the value of the first key that is set to something other than null.
func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
