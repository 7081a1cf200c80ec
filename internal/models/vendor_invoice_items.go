package models

import (
	"time"
)

// InvoiceChildRow carries the columns every child family shares.
type InvoiceChildRow struct {
	UUID              string    `json:"uuid" db:"uuid"`
	VendorInvoiceUUID string    `json:"vendor_invoice_uuid" db:"vendor_invoice_uuid"`
	CorporationUUID   string    `json:"corporation_uuid" db:"corporation_uuid"`
	ProjectUUID       *string   `json:"project_uuid" db:"project_uuid"`
	OrderIndex        int       `json:"order_index" db:"order_index"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// DirectLineItem is a line on an ENTER_DIRECT_INVOICE invoice.
type DirectLineItem struct {
	InvoiceChildRow
	CostCodeUUID  *string                `json:"cost_code_uuid" db:"cost_code_uuid"`
	CostCodeLabel *string                `json:"cost_code_label" db:"cost_code_label"`
	ItemUUID      *string                `json:"item_uuid" db:"item_uuid"`
	ItemName      string                 `json:"item_name" db:"item_name"`
	Description   *string                `json:"description" db:"description"`
	UnitPrice     *float64               `json:"unit_price" db:"unit_price"`
	Quantity      *float64               `json:"quantity" db:"quantity"`
	Total         *float64               `json:"total" db:"total"`
	UOMUUID       *string                `json:"uom_uuid" db:"uom_uuid"`
	UOMLabel      *string                `json:"uom_label" db:"uom_label"`
	Metadata      map[string]interface{} `json:"metadata" db:"metadata"`
}

// OrderInvoiceLine is what PO and CO invoice items share: snapshots of the ordered line
// plus the invoice_* values being billed now.
type OrderInvoiceLine struct {
	CostCodeUUID     *string                `json:"cost_code_uuid" db:"cost_code_uuid"`
	CostCodeLabel    *string                `json:"cost_code_label" db:"cost_code_label"`
	CostCodeNumber   *string                `json:"cost_code_number" db:"cost_code_number"`
	CostCodeName     *string                `json:"cost_code_name" db:"cost_code_name"`
	ItemTypeUUID     *string                `json:"item_type_uuid" db:"item_type_uuid"`
	ItemTypeLabel    *string                `json:"item_type_label" db:"item_type_label"`
	ItemUUID         *string                `json:"item_uuid" db:"item_uuid"`
	ItemName         string                 `json:"item_name" db:"item_name"`
	Description      *string                `json:"description" db:"description"`
	ModelNumber      *string                `json:"model_number" db:"model_number"`
	LocationUUID     *string                `json:"location_uuid" db:"location_uuid"`
	LocationLabel    *string                `json:"location_label" db:"location_label"`
	UnitUUID         *string                `json:"unit_uuid" db:"unit_uuid"`
	UnitLabel        *string                `json:"unit_label" db:"unit_label"`
	InvoiceQuantity  *float64               `json:"invoice_quantity" db:"invoice_quantity"`
	InvoiceUnitPrice *float64               `json:"invoice_unit_price" db:"invoice_unit_price"`
	InvoiceTotal     *float64               `json:"invoice_total" db:"invoice_total"`
	Metadata         map[string]interface{} `json:"metadata" db:"metadata"`
}

// POInvoiceItem bills against one purchase order line.
type POInvoiceItem struct {
	InvoiceChildRow
	PurchaseOrderUUID *string `json:"purchase_order_uuid" db:"purchase_order_uuid"`
	POItemUUID        *string `json:"po_item_uuid" db:"po_item_uuid"`
	OrderInvoiceLine
}

// COInvoiceItem bills against one change order line.
type COInvoiceItem struct {
	InvoiceChildRow
	ChangeOrderUUID *string `json:"change_order_uuid" db:"change_order_uuid"`
	COItemUUID      *string `json:"co_item_uuid" db:"co_item_uuid"`
	OrderInvoiceLine
}

// AdvancePaymentCostCode allocates part of an advance payment to a cost code.
type AdvancePaymentCostCode struct {
	InvoiceChildRow
	CostCodeUUID   *string `json:"cost_code_uuid" db:"cost_code_uuid"`
	CostCodeLabel  *string `json:"cost_code_label" db:"cost_code_label"`
	CostCodeNumber *string `json:"cost_code_number" db:"cost_code_number"`
	CostCodeName   *string `json:"cost_code_name" db:"cost_code_name"`
	TotalAmount    float64 `json:"total_amount" db:"total_amount"`
	AdvanceAmount  float64 `json:"advance_amount" db:"advance_amount"`
}

// AdjustedAdvancePaymentCostCode records how much of an advance payment's cost code
// a consuming invoice draws down.
type AdjustedAdvancePaymentCostCode struct {
	InvoiceChildRow
	AdvancePaymentUUID string  `json:"advance_payment_uuid" db:"advance_payment_uuid"`
	CostCodeUUID       string  `json:"cost_code_uuid" db:"cost_code_uuid"`
	CostCodeLabel      *string `json:"cost_code_label" db:"cost_code_label"`
	CostCodeNumber     *string `json:"cost_code_number" db:"cost_code_number"`
	CostCodeName       *string `json:"cost_code_name" db:"cost_code_name"`
	AdjustedAmount     float64 `json:"adjusted_amount" db:"adjusted_amount"`
}

// ChildFamily names a child table family.
type ChildFamily string

const (
	FamilyDirectLineItems                 ChildFamily = "line_items"
	FamilyPOInvoiceItems                  ChildFamily = "po_invoice_items"
	FamilyCOInvoiceItems                  ChildFamily = "co_invoice_items"
	FamilyAdvancePaymentCostCodes         ChildFamily = "advance_payment_cost_codes"
	FamilyAdjustedAdvancePaymentCostCodes ChildFamily = "adjusted_advance_payment_cost_codes"
)

// ChildFamilies lists every family in a stable order.
var ChildFamilies = []ChildFamily{
	FamilyDirectLineItems,
	FamilyPOInvoiceItems,
	FamilyCOInvoiceItems,
	FamilyAdvancePaymentCostCodes,
	FamilyAdjustedAdvancePaymentCostCodes,
}

// OwnedBy reports whether an invoice of the given type keeps rows of this family.
func (f ChildFamily) OwnedBy(invoiceType string) bool {
	switch f {
	case FamilyDirectLineItems:
		return invoiceType == InvoiceTypeDirect
	case FamilyPOInvoiceItems:
		return invoiceType == InvoiceTypeAgainstPO
	case FamilyCOInvoiceItems:
		return invoiceType == InvoiceTypeAgainstCO
	case FamilyAdvancePaymentCostCodes:
		return invoiceType == InvoiceTypeAdvancePayment
	case FamilyAdjustedAdvancePaymentCostCodes:
		return invoiceType == InvoiceTypeAgainstPO || invoiceType == InvoiceTypeAgainstCO
	}
	return false
}

// OwningTypes lists the invoice types that own this family.
func (f ChildFamily) OwningTypes() []string {
	var out []string
	for _, t := range InvoiceTypes {
		if f.OwnedBy(t) {
			out = append(out, t)
		}
	}
	return out
}
