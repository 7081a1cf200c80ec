package models

import (
	"time"
)

// Invoice types. The type decides which child family a vendor invoice owns.
const (
	InvoiceTypeDirect         = "ENTER_DIRECT_INVOICE"
	InvoiceTypeAgainstPO      = "AGAINST_PO"
	InvoiceTypeAgainstCO      = "AGAINST_CO"
	InvoiceTypeAdvancePayment = "AGAINST_ADVANCE_PAYMENT"
	InvoiceTypeHoldbackAmount = "AGAINST_HOLDBACK_AMOUNT"
)

// Invoice statuses accepted on write.
const (
	StatusDraft    = "Draft"
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusPaid     = "Paid"
)

// CreditDays maps each accepted payment term to its day count.
var CreditDays = map[string]int{
	"NET_15": 15,
	"NET_25": 25,
	"NET_30": 30,
	"NET_45": 45,
	"NET_60": 60,
}

// InvoiceTypes lists every accepted invoice type.
var InvoiceTypes = []string{
	InvoiceTypeDirect,
	InvoiceTypeAgainstPO,
	InvoiceTypeAgainstCO,
	InvoiceTypeAdvancePayment,
	InvoiceTypeHoldbackAmount,
}

// InvoiceStatuses lists every accepted invoice status.
var InvoiceStatuses = []string{StatusDraft, StatusPending, StatusApproved, StatusPaid}

// VendorInvoice is one vendor bill.
type VendorInvoice struct {
	UUID                             string                   `json:"uuid" db:"uuid"`
	CorporationUUID                  string                   `json:"corporation_uuid" db:"corporation_uuid"`
	ProjectUUID                      *string                  `json:"project_uuid" db:"project_uuid"`
	VendorUUID                       *string                  `json:"vendor_uuid" db:"vendor_uuid"`
	PurchaseOrderUUID                *string                  `json:"purchase_order_uuid" db:"purchase_order_uuid"`
	ChangeOrderUUID                  *string                  `json:"change_order_uuid" db:"change_order_uuid"`
	InvoiceType                      string                   `json:"invoice_type" db:"invoice_type"`
	InvoiceNumber                    *string                  `json:"invoice_number" db:"invoice_number"`
	BillDate                         time.Time                `json:"bill_date" db:"bill_date"`
	DueDate                          *time.Time               `json:"due_date" db:"due_date"`
	CreditDays                       *string                  `json:"credit_days" db:"credit_days"`
	Amount                           *float64                 `json:"amount" db:"amount"`
	Holdback                         *float64                 `json:"holdback" db:"holdback"`
	FinancialBreakdown               FinancialBreakdown       `json:"financial_breakdown" db:"financial_breakdown"`
	Status                           string                   `json:"status" db:"status"`
	AdjustedAgainstVendorInvoiceUUID *string                  `json:"adjusted_against_vendor_invoice_uuid" db:"adjusted_against_vendor_invoice_uuid"`
	Attachments                      []map[string]interface{} `json:"attachments" db:"attachments"`
	RemovedAdvancePaymentCostCodes   []interface{}            `json:"removed_advance_payment_cost_codes,omitempty" db:"removed_advance_payment_cost_codes"`
	IsActive                         bool                     `json:"is_active" db:"is_active"`
	CreatedAt                        time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt                        time.Time                `json:"updated_at" db:"updated_at"`

	// Read-side enrichment from joined tables.
	ProjectName         *string `json:"project_name,omitempty" db:"-"`
	VendorName          *string `json:"vendor_name,omitempty" db:"-"`
	PurchaseOrderNumber *string `json:"po_number,omitempty" db:"-"`
	ChangeOrderNumber   *string `json:"co_number,omitempty" db:"-"`

	FlatBreakdown
}

// FlatBreakdown is the presentation projection of FinancialBreakdown.
// It is never persisted.
type FlatBreakdown struct {
	FreightChargesPercentage      *float64 `json:"freight_charges_percentage" db:"-"`
	FreightChargesAmount          *float64 `json:"freight_charges_amount" db:"-"`
	FreightChargesTaxable         bool     `json:"freight_charges_taxable" db:"-"`
	PackingChargesPercentage      *float64 `json:"packing_charges_percentage" db:"-"`
	PackingChargesAmount          *float64 `json:"packing_charges_amount" db:"-"`
	PackingChargesTaxable         bool     `json:"packing_charges_taxable" db:"-"`
	CustomDutiesChargesPercentage *float64 `json:"custom_duties_charges_percentage" db:"-"`
	CustomDutiesChargesAmount     *float64 `json:"custom_duties_charges_amount" db:"-"`
	CustomDutiesChargesTaxable    bool     `json:"custom_duties_charges_taxable" db:"-"`
	OtherChargesPercentage        *float64 `json:"other_charges_percentage" db:"-"`
	OtherChargesAmount            *float64 `json:"other_charges_amount" db:"-"`
	OtherChargesTaxable           bool     `json:"other_charges_taxable" db:"-"`
	SalesTax1Percentage           *float64 `json:"sales_tax_1_percentage" db:"-"`
	SalesTax1Amount               *float64 `json:"sales_tax_1_amount" db:"-"`
	SalesTax2Percentage           *float64 `json:"sales_tax_2_percentage" db:"-"`
	SalesTax2Amount               *float64 `json:"sales_tax_2_amount" db:"-"`
	ItemTotal                     *float64 `json:"item_total" db:"-"`
	ChargesTotal                  *float64 `json:"charges_total" db:"-"`
	TaxTotal                      *float64 `json:"tax_total" db:"-"`
	TotalInvoiceAmount            *float64 `json:"total_invoice_amount" db:"-"`
}

// VendorInvoiceDetail is a decorated invoice with the child collections its type owns.
type VendorInvoiceDetail struct {
	*VendorInvoice
	LineItems                       []DirectLineItem                 `json:"line_items,omitzero"`
	AdvancePaymentCostCodes         []AdvancePaymentCostCode         `json:"advance_payment_cost_codes,omitzero"`
	POInvoiceItems                  []POInvoiceItem                  `json:"po_invoice_items,omitzero"`
	COInvoiceItems                  []COInvoiceItem                  `json:"co_invoice_items,omitzero"`
	AdjustedAdvancePaymentCostCodes []AdjustedAdvancePaymentCostCode `json:"adjusted_advance_payment_cost_codes,omitzero"`
}

// VendorInvoicePage is one page of a corporation's invoices.
type VendorInvoicePage struct {
	Invoices []*VendorInvoice
	Page     int
	PageSize int
	Total    int
}

// OrderRef is the purchase order or change order an invoice bills against.
type OrderRef struct {
	Kind OrderKind
	UUID string
}

// OrderKind tells purchase orders and change orders apart.
type OrderKind string

const (
	OrderKindPurchaseOrder OrderKind = "po"
	OrderKindChangeOrder   OrderKind = "co"
)

// OrderRefOf returns the order an invoice of the given type bills against, or nil.
func OrderRefOf(invoiceType string, purchaseOrderUUID, changeOrderUUID *string) *OrderRef {
	switch {
	case invoiceType == InvoiceTypeAgainstPO && purchaseOrderUUID != nil && *purchaseOrderUUID != "":
		return &OrderRef{Kind: OrderKindPurchaseOrder, UUID: *purchaseOrderUUID}
	case invoiceType == InvoiceTypeAgainstCO && changeOrderUUID != nil && *changeOrderUUID != "":
		return &OrderRef{Kind: OrderKindChangeOrder, UUID: *changeOrderUUID}
	}
	return nil
}

// AdvancePayment is an unconsumed advance-payment invoice as the allocator sees it.
type AdvancePayment struct {
	UUID     string    `json:"uuid" db:"uuid"`
	Amount   *float64  `json:"amount" db:"amount"`
	BillDate time.Time `json:"bill_date" db:"bill_date"`
}
