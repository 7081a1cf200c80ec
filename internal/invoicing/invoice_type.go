// Package invoicing holds the pure vendor-invoice rules: line-item sanitizing,
// financial breakdown math, record decoration and advance-payment deduction.
// Nothing in here touches storage.
package invoicing

import (
	"strings"

	"constructerp/internal/common"
	"constructerp/internal/models"
)

var typeSeparators = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeInvoiceType upper-cases a submitted invoice type and unifies separators.
func NormalizeInvoiceType(v interface{}) string {
	s := strings.ToUpper(strings.TrimSpace(common.StringValue(v)))
	return typeSeparators.Replace(s)
}

// IsValidInvoiceType reports whether t is one of the known invoice types.
func IsValidInvoiceType(t string) bool {
	for _, known := range models.InvoiceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsOrderLinked reports whether invoices of type t bill against a purchase or change order.
func IsOrderLinked(t string) bool {
	return t == models.InvoiceTypeAgainstPO || t == models.InvoiceTypeAgainstCO
}

// IsValidStatus reports whether s is an accepted invoice status.
func IsValidStatus(s string) bool {
	for _, known := range models.InvoiceStatuses {
		if s == known {
			return true
		}
	}
	return false
}
