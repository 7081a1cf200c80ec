package invoicing

import (
	"testing"

	"constructerp/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeInvoiceType(t *testing.T) {
	tests := map[interface{}]string{
		"against po":              models.InvoiceTypeAgainstPO,
		" Against-CO ":            models.InvoiceTypeAgainstCO,
		"ENTER_DIRECT_INVOICE":    models.InvoiceTypeDirect,
		"against advance payment": models.InvoiceTypeAdvancePayment,
		"":                        "",
	}
	for in, want := range tests {
		got := NormalizeInvoiceType(in)
		assert.Equal(t, want, got, "%v", in)
		if want != "" {
			assert.True(t, IsValidInvoiceType(got))
		}
	}

	assert.Equal(t, "", NormalizeInvoiceType(nil))
	assert.False(t, IsValidInvoiceType("AGAINST_QUOTE"))
}

func TestIsOrderLinked(t *testing.T) {
	assert.True(t, IsOrderLinked(models.InvoiceTypeAgainstPO))
	assert.True(t, IsOrderLinked(models.InvoiceTypeAgainstCO))
	assert.False(t, IsOrderLinked(models.InvoiceTypeDirect))
	assert.False(t, IsOrderLinked(models.InvoiceTypeAdvancePayment))
	assert.False(t, IsOrderLinked(models.InvoiceTypeHoldbackAmount))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range models.InvoiceStatuses {
		assert.True(t, IsValidStatus(s), s)
	}
	assert.False(t, IsValidStatus("draft"))
	assert.False(t, IsValidStatus(""))
}
