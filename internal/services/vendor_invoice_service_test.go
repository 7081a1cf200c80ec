package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"constructerp/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockInvoiceCache struct {
	mock.Mock
}

func (m *MockInvoiceCache) GetInvoiceDetail(ctx context.Context, invoiceUUID string) (*models.VendorInvoiceDetail, error) {
	args := m.Called(ctx, invoiceUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VendorInvoiceDetail), args.Error(1)
}

func (m *MockInvoiceCache) SetInvoiceDetail(ctx context.Context, detail *models.VendorInvoiceDetail, ttl time.Duration) error {
	args := m.Called(ctx, detail, ttl)
	return args.Error(0)
}

func (m *MockInvoiceCache) DeleteInvoices(ctx context.Context, invoiceUUIDs ...string) error {
	args := m.Called(ctx, invoiceUUIDs)
	return args.Error(0)
}

type VendorInvoiceServiceTestSuite struct {
	suite.Suite
	invoices *memoryInvoiceRepo
	items    *memoryItemsRepo
	service  VendorInvoiceService
	ctx      context.Context
}

func (suite *VendorInvoiceServiceTestSuite) SetupTest() {
	suite.invoices = newMemoryInvoiceRepo()
	suite.items = newMemoryItemsRepo()
	suite.service = NewVendorInvoiceService(suite.invoices, suite.items, nil, nil, nil, time.Minute)
	suite.ctx = context.Background()
}

func TestVendorInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(VendorInvoiceServiceTestSuite))
}

func poPayload() map[string]interface{} {
	return map[string]interface{}{
		"corporation_uuid":    "corp-1",
		"project_uuid":        "proj-1",
		"vendor_uuid":         "vendor-1",
		"invoice_type":        "against po",
		"purchase_order_uuid": "po-1",
		"bill_date":           "2024-03-10T15:30:00Z",
		"credit_days":         "NET_30",
		"amount":              7800,
		"financial_breakdown": map[string]interface{}{
			"totals": map[string]interface{}{"item_total": 10000, "charges_total": 0, "tax_total": 0},
		},
		"po_invoice_items": []interface{}{
			map[string]interface{}{"po_item_uuid": "poi-1", "item_name": "Steel beam", "invoice_quantity": 10, "invoice_unit_price": 600, "invoice_total": 6000},
			map[string]interface{}{"po_item_uuid": "poi-2", "item_name": "Bolts", "invoice_quantity": "400", "invoice_unit_price": "10", "invoice_total": "4000"},
		},
	}
}

func (suite *VendorInvoiceServiceTestSuite) TestCreate_AgainstPOConsumesAdvances() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	seedAdvancePayment(suite.invoices, "ap-2", "po-1", 1000, day(2))
	seedAdvancePayment(suite.invoices, "ap-3", "po-1", 900, day(5))

	result, err := suite.service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)

	inv := result.Invoice
	suite.True(result.Deduction.Equal(decimal.NewFromInt(2200)))
	suite.Equal([]string{"ap-1", "ap-2"}, result.AdjustedAdvancePayments)
	suite.Empty(result.Advisories)
	suite.Equal(inv.UUID, suite.invoices.consumerOf("ap-1"))
	suite.Equal(inv.UUID, suite.invoices.consumerOf("ap-2"))
	suite.Equal("", suite.invoices.consumerOf("ap-3"))

	suite.Equal(models.InvoiceTypeAgainstPO, inv.InvoiceType)
	suite.Equal(models.StatusDraft, inv.Status)
	suite.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), inv.BillDate)
	suite.Require().NotNil(inv.DueDate)
	suite.Equal(time.Date(2024, 4, 9, 23, 59, 59, int(999*time.Millisecond), time.UTC), *inv.DueDate)
	suite.Len(inv.POInvoiceItems, 2)
	suite.Nil(inv.AdvancePaymentCostCodes)
	suite.Equal(7800.0, *inv.TotalInvoiceAmount)

	body, err := json.Marshal(inv)
	suite.Require().NoError(err)
	var decoded map[string]interface{}
	suite.Require().NoError(json.Unmarshal(body, &decoded))
	suite.Contains(decoded, "po_invoice_items")
	suite.NotContains(decoded, "advance_payment_cost_codes")
	suite.NotContains(decoded, "line_items")
}

func (suite *VendorInvoiceServiceTestSuite) TestCreate_ExplicitDeductionWins() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	seedAdvancePayment(suite.invoices, "ap-2", "po-1", 1000, day(2))
	payload := poPayload()
	payload["advance_payment_deduction"] = "500"

	result, err := suite.service.Create(suite.ctx, payload)
	suite.Require().NoError(err)

	suite.True(result.Deduction.Equal(decimal.NewFromInt(500)))
	suite.Equal([]string{"ap-1"}, result.AdjustedAdvancePayments)
}

func (suite *VendorInvoiceServiceTestSuite) TestCreate_AdvancePaymentInvariant() {
	result, err := suite.service.Create(suite.ctx, map[string]interface{}{
		"corporation_uuid":    "corp-1",
		"invoice_type":        "AGAINST_ADVANCE_PAYMENT",
		"purchase_order_uuid": "po-1",
		"bill_date":           "2024-03-01",
		"amount":              "500",
		"financial_breakdown": map[string]interface{}{
			"totals": map[string]interface{}{"item_total": 999, "charges_total": 999, "tax_total": 999},
		},
		"advance_payment_cost_codes": []interface{}{
			map[string]interface{}{"cost_code_uuid": "cc-1", "advance_amount": 500},
		},
	})
	suite.Require().NoError(err)

	totals := result.Invoice.FinancialBreakdown.Totals
	suite.Equal(500.0, *totals.ItemTotal)
	suite.Equal(500.0, *totals.TotalInvoiceAmount)
	suite.Equal(0.0, *totals.ChargesTotal)
	suite.Equal(0.0, *totals.TaxTotal)
	suite.Len(result.Invoice.AdvancePaymentCostCodes, 1)
	suite.Empty(result.AdjustedAdvancePayments)
}

func (suite *VendorInvoiceServiceTestSuite) TestCreate_ValidationErrors() {
	cases := map[string]func(p map[string]interface{}){
		"corporation_uuid": func(p map[string]interface{}) { delete(p, "corporation_uuid") },
		"invoice_type":     func(p map[string]interface{}) { p["invoice_type"] = "AGAINST_NOTHING" },
		"bill_date":        func(p map[string]interface{}) { p["bill_date"] = "yesterday" },
		"amount":           func(p map[string]interface{}) { p["amount"] = "lots" },
		"status":           func(p map[string]interface{}) { p["status"] = "Archived" },
		"credit_days":      func(p map[string]interface{}) { p["credit_days"] = "NET_90" },
	}

	for field, mutate := range cases {
		payload := poPayload()
		mutate(payload)

		result, err := suite.service.Create(suite.ctx, payload)

		suite.Nil(result, field)
		var verr *ValidationError
		suite.Require().ErrorAs(err, &verr, field)
		suite.Equal(field, verr.Field)
	}
	suite.Empty(suite.invoices.invoices)
}

func (suite *VendorInvoiceServiceTestSuite) TestCreate_MissingAmountRejected() {
	payload := poPayload()
	delete(payload, "amount")

	_, err := suite.service.Create(suite.ctx, payload)

	var verr *ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.Equal("amount", verr.Field)
}

func (suite *VendorInvoiceServiceTestSuite) TestCreate_ChildFailureAbortsBeforeAllocation() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	suite.items.failInsert[models.FamilyPOInvoiceItems] = errors.New("insert failed")

	result, err := suite.service.Create(suite.ctx, poPayload())

	suite.Nil(result)
	suite.ErrorContains(err, "insert failed")
	suite.Equal("", suite.invoices.consumerOf("ap-1"))
}

func (suite *VendorInvoiceServiceTestSuite) TestCreate_AllocatorFailureIsAdvisory() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	suite.invoices.failList = errors.New("list failed")

	result, err := suite.service.Create(suite.ctx, poPayload())

	suite.Require().NoError(err)
	suite.Require().Len(result.Advisories, 1)
	suite.Equal(StepAllocate, result.Advisories[0].Step)
	suite.Len(result.Invoice.POInvoiceItems, 2)
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_ResaveDoesNotConsumeMoreAdvances() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	seedAdvancePayment(suite.invoices, "ap-2", "po-1", 1000, day(2))
	seedAdvancePayment(suite.invoices, "ap-3", "po-1", 900, day(5))
	created, err := suite.service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)
	id := created.Invoice.UUID

	updated, err := suite.service.Update(suite.ctx, id, poPayload())
	suite.Require().NoError(err)

	suite.Equal([]string{"ap-1", "ap-2"}, updated.AdjustedAdvancePayments)
	suite.Equal([]string{"ap-1", "ap-2"}, updated.ReleasedAdvancePayments)
	suite.Equal("", suite.invoices.consumerOf("ap-3"))
	suite.Equal(2, suite.items.count(models.FamilyPOInvoiceItems, id))
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_StatusOnlyKeepsExplicitAllocation() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1000, day(1))
	payload := poPayload()
	payload["amount"] = 10000
	payload["advance_payment_deduction"] = 1000
	created, err := suite.service.Create(suite.ctx, payload)
	suite.Require().NoError(err)
	id := created.Invoice.UUID
	suite.Require().Equal(id, suite.invoices.consumerOf("ap-1"))

	updated, err := suite.service.Update(suite.ctx, id, map[string]interface{}{"status": "Approved"})
	suite.Require().NoError(err)

	suite.Equal(id, suite.invoices.consumerOf("ap-1"))
	suite.Empty(updated.ReleasedAdvancePayments)
	suite.Empty(updated.AdjustedAdvancePayments)
	suite.Equal(models.StatusApproved, updated.Invoice.Status)
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_DeductionInputReallocates() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1000, day(1))
	payload := poPayload()
	payload["amount"] = 10000
	payload["advance_payment_deduction"] = 1000
	created, err := suite.service.Create(suite.ctx, payload)
	suite.Require().NoError(err)
	id := created.Invoice.UUID

	updated, err := suite.service.Update(suite.ctx, id, map[string]interface{}{"advance_payment_deduction": 0})
	suite.Require().NoError(err)

	suite.Equal([]string{"ap-1"}, updated.ReleasedAdvancePayments)
	suite.Empty(updated.AdjustedAdvancePayments)
	suite.Equal("", suite.invoices.consumerOf("ap-1"))
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_PurchaseOrderChangeReturnsAdvances() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	seedAdvancePayment(suite.invoices, "ap-2", "po-1", 1000, day(2))
	created, err := suite.service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)

	updated, err := suite.service.Update(suite.ctx, created.Invoice.UUID, map[string]interface{}{"purchase_order_uuid": "po-2"})
	suite.Require().NoError(err)

	suite.ElementsMatch([]string{"ap-1", "ap-2"}, updated.ReleasedAdvancePayments)
	suite.Empty(updated.AdjustedAdvancePayments)
	suite.Equal("", suite.invoices.consumerOf("ap-1"))
	suite.Equal("", suite.invoices.consumerOf("ap-2"))
	suite.Equal("po-2", *updated.Invoice.PurchaseOrderUUID)
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_TypeSwitchToDirect() {
	created, err := suite.service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)
	id := created.Invoice.UUID
	suite.Require().Equal(2, suite.items.count(models.FamilyPOInvoiceItems, id))

	updated, err := suite.service.Update(suite.ctx, id, map[string]interface{}{
		"invoice_type":        "ENTER_DIRECT_INVOICE",
		"purchase_order_uuid": nil,
		"line_items": []interface{}{
			map[string]interface{}{"item_name": "Crane rental", "unit_price": 1500, "quantity": 2, "total": 3000},
		},
	})
	suite.Require().NoError(err)

	suite.Zero(suite.items.count(models.FamilyPOInvoiceItems, id))
	suite.Equal(1, suite.items.count(models.FamilyDirectLineItems, id))
	suite.Len(updated.Invoice.LineItems, 1)
	suite.Nil(updated.Invoice.POInvoiceItems)
	suite.Nil(updated.Invoice.PurchaseOrderUUID)
	suite.Equal(1, updated.Synced[models.FamilyDirectLineItems])
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_PartialKeepsStoredFields() {
	created, err := suite.service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)
	id := created.Invoice.UUID

	updated, err := suite.service.Update(suite.ctx, id, map[string]interface{}{"status": "Approved"})
	suite.Require().NoError(err)

	suite.Equal(models.StatusApproved, updated.Invoice.Status)
	suite.Equal(7800.0, *updated.Invoice.Amount)
	suite.Equal(10000.0, *updated.Invoice.FinancialBreakdown.Totals.ItemTotal)
	suite.Equal(2, suite.items.count(models.FamilyPOInvoiceItems, id))
	suite.NotContains(updated.Synced, models.FamilyPOInvoiceItems)
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_AdjustedCostCodes() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	suite.items.ap["ap-1"] = []models.AdvancePaymentCostCode{
		{InvoiceChildRow: models.InvoiceChildRow{UUID: "apcc-1", VendorInvoiceUUID: "ap-1"}, CostCodeUUID: strPtr("cc-1"), CostCodeName: strPtr("Concrete")},
	}
	created, err := suite.service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)
	id := created.Invoice.UUID

	payload := poPayload()
	payload["adjusted_advance_payment_uuid"] = "ap-1"
	payload["adjusted_advance_payment_cost_codes"] = map[string]interface{}{"cc-1": 800}
	updated, err := suite.service.Update(suite.ctx, id, payload)
	suite.Require().NoError(err)

	suite.Require().Len(updated.Invoice.AdjustedAdvancePaymentCostCodes, 1)
	row := updated.Invoice.AdjustedAdvancePaymentCostCodes[0]
	suite.Equal("ap-1", row.AdvancePaymentUUID)
	suite.Equal("Concrete", *row.CostCodeName)
	suite.Equal(800.0, row.AdjustedAmount)

	_, err = suite.service.Update(suite.ctx, id, map[string]interface{}{"status": "Pending"})
	suite.Require().NoError(err)
	suite.Zero(suite.items.count(models.FamilyAdjustedAdvancePaymentCostCodes, id))
}

func (suite *VendorInvoiceServiceTestSuite) TestUpdate_NotFound() {
	_, err := suite.service.Update(suite.ctx, "missing", map[string]interface{}{"status": "Paid"})

	suite.ErrorIs(err, ErrInvoiceNotFound)
}

func (suite *VendorInvoiceServiceTestSuite) TestDelete_ReleasesAdvancesAndHides() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	created, err := suite.service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)
	id := created.Invoice.UUID
	suite.Require().Equal(id, suite.invoices.consumerOf("ap-1"))

	result, err := suite.service.Delete(suite.ctx, id)
	suite.Require().NoError(err)

	suite.Equal([]string{"ap-1"}, result.ReleasedAdvancePayments)
	suite.Equal("", suite.invoices.consumerOf("ap-1"))

	_, err = suite.service.Get(suite.ctx, id)
	suite.ErrorIs(err, ErrInvoiceNotFound)
	_, err = suite.service.Delete(suite.ctx, id)
	suite.ErrorIs(err, ErrInvoiceNotFound)
}

func (suite *VendorInvoiceServiceTestSuite) TestList_PaginatesNewestFirst() {
	var ids []string
	for i := 0; i < 3; i++ {
		created, err := suite.service.Create(suite.ctx, poPayload())
		suite.Require().NoError(err)
		ids = append(ids, created.Invoice.UUID)
	}

	page, err := suite.service.List(suite.ctx, "corp-1", 1, 2)
	suite.Require().NoError(err)

	suite.Equal(3, page.Total)
	suite.Equal(2, page.PageSize)
	suite.Require().Len(page.Invoices, 2)
	suite.Equal(ids[2], page.Invoices[0].UUID)
	suite.Equal(ids[1], page.Invoices[1].UUID)
	suite.Equal(7800.0, *page.Invoices[0].TotalInvoiceAmount)

	_, err = suite.service.List(suite.ctx, "", 1, 10)
	var verr *ValidationError
	suite.ErrorAs(err, &verr)
}

func (suite *VendorInvoiceServiceTestSuite) TestGet_ReadsThroughCache() {
	cache := &MockInvoiceCache{}
	service := NewVendorInvoiceService(suite.invoices, suite.items, cache, nil, nil, 5*time.Minute)
	cache.On("DeleteInvoices", suite.ctx, mock.Anything).Return(nil).Once()

	created, err := service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)
	id := created.Invoice.UUID

	cache.On("GetInvoiceDetail", suite.ctx, id).Return(nil, nil).Once()
	cache.On("SetInvoiceDetail", suite.ctx, mock.AnythingOfType("*models.VendorInvoiceDetail"), 5*time.Minute).Return(nil).Once()
	detail, err := service.Get(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal(id, detail.UUID)

	cached := &models.VendorInvoiceDetail{VendorInvoice: &models.VendorInvoice{UUID: id, Status: "cached"}}
	cache.On("GetInvoiceDetail", suite.ctx, id).Return(cached, nil).Once()
	detail, err = service.Get(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal("cached", detail.Status)

	cache.AssertExpectations(suite.T())
}

func (suite *VendorInvoiceServiceTestSuite) TestSave_InvalidatesTouchedInvoices() {
	seedAdvancePayment(suite.invoices, "ap-1", "po-1", 1200, day(1))
	cache := &MockInvoiceCache{}
	service := NewVendorInvoiceService(suite.invoices, suite.items, cache, nil, nil, time.Minute)

	var invalidated []string
	cache.On("DeleteInvoices", suite.ctx, mock.Anything).Run(func(args mock.Arguments) {
		invalidated = args.Get(1).([]string)
	}).Return(errors.New("redis down")).Once()

	result, err := service.Create(suite.ctx, poPayload())
	suite.Require().NoError(err)

	suite.Equal([]string{result.Invoice.UUID, "ap-1"}, invalidated)
	suite.Require().Len(result.Advisories, 1)
	suite.Equal(StepCacheInvalidate, result.Advisories[0].Step)
	cache.AssertExpectations(suite.T())
}

func strPtr(s string) *string { return &s }
