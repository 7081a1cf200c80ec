package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"constructerp/internal/caching"
	"constructerp/internal/common"
	"constructerp/internal/invoicing"
	"constructerp/internal/logger"
	"constructerp/internal/models"
	"constructerp/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// VendorInvoiceService runs the vendor invoice save pipeline and its reads.
type VendorInvoiceService interface {
	List(ctx context.Context, corporationUUID string, page, pageSize int) (*models.VendorInvoicePage, error)
	Get(ctx context.Context, invoiceUUID string) (*models.VendorInvoiceDetail, error)
	Create(ctx context.Context, payload map[string]interface{}) (*SaveResult, error)
	Update(ctx context.Context, invoiceUUID string, payload map[string]interface{}) (*SaveResult, error)
	Delete(ctx context.Context, invoiceUUID string) (*DeleteResult, error)
}

// SaveResult is a committed save. Advisories are reconciliation steps that failed without
// failing the save.
type SaveResult struct {
	Invoice                 *models.VendorInvoiceDetail
	Deduction               decimal.Decimal
	Synced                  map[models.ChildFamily]int
	AdjustedAdvancePayments []string
	ReleasedAdvancePayments []string
	Advisories              []*Advisory
}

// DeleteResult is a committed soft delete.
type DeleteResult struct {
	ReleasedAdvancePayments []string
	Advisories              []*Advisory
}

type vendorInvoiceService struct {
	invoices    repositories.VendorInvoiceRepository
	items       repositories.InvoiceItemsRepository
	children    *ChildSynchronizer
	allocator   *AdvanceAllocator
	transitions *TypeTransitionHandler
	attachments *AttachmentProcessor
	cache       caching.InvoiceCache
	cacheTTL    time.Duration
	log         zerolog.Logger
}

// NewVendorInvoiceService wires the pipeline. cache, locker and attachments may be nil.
func NewVendorInvoiceService(
	invoices repositories.VendorInvoiceRepository,
	items repositories.InvoiceItemsRepository,
	cache caching.InvoiceCache,
	locker AllocationLocker,
	attachments *AttachmentProcessor,
	cacheTTL time.Duration,
) VendorInvoiceService {
	children := NewChildSynchronizer(items)
	allocator := NewAdvanceAllocator(invoices, locker)
	return &vendorInvoiceService{
		invoices:    invoices,
		items:       items,
		children:    children,
		allocator:   allocator,
		transitions: NewTypeTransitionHandler(children, allocator),
		attachments: attachments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		log:         logger.WithComponent("vendor_invoice_service"),
	}
}

func (s *vendorInvoiceService) List(ctx context.Context, corporationUUID string, page, pageSize int) (*models.VendorInvoicePage, error) {
	if strings.TrimSpace(corporationUUID) == "" {
		return nil, invalid("corporation_uuid", "is required")
	}
	page, pageSize, err := common.ValidatePaginationParams(page, pageSize)
	if err != nil {
		return nil, invalid("page", "%v", err)
	}

	invoices, err := s.invoices.ListByCorporation(ctx, corporationUUID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list vendor invoices: %w", err)
	}
	total, err := s.invoices.CountByCorporation(ctx, corporationUUID)
	if err != nil {
		return nil, fmt.Errorf("count vendor invoices: %w", err)
	}

	for _, inv := range invoices {
		invoicing.DecorateVendorInvoiceRecord(inv)
	}
	if invoices == nil {
		invoices = []*models.VendorInvoice{}
	}
	return &models.VendorInvoicePage{Invoices: invoices, Page: page, PageSize: pageSize, Total: total}, nil
}

func (s *vendorInvoiceService) Get(ctx context.Context, invoiceUUID string) (*models.VendorInvoiceDetail, error) {
	if strings.TrimSpace(invoiceUUID) == "" {
		return nil, invalid("uuid", "is required")
	}

	if s.cache != nil {
		cached, err := s.cache.GetInvoiceDetail(ctx, invoiceUUID)
		if err != nil {
			s.log.Warn().Err(err).Str("invoice_uuid", invoiceUUID).Msg("invoice cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	detail, err := s.loadDetail(ctx, invoiceUUID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetInvoiceDetail(ctx, detail, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("invoice_uuid", invoiceUUID).Msg("invoice cache write failed")
		}
	}
	return detail, nil
}

func (s *vendorInvoiceService) Create(ctx context.Context, payload map[string]interface{}) (*SaveResult, error) {
	invoice, err := s.newInvoice(ctx, payload)
	if err != nil {
		return nil, err
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}

	result := &SaveResult{Synced: map[models.ChildFamily]int{}}
	if err := s.syncChildren(ctx, invoice, payload, result); err != nil {
		return nil, err
	}
	s.allocate(ctx, invoice, payload, false, result)

	return s.finish(ctx, invoice, result, "vendor invoice created")
}

func (s *vendorInvoiceService) Update(ctx context.Context, invoiceUUID string, payload map[string]interface{}) (*SaveResult, error) {
	if strings.TrimSpace(invoiceUUID) == "" {
		return nil, invalid("uuid", "is required")
	}

	existing, err := s.invoices.GetByUUID(ctx, invoiceUUID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	invoice, err := s.mergeInvoice(ctx, existing, payload)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{Synced: map[models.ChildFamily]int{}}
	transition := s.transitions.Apply(ctx, InvoiceTransition{
		Previous:                   existing,
		InvoiceType:                invoice.InvoiceType,
		PurchaseOrderUUID:          invoice.PurchaseOrderUUID,
		ChangeOrderUUID:            invoice.ChangeOrderUUID,
		AdjustedAdvancePaymentUUID: common.NormalizeID(payload["adjusted_advance_payment_uuid"]),
	})
	result.ReleasedAdvancePayments = append(result.ReleasedAdvancePayments, transition.Released...)
	result.Advisories = append(result.Advisories, transition.Advisories...)

	if err := s.invoices.Update(ctx, invoice); err != nil {
		return nil, notFoundOr(err)
	}

	if err := s.syncChildren(ctx, invoice, payload, result); err != nil {
		return nil, err
	}
	// The deduction is not stored, so an update that leaves its inputs alone keeps the
	// current allocation.
	if invoicing.HasDeductionInput(payload) {
		s.allocate(ctx, invoice, payload, true, result)
	}

	return s.finish(ctx, invoice, result, "vendor invoice updated")
}

func (s *vendorInvoiceService) Delete(ctx context.Context, invoiceUUID string) (*DeleteResult, error) {
	if strings.TrimSpace(invoiceUUID) == "" {
		return nil, invalid("uuid", "is required")
	}

	existing, err := s.invoices.GetByUUID(ctx, invoiceUUID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if err := s.invoices.SoftDelete(ctx, invoiceUUID); err != nil {
		return nil, notFoundOr(err)
	}

	result := &DeleteResult{}
	if ref := models.OrderRefOf(existing.InvoiceType, existing.PurchaseOrderUUID, existing.ChangeOrderUUID); ref != nil {
		released, adv := s.allocator.Release(ctx, invoiceUUID, ref)
		if adv != nil {
			result.Advisories = append(result.Advisories, adv)
		}
		result.ReleasedAdvancePayments = released
	}

	if adv := s.invalidate(ctx, invoiceUUID, append([]string{invoiceUUID}, result.ReleasedAdvancePayments...)); adv != nil {
		result.Advisories = append(result.Advisories, adv)
	}
	s.logAdvisories(result.Advisories)

	s.log.Info().Str("invoice_uuid", invoiceUUID).Int("released", len(result.ReleasedAdvancePayments)).Msg("vendor invoice deleted")
	return result, nil
}

// newInvoice validates a create payload and builds the row to insert.
func (s *vendorInvoiceService) newInvoice(ctx context.Context, payload map[string]interface{}) (*models.VendorInvoice, error) {
	corporationUUID := common.NormalizeID(payload["corporation_uuid"])
	if corporationUUID == nil {
		return nil, invalid("corporation_uuid", "is required")
	}
	if common.StringValue(payload["invoice_type"]) == "" {
		return nil, invalid("invoice_type", "is required")
	}
	if common.StringValue(payload["bill_date"]) == "" {
		if _, isTime := payload["bill_date"].(time.Time); !isTime {
			return nil, invalid("bill_date", "is required")
		}
	}
	if _, ok := payload["amount"]; !ok {
		return nil, invalid("amount", "is required")
	}

	invoice := &models.VendorInvoice{
		UUID:            uuid.NewString(),
		CorporationUUID: *corporationUUID,
		Status:          models.StatusDraft,
		IsActive:        true,
	}
	if err := s.applyPayload(ctx, invoice, payload); err != nil {
		return nil, err
	}

	invoice.FinancialBreakdown = invoicing.BuildFinancialBreakdown(s.breakdownPayload(invoice, payload))
	if invoice.Attachments == nil {
		invoice.Attachments = []map[string]interface{}{}
	}
	return invoice, nil
}

// mergeInvoice lays an update payload over the stored row. Absent keys keep their stored value.
func (s *vendorInvoiceService) mergeInvoice(ctx context.Context, existing *models.VendorInvoice, payload map[string]interface{}) (*models.VendorInvoice, error) {
	merged := *existing
	merged.FinancialBreakdown = existing.FinancialBreakdown.Clone()
	merged.FlatBreakdown = models.FlatBreakdown{}

	if v, ok := payload["corporation_uuid"]; ok {
		id := common.NormalizeID(v)
		if id == nil {
			return nil, invalid("corporation_uuid", "cannot be empty")
		}
		merged.CorporationUUID = *id
	}
	if err := s.applyPayload(ctx, &merged, payload); err != nil {
		return nil, err
	}

	if invoicing.HasBreakdownInput(payload) {
		merged.FinancialBreakdown = invoicing.BuildFinancialBreakdown(s.breakdownPayload(&merged, payload))
	} else if merged.InvoiceType == models.InvoiceTypeAdvancePayment && merged.Amount != nil {
		invoicing.EnforceAdvancePaymentTotals(&merged.FinancialBreakdown, *merged.Amount)
	}
	return &merged, nil
}

// applyPayload copies every field present in payload onto invoice, validating as it goes.
func (s *vendorInvoiceService) applyPayload(ctx context.Context, invoice *models.VendorInvoice, payload map[string]interface{}) error {
	if v, ok := payload["invoice_type"]; ok {
		invoiceType := invoicing.NormalizeInvoiceType(v)
		if !invoicing.IsValidInvoiceType(invoiceType) {
			return invalid("invoice_type", "must be one of %s", strings.Join(models.InvoiceTypes, ", "))
		}
		invoice.InvoiceType = invoiceType
	}
	if v, ok := payload["bill_date"]; ok {
		billDate, err := invoicing.NormalizeBillDate(v)
		if err != nil {
			return invalid("bill_date", "is not a valid date")
		}
		invoice.BillDate = billDate
	}
	if v, ok := payload["amount"]; ok {
		amount := common.ToNumberOrNull(v)
		if amount == nil {
			return invalid("amount", "must be a number")
		}
		invoice.Amount = amount
	}
	if v, ok := payload["holdback"]; ok {
		invoice.Holdback = common.ToNumberOrNull(v)
	}
	if v, ok := payload["status"]; ok {
		status := strings.TrimSpace(common.StringValue(v))
		if !invoicing.IsValidStatus(status) {
			return invalid("status", "must be one of %s", strings.Join(models.InvoiceStatuses, ", "))
		}
		invoice.Status = status
	}
	if v, ok := payload["credit_days"]; ok {
		creditDays := common.NormalizeID(v)
		if creditDays != nil && !invoicing.IsValidCreditDays(*creditDays) {
			return invalid("credit_days", "must be one of NET_15, NET_25, NET_30, NET_45, NET_60")
		}
		invoice.CreditDays = creditDays
	}

	for key, field := range map[string]**string{
		"project_uuid":        &invoice.ProjectUUID,
		"vendor_uuid":         &invoice.VendorUUID,
		"purchase_order_uuid": &invoice.PurchaseOrderUUID,
		"change_order_uuid":   &invoice.ChangeOrderUUID,
	} {
		if v, ok := payload[key]; ok {
			*field = common.NormalizeID(v)
		}
	}
	if v, ok := payload["invoice_number"]; ok {
		invoice.InvoiceNumber = common.StringOrNil(v)
	}
	if v, ok := payload["removed_advance_payment_cost_codes"]; ok {
		invoice.RemovedAdvancePaymentCostCodes = removedCostCodes(v)
	}
	if v, ok := payload["attachments"]; ok {
		attachments, err := s.attachments.Process(ctx, invoice.CorporationUUID, invoice.UUID, v)
		if err != nil {
			return err
		}
		invoice.Attachments = attachments
	}

	invoice.DueDate = invoicing.DueDate(invoice.BillDate, invoice.CreditDays)
	return nil
}

// breakdownPayload fills in the invoice type and amount the builder reads when the request
// itself left them out.
func (s *vendorInvoiceService) breakdownPayload(invoice *models.VendorInvoice, payload map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	out["invoice_type"] = invoice.InvoiceType
	if invoice.Amount != nil {
		out["amount"] = *invoice.Amount
	}
	return out
}

// syncChildren replaces the child families the invoice's type owns, for every family key the
// payload carries. Any failure aborts the save.
func (s *vendorInvoiceService) syncChildren(ctx context.Context, invoice *models.VendorInvoice, payload map[string]interface{}, result *SaveResult) error {
	scope := InvoiceScope{
		VendorInvoiceUUID: invoice.UUID,
		CorporationUUID:   invoice.CorporationUUID,
		ProjectUUID:       invoice.ProjectUUID,
	}

	var (
		family models.ChildFamily
		n      int
		err    error
		synced bool
	)
	switch invoice.InvoiceType {
	case models.InvoiceTypeDirect:
		if raw, ok := payload["line_items"]; ok {
			family, synced = models.FamilyDirectLineItems, true
			n, err = s.children.PersistDirectLineItems(ctx, scope, invoicing.RawItems(raw))
		}
	case models.InvoiceTypeAgainstPO:
		if raw, ok := payload["po_invoice_items"]; ok {
			family, synced = models.FamilyPOInvoiceItems, true
			n, err = s.children.PersistPOInvoiceItems(ctx, scope, invoice.PurchaseOrderUUID, invoicing.RawItems(raw))
		}
	case models.InvoiceTypeAgainstCO:
		if raw, ok := payload["co_invoice_items"]; ok {
			family, synced = models.FamilyCOInvoiceItems, true
			n, err = s.children.PersistCOInvoiceItems(ctx, scope, invoice.ChangeOrderUUID, invoicing.RawItems(raw))
		}
	case models.InvoiceTypeAdvancePayment:
		if raw, ok := payload["advance_payment_cost_codes"]; ok {
			family, synced = models.FamilyAdvancePaymentCostCodes, true
			n, err = s.children.PersistAdvancePaymentCostCodes(ctx, scope, invoicing.RawItems(raw))
		}
	}
	if err != nil {
		return err
	}
	if synced {
		result.Synced[family] = n
	}

	if !invoicing.IsOrderLinked(invoice.InvoiceType) {
		return nil
	}
	advancePaymentUUID := common.NormalizeID(payload["adjusted_advance_payment_uuid"])
	raw, ok := payload["adjusted_advance_payment_cost_codes"]
	if advancePaymentUUID == nil || !ok {
		return nil
	}

	original, err := s.items.ListAdvancePaymentCostCodes(ctx, *advancePaymentUUID)
	if err != nil {
		return fmt.Errorf("load cost codes of advance payment %s: %w", *advancePaymentUUID, err)
	}
	n, err = s.children.PersistAdjustedAdvancePaymentCostCodes(ctx, scope, *advancePaymentUUID, invoicing.AdjustmentsFromValue(raw), original)
	if err != nil {
		return err
	}
	result.Synced[models.FamilyAdjustedAdvancePaymentCostCodes] = n
	return nil
}

// allocate draws the invoice's deduction from its order's advance payments. On update the
// payments this invoice already consumed go back to the pool first so a re-save reselects them.
func (s *vendorInvoiceService) allocate(ctx context.Context, invoice *models.VendorInvoice, payload map[string]interface{}, releaseFirst bool, result *SaveResult) {
	if releaseFirst && invoicing.IsOrderLinked(invoice.InvoiceType) {
		released, adv := s.allocator.Release(ctx, invoice.UUID, nil)
		if adv != nil {
			result.Advisories = append(result.Advisories, adv)
		}
		result.ReleasedAdvancePayments = append(result.ReleasedAdvancePayments, released...)
	}

	ref := models.OrderRefOf(invoice.InvoiceType, invoice.PurchaseOrderUUID, invoice.ChangeOrderUUID)
	if ref == nil {
		return
	}

	result.Deduction = invoicing.DeductionAmount(payload, invoice.FinancialBreakdown, invoice.Amount)
	req := AllocationRequest{CorporationUUID: invoice.CorporationUUID, InvoiceUUID: invoice.UUID, Deduction: result.Deduction}
	switch ref.Kind {
	case models.OrderKindPurchaseOrder:
		req.PurchaseOrderUUID = &ref.UUID
	case models.OrderKindChangeOrder:
		req.ChangeOrderUUID = &ref.UUID
	}

	marked, adv := s.allocator.MarkAdvancePaymentsAsAdjusted(ctx, req)
	if adv != nil {
		result.Advisories = append(result.Advisories, adv)
	}
	result.AdjustedAdvancePayments = marked
}

// finish drops stale cache entries and reloads the saved invoice with its enrichment and children.
func (s *vendorInvoiceService) finish(ctx context.Context, invoice *models.VendorInvoice, result *SaveResult, msg string) (*SaveResult, error) {
	touched := []string{invoice.UUID}
	touched = append(touched, result.AdjustedAdvancePayments...)
	touched = append(touched, result.ReleasedAdvancePayments...)
	if adv := s.invalidate(ctx, invoice.UUID, touched); adv != nil {
		result.Advisories = append(result.Advisories, adv)
	}

	detail, err := s.loadDetail(ctx, invoice.UUID)
	if err != nil {
		return nil, err
	}
	result.Invoice = detail
	s.logAdvisories(result.Advisories)

	s.log.Info().
		Str("invoice_uuid", invoice.UUID).
		Str("invoice_type", invoice.InvoiceType).
		Str("deduction", result.Deduction.String()).
		Int("adjusted", len(result.AdjustedAdvancePayments)).
		Int("advisories", len(result.Advisories)).
		Msg(msg)
	return result, nil
}

// loadDetail reads an active invoice and the child collections its type owns.
func (s *vendorInvoiceService) loadDetail(ctx context.Context, invoiceUUID string) (*models.VendorInvoiceDetail, error) {
	inv, err := s.invoices.GetByUUID(ctx, invoiceUUID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	detail := &models.VendorInvoiceDetail{VendorInvoice: invoicing.DecorateVendorInvoiceRecord(inv)}

	switch inv.InvoiceType {
	case models.InvoiceTypeDirect:
		if detail.LineItems, err = s.items.ListDirectLineItems(ctx, invoiceUUID); err == nil && detail.LineItems == nil {
			detail.LineItems = []models.DirectLineItem{}
		}
	case models.InvoiceTypeAgainstPO:
		if detail.POInvoiceItems, err = s.items.ListPOInvoiceItems(ctx, invoiceUUID); err == nil && detail.POInvoiceItems == nil {
			detail.POInvoiceItems = []models.POInvoiceItem{}
		}
	case models.InvoiceTypeAgainstCO:
		if detail.COInvoiceItems, err = s.items.ListCOInvoiceItems(ctx, invoiceUUID); err == nil && detail.COInvoiceItems == nil {
			detail.COInvoiceItems = []models.COInvoiceItem{}
		}
	case models.InvoiceTypeAdvancePayment:
		if detail.AdvancePaymentCostCodes, err = s.items.ListAdvancePaymentCostCodes(ctx, invoiceUUID); err == nil && detail.AdvancePaymentCostCodes == nil {
			detail.AdvancePaymentCostCodes = []models.AdvancePaymentCostCode{}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load children of invoice %s: %w", invoiceUUID, err)
	}

	if invoicing.IsOrderLinked(inv.InvoiceType) {
		detail.AdjustedAdvancePaymentCostCodes, err = s.items.ListAdjustedAdvancePaymentCostCodes(ctx, invoiceUUID)
		if err != nil {
			return nil, fmt.Errorf("load adjusted cost codes of invoice %s: %w", invoiceUUID, err)
		}
	}
	return detail, nil
}

func (s *vendorInvoiceService) invalidate(ctx context.Context, invoiceUUID string, uuids []string) *Advisory {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeleteInvoices(ctx, uuids...); err != nil {
		return &Advisory{Step: StepCacheInvalidate, InvoiceUUID: invoiceUUID, Err: err}
	}
	return nil
}

func (s *vendorInvoiceService) logAdvisories(advisories []*Advisory) {
	for _, adv := range advisories {
		s.log.Warn().Err(adv.Err).Str("invoice_uuid", adv.InvoiceUUID).Str("step", adv.Step).Msg("reconciliation step failed")
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrInvoiceNotFound
	}
	return err
}

func removedCostCodes(v interface{}) []interface{} {
	switch val := v.(type) {
	case []interface{}:
		return val
	case []map[string]interface{}:
		out := make([]interface{}, 0, len(val))
		for _, m := range val {
			out = append(out, m)
		}
		return out
	}
	return nil
}
