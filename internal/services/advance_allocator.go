package services

import (
	"context"
	"strings"

	"constructerp/internal/logger"
	"constructerp/internal/models"
	"constructerp/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AllocationLocker serializes allocations against one purchase or change order.
type AllocationLocker interface {
	Lock(ctx context.Context, ref models.OrderRef) (unlock func(), err error)
}

// AllocationRequest asks for deduction to be drawn from the order's advance payments.
type AllocationRequest struct {
	CorporationUUID   string
	InvoiceUUID       string
	PurchaseOrderUUID *string
	ChangeOrderUUID   *string
	Deduction         decimal.Decimal
}

// orderRef is set only when exactly one of the two order references is present.
func (r AllocationRequest) orderRef() *models.OrderRef {
	po := strings.TrimSpace(derefString(r.PurchaseOrderUUID))
	co := strings.TrimSpace(derefString(r.ChangeOrderUUID))
	switch {
	case po != "" && co == "":
		return &models.OrderRef{Kind: models.OrderKindPurchaseOrder, UUID: po}
	case co != "" && po == "":
		return &models.OrderRef{Kind: models.OrderKindChangeOrder, UUID: co}
	}
	return nil
}

// AdvanceAllocator consumes advance-payment invoices oldest first. Whole invoices are consumed;
// the last one may cover more than what was left of the deduction.
type AdvanceAllocator struct {
	invoices repositories.VendorInvoiceRepository
	locker   AllocationLocker
	log      zerolog.Logger
}

// NewAdvanceAllocator builds an allocator. locker may be nil.
func NewAdvanceAllocator(invoices repositories.VendorInvoiceRepository, locker AllocationLocker) *AdvanceAllocator {
	return &AdvanceAllocator{invoices: invoices, locker: locker, log: logger.WithComponent("advance_allocator")}
}

// MarkAdvancePaymentsAsAdjusted links enough unconsumed advance payments to the invoice to cover
// the deduction and returns their uuids. Only advance payments of the invoice's corporation are
// drawn. Requests missing the corporation or the invoice, without exactly one order reference or
// without a positive deduction do nothing. Failures come back as an Advisory.
func (a *AdvanceAllocator) MarkAdvancePaymentsAsAdjusted(ctx context.Context, req AllocationRequest) ([]string, *Advisory) {
	ref := req.orderRef()
	if req.CorporationUUID == "" || req.InvoiceUUID == "" || ref == nil || !req.Deduction.IsPositive() {
		return nil, nil
	}

	unlock := a.lock(ctx, req.InvoiceUUID, *ref)
	defer unlock()

	candidates, err := a.invoices.ListUnadjustedAdvancePayments(ctx, req.CorporationUUID, *ref)
	if err != nil {
		return nil, &Advisory{Step: StepAllocate, InvoiceUUID: req.InvoiceUUID, Err: err}
	}

	selected := SelectAdvancePayments(candidates, req.Deduction)
	if len(selected) == 0 {
		return nil, nil
	}

	if _, err := a.invoices.MarkAdvancePaymentsAdjusted(ctx, selected, req.InvoiceUUID); err != nil {
		return nil, &Advisory{Step: StepAllocate, InvoiceUUID: req.InvoiceUUID, Err: err}
	}

	a.log.Info().
		Str("invoice_uuid", req.InvoiceUUID).
		Str("order_uuid", ref.UUID).
		Str("deduction", req.Deduction.String()).
		Strs("advance_payments", selected).
		Msg("advance payments marked adjusted")
	return selected, nil
}

// Release returns the advance payments consumed by the invoice to the pool. A nil ref releases
// them across all orders.
func (a *AdvanceAllocator) Release(ctx context.Context, consumerUUID string, ref *models.OrderRef) ([]string, *Advisory) {
	if consumerUUID == "" {
		return nil, nil
	}
	released, err := a.invoices.ReleaseAdvancePayments(ctx, consumerUUID, ref)
	if err != nil {
		return nil, &Advisory{Step: StepReleaseAllocations, InvoiceUUID: consumerUUID, Err: err}
	}
	if len(released) > 0 {
		a.log.Info().
			Str("invoice_uuid", consumerUUID).
			Strs("advance_payments", released).
			Msg("advance payments released")
	}
	return released, nil
}

// lock is best effort: without a lock the allocation still runs.
func (a *AdvanceAllocator) lock(ctx context.Context, invoiceUUID string, ref models.OrderRef) func() {
	if a.locker == nil {
		return func() {}
	}
	unlock, err := a.locker.Lock(ctx, ref)
	if err != nil {
		a.log.Warn().
			Err(err).
			Str("invoice_uuid", invoiceUUID).
			Str("step", StepAllocationLock).
			Str("order_uuid", ref.UUID).
			Msg("could not obtain allocation lock; proceeding without it")
		return func() {}
	}
	return unlock
}

// SelectAdvancePayments walks candidates in order, taking each one while any deduction remains.
// Missing amounts count as zero.
func SelectAdvancePayments(candidates []models.AdvancePayment, deduction decimal.Decimal) []string {
	remaining := deduction
	var selected []string
	for _, ap := range candidates {
		if !remaining.IsPositive() {
			break
		}
		selected = append(selected, ap.UUID)
		if ap.Amount != nil {
			remaining = remaining.Sub(decimal.NewFromFloat(*ap.Amount))
		}
	}
	return selected
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
