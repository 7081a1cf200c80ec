package services

import (
	"context"

	"constructerp/internal/common"
	"constructerp/internal/invoicing"
	"constructerp/internal/logger"
	"constructerp/internal/models"

	"github.com/rs/zerolog"
)

// InvoiceTransition describes an update to an existing invoice's type and order links.
type InvoiceTransition struct {
	Previous          *models.VendorInvoice
	InvoiceType       string
	PurchaseOrderUUID *string
	ChangeOrderUUID   *string
	// AdjustedAdvancePaymentUUID is the advance payment the update draws cost codes from, if any.
	AdjustedAdvancePaymentUUID *string
}

// TransitionResult reports what the handler cleaned up. Every failure in here is advisory
// and left for the caller to log.
type TransitionResult struct {
	Released   []string
	Cleared    map[models.ChildFamily]int64
	Advisories []*Advisory
}

// TypeTransitionHandler runs before an update is synchronized: it returns advance payments
// to the pool when the order link they were consumed under goes away, and drops child
// families the new invoice type no longer owns.
type TypeTransitionHandler struct {
	children  *ChildSynchronizer
	allocator *AdvanceAllocator
	log       zerolog.Logger
}

func NewTypeTransitionHandler(children *ChildSynchronizer, allocator *AdvanceAllocator) *TypeTransitionHandler {
	return &TypeTransitionHandler{children: children, allocator: allocator, log: logger.WithComponent("type_transition")}
}

func (h *TypeTransitionHandler) Apply(ctx context.Context, t InvoiceTransition) TransitionResult {
	result := TransitionResult{Cleared: map[models.ChildFamily]int64{}}
	prev := t.Previous
	if prev == nil || prev.UUID == "" {
		return result
	}

	if released, adv := h.releaseStaleAllocations(ctx, t); adv != nil {
		result.Advisories = append(result.Advisories, adv)
	} else {
		result.Released = released
	}

	for _, family := range models.ChildFamilies {
		if !family.OwnedBy(prev.InvoiceType) || family.OwnedBy(t.InvoiceType) {
			continue
		}
		n, err := h.children.ClearFamily(ctx, family, prev.UUID)
		if err != nil {
			result.Advisories = append(result.Advisories, &Advisory{Step: StepClearFamily, InvoiceUUID: prev.UUID, Err: err})
			continue
		}
		result.Cleared[family] = n
	}

	if invoicing.IsOrderLinked(t.InvoiceType) && common.NormalizeID(t.AdjustedAdvancePaymentUUID) == nil {
		n, err := h.children.ClearFamily(ctx, models.FamilyAdjustedAdvancePaymentCostCodes, prev.UUID)
		if err != nil {
			result.Advisories = append(result.Advisories, &Advisory{Step: StepClearAdjustments, InvoiceUUID: prev.UUID, Err: err})
		} else {
			result.Cleared[models.FamilyAdjustedAdvancePaymentCostCodes] += n
		}
	}

	for family, n := range result.Cleared {
		if n > 0 {
			h.log.Debug().Str("invoice_uuid", prev.UUID).Str("family", string(family)).Int64("rows", n).Msg("cleared rows of previous invoice type")
		}
	}
	return result
}

// releaseStaleAllocations unmarks advance payments consumed under the previous order when the
// invoice leaves that order, either by pointing at another one or by changing type.
func (h *TypeTransitionHandler) releaseStaleAllocations(ctx context.Context, t InvoiceTransition) ([]string, *Advisory) {
	prev := t.Previous
	oldRef := models.OrderRefOf(prev.InvoiceType, prev.PurchaseOrderUUID, prev.ChangeOrderUUID)

	stale := false
	switch prev.InvoiceType {
	case models.InvoiceTypeAgainstPO:
		stale = t.InvoiceType != prev.InvoiceType || !sameID(prev.PurchaseOrderUUID, t.PurchaseOrderUUID)
	case models.InvoiceTypeAgainstCO:
		stale = t.InvoiceType != prev.InvoiceType || !sameID(prev.ChangeOrderUUID, t.ChangeOrderUUID)
	}
	if !stale {
		return nil, nil
	}
	return h.allocator.Release(ctx, prev.UUID, oldRef)
}

func sameID(a, b *string) bool {
	return common.SafeString(common.NormalizeID(a)) == common.SafeString(common.NormalizeID(b))
}
