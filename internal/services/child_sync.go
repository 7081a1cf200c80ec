package services

import (
	"context"
	"fmt"

	"constructerp/internal/invoicing"
	"constructerp/internal/logger"
	"constructerp/internal/models"
	"constructerp/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InvoiceScope is what every child row of an invoice is stamped with.
type InvoiceScope struct {
	VendorInvoiceUUID string
	CorporationUUID   string
	ProjectUUID       *string
}

func (s InvoiceScope) stamp(row *models.InvoiceChildRow) {
	row.UUID = uuid.NewString()
	row.VendorInvoiceUUID = s.VendorInvoiceUUID
	row.CorporationUUID = s.CorporationUUID
	row.ProjectUUID = s.ProjectUUID
}

// ChildSynchronizer replaces an invoice's child rows wholesale: every persist call deletes the
// family's existing rows for the invoice and inserts the submitted set. Both steps are fatal on error.
type ChildSynchronizer struct {
	items repositories.InvoiceItemsRepository
	log   zerolog.Logger
}

func NewChildSynchronizer(items repositories.InvoiceItemsRepository) *ChildSynchronizer {
	return &ChildSynchronizer{items: items, log: logger.WithComponent("child_sync")}
}

func (s *ChildSynchronizer) PersistDirectLineItems(ctx context.Context, scope InvoiceScope, raw []map[string]interface{}) (int, error) {
	return s.replace(ctx, models.FamilyDirectLineItems, scope, len(raw), func() error {
		rows := make([]models.DirectLineItem, 0, len(raw))
		for i, item := range raw {
			row := invoicing.SanitizeDirectLineItem(item, i)
			scope.stamp(&row.InvoiceChildRow)
			rows = append(rows, row)
		}
		return s.items.InsertDirectLineItems(ctx, rows)
	})
}

func (s *ChildSynchronizer) PersistPOInvoiceItems(ctx context.Context, scope InvoiceScope, purchaseOrderUUID *string, raw []map[string]interface{}) (int, error) {
	return s.replace(ctx, models.FamilyPOInvoiceItems, scope, len(raw), func() error {
		rows := make([]models.POInvoiceItem, 0, len(raw))
		for i, item := range raw {
			row := invoicing.SanitizePOInvoiceItem(item, i)
			scope.stamp(&row.InvoiceChildRow)
			if purchaseOrderUUID != nil {
				row.PurchaseOrderUUID = purchaseOrderUUID
			}
			rows = append(rows, row)
		}
		return s.items.InsertPOInvoiceItems(ctx, rows)
	})
}

func (s *ChildSynchronizer) PersistCOInvoiceItems(ctx context.Context, scope InvoiceScope, changeOrderUUID *string, raw []map[string]interface{}) (int, error) {
	return s.replace(ctx, models.FamilyCOInvoiceItems, scope, len(raw), func() error {
		rows := make([]models.COInvoiceItem, 0, len(raw))
		for i, item := range raw {
			row := invoicing.SanitizeCOInvoiceItem(item, i)
			scope.stamp(&row.InvoiceChildRow)
			if changeOrderUUID != nil {
				row.ChangeOrderUUID = changeOrderUUID
			}
			rows = append(rows, row)
		}
		return s.items.InsertCOInvoiceItems(ctx, rows)
	})
}

func (s *ChildSynchronizer) PersistAdvancePaymentCostCodes(ctx context.Context, scope InvoiceScope, raw []map[string]interface{}) (int, error) {
	return s.replace(ctx, models.FamilyAdvancePaymentCostCodes, scope, len(raw), func() error {
		rows := make([]models.AdvancePaymentCostCode, 0, len(raw))
		for i, item := range raw {
			row := invoicing.SanitizeAdvancePaymentCostCode(item, i)
			scope.stamp(&row.InvoiceChildRow)
			rows = append(rows, row)
		}
		return s.items.InsertAdvancePaymentCostCodes(ctx, rows)
	})
}

// PersistAdjustedAdvancePaymentCostCodes records how much of each of the advance payment's
// cost codes this invoice draws down. original is the advance payment's own cost code rows.
func (s *ChildSynchronizer) PersistAdjustedAdvancePaymentCostCodes(ctx context.Context, scope InvoiceScope, advancePaymentUUID string, adjustments []invoicing.Adjustment, original []models.AdvancePaymentCostCode) (int, error) {
	rows := invoicing.ResolveAdjustedCostCodes(advancePaymentUUID, adjustments, original)
	return s.replace(ctx, models.FamilyAdjustedAdvancePaymentCostCodes, scope, len(rows), func() error {
		for i := range rows {
			scope.stamp(&rows[i].InvoiceChildRow)
		}
		return s.items.InsertAdjustedAdvancePaymentCostCodes(ctx, rows)
	})
}

// ClearFamily deletes every row of one family for an invoice.
func (s *ChildSynchronizer) ClearFamily(ctx context.Context, family models.ChildFamily, vendorInvoiceUUID string) (int64, error) {
	if vendorInvoiceUUID == "" {
		return 0, nil
	}
	return s.items.DeleteByInvoice(ctx, family, vendorInvoiceUUID)
}

func (s *ChildSynchronizer) replace(ctx context.Context, family models.ChildFamily, scope InvoiceScope, n int, insert func() error) (int, error) {
	if scope.VendorInvoiceUUID == "" {
		return 0, nil
	}

	if _, err := s.items.DeleteByInvoice(ctx, family, scope.VendorInvoiceUUID); err != nil {
		return 0, fmt.Errorf("clear %s for invoice %s: %w", family, scope.VendorInvoiceUUID, err)
	}
	if n == 0 {
		return 0, nil
	}

	if err := insert(); err != nil {
		return 0, fmt.Errorf("insert %s for invoice %s: %w", family, scope.VendorInvoiceUUID, err)
	}

	s.log.Debug().
		Str("invoice_uuid", scope.VendorInvoiceUUID).
		Str("family", string(family)).
		Int("rows", n).
		Msg("child rows replaced")
	return n, nil
}
