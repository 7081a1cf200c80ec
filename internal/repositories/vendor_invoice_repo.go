package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"constructerp/internal/models"
)

type VendorInvoiceRepository interface {
	Create(ctx context.Context, invoice *models.VendorInvoice) error
	GetByUUID(ctx context.Context, uuid string) (*models.VendorInvoice, error)
	Update(ctx context.Context, invoice *models.VendorInvoice) error
	SoftDelete(ctx context.Context, uuid string) error
	ListByCorporation(ctx context.Context, corporationUUID string, limit, offset int) ([]*models.VendorInvoice, error)
	CountByCorporation(ctx context.Context, corporationUUID string) (int, error)

	// ListUnadjustedAdvancePayments returns the corporation's unconsumed advance payments on the
	// order, oldest bill first.
	ListUnadjustedAdvancePayments(ctx context.Context, corporationUUID string, ref models.OrderRef) ([]models.AdvancePayment, error)
	// MarkAdvancePaymentsAdjusted points every listed advance payment at the consuming invoice.
	MarkAdvancePaymentsAdjusted(ctx context.Context, advancePaymentUUIDs []string, consumerUUID string) (int64, error)
	// ReleaseAdvancePayments clears the consumer link on advance payments it consumed, optionally
	// only those on one order, and returns the released uuids.
	ReleaseAdvancePayments(ctx context.Context, consumerUUID string, ref *models.OrderRef) ([]string, error)
}

type vendorInvoiceRepo struct {
	db DBTX
}

func NewVendorInvoiceRepo(db DBTX) VendorInvoiceRepository {
	return &vendorInvoiceRepo{db: db}
}

const vendorInvoiceColumns = `vi.uuid, vi.corporation_uuid, vi.project_uuid, vi.vendor_uuid, vi.purchase_order_uuid, vi.change_order_uuid, vi.invoice_type, vi.invoice_number, vi.bill_date, vi.due_date, vi.credit_days, vi.amount, vi.holdback, vi.financial_breakdown, vi.status, vi.adjusted_against_vendor_invoice_uuid, vi.attachments, vi.removed_advance_payment_cost_codes, vi.is_active, vi.created_at, vi.updated_at`

const enrichedVendorInvoiceSelect = `
		SELECT ` + vendorInvoiceColumns + `, p.project_name, v.vendor_name, po.po_number, co.co_number
		FROM vendor_invoices vi
		LEFT JOIN projects p ON p.uuid = vi.project_uuid
		LEFT JOIN vendors v ON v.uuid = vi.vendor_uuid
		LEFT JOIN purchase_orders po ON po.uuid = vi.purchase_order_uuid
		LEFT JOIN change_orders co ON co.uuid = vi.change_order_uuid
	`

func (r *vendorInvoiceRepo) Create(ctx context.Context, invoice *models.VendorInvoice) error {
	fb, attachments, removed, err := marshalInvoiceJSON(invoice)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vendor_invoices (uuid, corporation_uuid, project_uuid, vendor_uuid, purchase_order_uuid, change_order_uuid, invoice_type, invoice_number, bill_date, due_date, credit_days, amount, holdback, financial_breakdown, status, adjusted_against_vendor_invoice_uuid, attachments, removed_advance_payment_cost_codes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		invoice.UUID, invoice.CorporationUUID, invoice.ProjectUUID, invoice.VendorUUID,
		invoice.PurchaseOrderUUID, invoice.ChangeOrderUUID, invoice.InvoiceType, invoice.InvoiceNumber,
		invoice.BillDate, invoice.DueDate, invoice.CreditDays, invoice.Amount, invoice.Holdback,
		fb, invoice.Status, invoice.AdjustedAgainstVendorInvoiceUUID, attachments, removed, invoice.IsActive,
	).Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert vendor invoice: %w", err)
	}
	return nil
}

func (r *vendorInvoiceRepo) GetByUUID(ctx context.Context, uuid string) (*models.VendorInvoice, error) {
	query := enrichedVendorInvoiceSelect + `WHERE vi.uuid = $1 AND vi.is_active = true`

	invoice, err := scanVendorInvoice(r.db.QueryRow(ctx, query, uuid))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return invoice, nil
}

func (r *vendorInvoiceRepo) Update(ctx context.Context, invoice *models.VendorInvoice) error {
	fb, attachments, removed, err := marshalInvoiceJSON(invoice)
	if err != nil {
		return err
	}

	query := `
		UPDATE vendor_invoices
		SET project_uuid = $2, vendor_uuid = $3, purchase_order_uuid = $4, change_order_uuid = $5, invoice_type = $6, invoice_number = $7, bill_date = $8, due_date = $9, credit_days = $10, amount = $11, holdback = $12, financial_breakdown = $13, status = $14, adjusted_against_vendor_invoice_uuid = $15, attachments = $16, removed_advance_payment_cost_codes = $17, corporation_uuid = $18, updated_at = NOW()
		WHERE uuid = $1 AND is_active = true
		RETURNING updated_at
	`
	err = r.db.QueryRow(ctx, query,
		invoice.UUID, invoice.ProjectUUID, invoice.VendorUUID, invoice.PurchaseOrderUUID, invoice.ChangeOrderUUID,
		invoice.InvoiceType, invoice.InvoiceNumber, invoice.BillDate, invoice.DueDate, invoice.CreditDays,
		invoice.Amount, invoice.Holdback, fb, invoice.Status, invoice.AdjustedAgainstVendorInvoiceUUID,
		attachments, removed, invoice.CorporationUUID,
	).Scan(&invoice.UpdatedAt)
	if err != nil {
		return notFoundOr(err)
	}
	return nil
}

func (r *vendorInvoiceRepo) SoftDelete(ctx context.Context, uuid string) error {
	query := `UPDATE vendor_invoices SET is_active = false, updated_at = NOW() WHERE uuid = $1 AND is_active = true`
	tag, err := r.db.Exec(ctx, query, uuid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *vendorInvoiceRepo) ListByCorporation(ctx context.Context, corporationUUID string, limit, offset int) ([]*models.VendorInvoice, error) {
	query := enrichedVendorInvoiceSelect + `
		WHERE vi.corporation_uuid = $1 AND vi.is_active = true
		ORDER BY vi.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, corporationUUID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []*models.VendorInvoice{}
	for rows.Next() {
		invoice, err := scanVendorInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *vendorInvoiceRepo) CountByCorporation(ctx context.Context, corporationUUID string) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM vendor_invoices WHERE corporation_uuid = $1 AND is_active = true`
	if err := r.db.QueryRow(ctx, query, corporationUUID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *vendorInvoiceRepo) ListUnadjustedAdvancePayments(ctx context.Context, corporationUUID string, ref models.OrderRef) ([]models.AdvancePayment, error) {
	query := fmt.Sprintf(`
		SELECT uuid, amount, bill_date
		FROM vendor_invoices
		WHERE corporation_uuid = $1 AND invoice_type = $2 AND %s = $3 AND adjusted_against_vendor_invoice_uuid IS NULL AND is_active = true
		ORDER BY bill_date ASC, created_at ASC
	`, orderColumn(ref.Kind))

	rows, err := r.db.Query(ctx, query, corporationUUID, models.InvoiceTypeAdvancePayment, ref.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.AdvancePayment
	for rows.Next() {
		var ap models.AdvancePayment
		if err := rows.Scan(&ap.UUID, &ap.Amount, &ap.BillDate); err != nil {
			return nil, err
		}
		payments = append(payments, ap)
	}
	return payments, rows.Err()
}

func (r *vendorInvoiceRepo) MarkAdvancePaymentsAdjusted(ctx context.Context, advancePaymentUUIDs []string, consumerUUID string) (int64, error) {
	if len(advancePaymentUUIDs) == 0 {
		return 0, nil
	}
	query := `
		UPDATE vendor_invoices
		SET adjusted_against_vendor_invoice_uuid = $1, updated_at = NOW()
		WHERE uuid = ANY($2)
	`
	tag, err := r.db.Exec(ctx, query, consumerUUID, advancePaymentUUIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *vendorInvoiceRepo) ReleaseAdvancePayments(ctx context.Context, consumerUUID string, ref *models.OrderRef) ([]string, error) {
	query := `
		UPDATE vendor_invoices
		SET adjusted_against_vendor_invoice_uuid = NULL, updated_at = NOW()
		WHERE adjusted_against_vendor_invoice_uuid = $1 AND invoice_type = $2`
	args := []any{consumerUUID, models.InvoiceTypeAdvancePayment}
	if ref != nil {
		query += fmt.Sprintf(` AND %s = $3`, orderColumn(ref.Kind))
		args = append(args, ref.UUID)
	}
	query += ` RETURNING uuid`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var released []string
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, err
		}
		released = append(released, uuid)
	}
	return released, rows.Err()
}

func orderColumn(kind models.OrderKind) string {
	if kind == models.OrderKindChangeOrder {
		return "change_order_uuid"
	}
	return "purchase_order_uuid"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendorInvoice(row rowScanner) (*models.VendorInvoice, error) {
	invoice := &models.VendorInvoice{}
	var fb, attachments, removed []byte
	err := row.Scan(
		&invoice.UUID, &invoice.CorporationUUID, &invoice.ProjectUUID, &invoice.VendorUUID,
		&invoice.PurchaseOrderUUID, &invoice.ChangeOrderUUID, &invoice.InvoiceType, &invoice.InvoiceNumber,
		&invoice.BillDate, &invoice.DueDate, &invoice.CreditDays, &invoice.Amount, &invoice.Holdback,
		&fb, &invoice.Status, &invoice.AdjustedAgainstVendorInvoiceUUID, &attachments, &removed,
		&invoice.IsActive, &invoice.CreatedAt, &invoice.UpdatedAt,
		&invoice.ProjectName, &invoice.VendorName, &invoice.PurchaseOrderNumber, &invoice.ChangeOrderNumber,
	)
	if err != nil {
		return nil, err
	}

	if len(fb) > 0 {
		// never fails; malformed breakdowns decode to empty slots
		_ = json.Unmarshal(fb, &invoice.FinancialBreakdown)
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &invoice.Attachments); err != nil {
			invoice.Attachments = nil
		}
	}
	if len(removed) > 0 {
		if err := json.Unmarshal(removed, &invoice.RemovedAdvancePaymentCostCodes); err != nil {
			invoice.RemovedAdvancePaymentCostCodes = nil
		}
	}
	return invoice, nil
}

func marshalInvoiceJSON(invoice *models.VendorInvoice) (fb, attachments, removed []byte, err error) {
	if fb, err = json.Marshal(invoice.FinancialBreakdown); err != nil {
		return nil, nil, nil, fmt.Errorf("encode financial_breakdown: %w", err)
	}
	atts := invoice.Attachments
	if atts == nil {
		atts = []map[string]interface{}{}
	}
	if attachments, err = json.Marshal(atts); err != nil {
		return nil, nil, nil, fmt.Errorf("encode attachments: %w", err)
	}
	if invoice.RemovedAdvancePaymentCostCodes != nil {
		if removed, err = json.Marshal(invoice.RemovedAdvancePaymentCostCodes); err != nil {
			return nil, nil, nil, fmt.Errorf("encode removed_advance_payment_cost_codes: %w", err)
		}
	}
	return fb, attachments, removed, nil
}
