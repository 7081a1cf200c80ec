package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"constructerp/internal/models"
)

// InvoiceItemsRepository stores the child rows of vendor invoices, one table per family.
type InvoiceItemsRepository interface {
	DeleteByInvoice(ctx context.Context, family models.ChildFamily, vendorInvoiceUUID string) (int64, error)

	InsertDirectLineItems(ctx context.Context, items []models.DirectLineItem) error
	InsertPOInvoiceItems(ctx context.Context, items []models.POInvoiceItem) error
	InsertCOInvoiceItems(ctx context.Context, items []models.COInvoiceItem) error
	InsertAdvancePaymentCostCodes(ctx context.Context, items []models.AdvancePaymentCostCode) error
	InsertAdjustedAdvancePaymentCostCodes(ctx context.Context, items []models.AdjustedAdvancePaymentCostCode) error

	ListDirectLineItems(ctx context.Context, vendorInvoiceUUID string) ([]models.DirectLineItem, error)
	ListPOInvoiceItems(ctx context.Context, vendorInvoiceUUID string) ([]models.POInvoiceItem, error)
	ListCOInvoiceItems(ctx context.Context, vendorInvoiceUUID string) ([]models.COInvoiceItem, error)
	ListAdvancePaymentCostCodes(ctx context.Context, vendorInvoiceUUID string) ([]models.AdvancePaymentCostCode, error)
	ListAdjustedAdvancePaymentCostCodes(ctx context.Context, vendorInvoiceUUID string) ([]models.AdjustedAdvancePaymentCostCode, error)

	// DeleteOrphanedChildren removes rows whose parent invoice no longer has a type that owns their family.
	DeleteOrphanedChildren(ctx context.Context) (map[models.ChildFamily]int64, error)
}

type invoiceItemsRepo struct {
	db DBTX
}

func NewInvoiceItemsRepo(db DBTX) InvoiceItemsRepository {
	return &invoiceItemsRepo{db: db}
}

var childTables = map[models.ChildFamily]string{
	models.FamilyDirectLineItems:                 "vendor_invoice_line_items",
	models.FamilyPOInvoiceItems:                  "po_invoice_items",
	models.FamilyCOInvoiceItems:                  "co_invoice_items",
	models.FamilyAdvancePaymentCostCodes:         "advance_payment_cost_codes",
	models.FamilyAdjustedAdvancePaymentCostCodes: "adjusted_advance_payment_cost_codes",
}

// ChildTable returns the table a family is stored in.
func ChildTable(family models.ChildFamily) (string, error) {
	table, ok := childTables[family]
	if !ok {
		return "", fmt.Errorf("unknown child family %q", family)
	}
	return table, nil
}

var childRowColumns = []string{"uuid", "vendor_invoice_uuid", "corporation_uuid", "project_uuid", "order_index", "is_active"}

var (
	directLineItemColumns = withChildRowColumns("cost_code_uuid", "cost_code_label", "item_uuid", "item_name", "description", "unit_price", "quantity", "total", "uom_uuid", "uom_label", "metadata")
	orderLineColumns      = []string{"cost_code_uuid", "cost_code_label", "cost_code_number", "cost_code_name", "item_type_uuid", "item_type_label", "item_uuid", "item_name", "description", "model_number", "location_uuid", "location_label", "unit_uuid", "unit_label", "invoice_quantity", "invoice_unit_price", "invoice_total", "metadata"}
	poInvoiceItemColumns  = withChildRowColumns(append([]string{"purchase_order_uuid", "po_item_uuid"}, orderLineColumns...)...)
	coInvoiceItemColumns  = withChildRowColumns(append([]string{"change_order_uuid", "co_item_uuid"}, orderLineColumns...)...)
	apCostCodeColumns     = withChildRowColumns("cost_code_uuid", "cost_code_label", "cost_code_number", "cost_code_name", "total_amount", "advance_amount")
	adjustedColumns       = withChildRowColumns("advance_payment_uuid", "cost_code_uuid", "cost_code_label", "cost_code_number", "cost_code_name", "adjusted_amount")
)

func withChildRowColumns(columns ...string) []string {
	out := make([]string, 0, len(childRowColumns)+len(columns))
	out = append(out, childRowColumns...)
	return append(out, columns...)
}

func (r *invoiceItemsRepo) DeleteByInvoice(ctx context.Context, family models.ChildFamily, vendorInvoiceUUID string) (int64, error) {
	table, err := ChildTable(family)
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE vendor_invoice_uuid = $1`, table), vendorInvoiceUUID)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (r *invoiceItemsRepo) InsertDirectLineItems(ctx context.Context, items []models.DirectLineItem) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		metadata, err := encodeMetadata(it.Metadata)
		if err != nil {
			return err
		}
		rows = append(rows, append(childRowValues(it.InvoiceChildRow),
			it.CostCodeUUID, it.CostCodeLabel, it.ItemUUID, it.ItemName, it.Description,
			it.UnitPrice, it.Quantity, it.Total, it.UOMUUID, it.UOMLabel, metadata))
	}
	return insertRows(ctx, r.db, childTables[models.FamilyDirectLineItems], directLineItemColumns, rows)
}

func (r *invoiceItemsRepo) InsertPOInvoiceItems(ctx context.Context, items []models.POInvoiceItem) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		line, err := orderLineValues(it.OrderInvoiceLine)
		if err != nil {
			return err
		}
		row := append(childRowValues(it.InvoiceChildRow), it.PurchaseOrderUUID, it.POItemUUID)
		rows = append(rows, append(row, line...))
	}
	return insertRows(ctx, r.db, childTables[models.FamilyPOInvoiceItems], poInvoiceItemColumns, rows)
}

func (r *invoiceItemsRepo) InsertCOInvoiceItems(ctx context.Context, items []models.COInvoiceItem) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		line, err := orderLineValues(it.OrderInvoiceLine)
		if err != nil {
			return err
		}
		row := append(childRowValues(it.InvoiceChildRow), it.ChangeOrderUUID, it.COItemUUID)
		rows = append(rows, append(row, line...))
	}
	return insertRows(ctx, r.db, childTables[models.FamilyCOInvoiceItems], coInvoiceItemColumns, rows)
}

func (r *invoiceItemsRepo) InsertAdvancePaymentCostCodes(ctx context.Context, items []models.AdvancePaymentCostCode) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, append(childRowValues(it.InvoiceChildRow),
			it.CostCodeUUID, it.CostCodeLabel, it.CostCodeNumber, it.CostCodeName, it.TotalAmount, it.AdvanceAmount))
	}
	return insertRows(ctx, r.db, childTables[models.FamilyAdvancePaymentCostCodes], apCostCodeColumns, rows)
}

func (r *invoiceItemsRepo) InsertAdjustedAdvancePaymentCostCodes(ctx context.Context, items []models.AdjustedAdvancePaymentCostCode) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, append(childRowValues(it.InvoiceChildRow),
			it.AdvancePaymentUUID, it.CostCodeUUID, it.CostCodeLabel, it.CostCodeNumber, it.CostCodeName, it.AdjustedAmount))
	}
	return insertRows(ctx, r.db, childTables[models.FamilyAdjustedAdvancePaymentCostCodes], adjustedColumns, rows)
}

func (r *invoiceItemsRepo) ListDirectLineItems(ctx context.Context, vendorInvoiceUUID string) ([]models.DirectLineItem, error) {
	return listChildRows(ctx, r, models.FamilyDirectLineItems, directLineItemColumns, vendorInvoiceUUID,
		func(row rowScanner) (models.DirectLineItem, error) {
			var it models.DirectLineItem
			var metadata []byte
			dest := append(childRowDest(&it.InvoiceChildRow),
				&it.CostCodeUUID, &it.CostCodeLabel, &it.ItemUUID, &it.ItemName, &it.Description,
				&it.UnitPrice, &it.Quantity, &it.Total, &it.UOMUUID, &it.UOMLabel, &metadata)
			dest = append(dest, &it.CreatedAt, &it.UpdatedAt)
			if err := row.Scan(dest...); err != nil {
				return it, err
			}
			it.Metadata = decodeMetadata(metadata)
			return it, nil
		})
}

func (r *invoiceItemsRepo) ListPOInvoiceItems(ctx context.Context, vendorInvoiceUUID string) ([]models.POInvoiceItem, error) {
	return listChildRows(ctx, r, models.FamilyPOInvoiceItems, poInvoiceItemColumns, vendorInvoiceUUID,
		func(row rowScanner) (models.POInvoiceItem, error) {
			var it models.POInvoiceItem
			var metadata []byte
			dest := append(childRowDest(&it.InvoiceChildRow), &it.PurchaseOrderUUID, &it.POItemUUID)
			dest = append(dest, orderLineDest(&it.OrderInvoiceLine, &metadata)...)
			dest = append(dest, &it.CreatedAt, &it.UpdatedAt)
			if err := row.Scan(dest...); err != nil {
				return it, err
			}
			it.Metadata = decodeMetadata(metadata)
			return it, nil
		})
}

func (r *invoiceItemsRepo) ListCOInvoiceItems(ctx context.Context, vendorInvoiceUUID string) ([]models.COInvoiceItem, error) {
	return listChildRows(ctx, r, models.FamilyCOInvoiceItems, coInvoiceItemColumns, vendorInvoiceUUID,
		func(row rowScanner) (models.COInvoiceItem, error) {
			var it models.COInvoiceItem
			var metadata []byte
			dest := append(childRowDest(&it.InvoiceChildRow), &it.ChangeOrderUUID, &it.COItemUUID)
			dest = append(dest, orderLineDest(&it.OrderInvoiceLine, &metadata)...)
			dest = append(dest, &it.CreatedAt, &it.UpdatedAt)
			if err := row.Scan(dest...); err != nil {
				return it, err
			}
			it.Metadata = decodeMetadata(metadata)
			return it, nil
		})
}

func (r *invoiceItemsRepo) ListAdvancePaymentCostCodes(ctx context.Context, vendorInvoiceUUID string) ([]models.AdvancePaymentCostCode, error) {
	return listChildRows(ctx, r, models.FamilyAdvancePaymentCostCodes, apCostCodeColumns, vendorInvoiceUUID,
		func(row rowScanner) (models.AdvancePaymentCostCode, error) {
			var it models.AdvancePaymentCostCode
			dest := append(childRowDest(&it.InvoiceChildRow),
				&it.CostCodeUUID, &it.CostCodeLabel, &it.CostCodeNumber, &it.CostCodeName, &it.TotalAmount, &it.AdvanceAmount)
			dest = append(dest, &it.CreatedAt, &it.UpdatedAt)
			err := row.Scan(dest...)
			return it, err
		})
}

func (r *invoiceItemsRepo) ListAdjustedAdvancePaymentCostCodes(ctx context.Context, vendorInvoiceUUID string) ([]models.AdjustedAdvancePaymentCostCode, error) {
	return listChildRows(ctx, r, models.FamilyAdjustedAdvancePaymentCostCodes, adjustedColumns, vendorInvoiceUUID,
		func(row rowScanner) (models.AdjustedAdvancePaymentCostCode, error) {
			var it models.AdjustedAdvancePaymentCostCode
			dest := append(childRowDest(&it.InvoiceChildRow),
				&it.AdvancePaymentUUID, &it.CostCodeUUID, &it.CostCodeLabel, &it.CostCodeNumber, &it.CostCodeName, &it.AdjustedAmount)
			dest = append(dest, &it.CreatedAt, &it.UpdatedAt)
			err := row.Scan(dest...)
			return it, err
		})
}

func (r *invoiceItemsRepo) DeleteOrphanedChildren(ctx context.Context) (map[models.ChildFamily]int64, error) {
	deleted := make(map[models.ChildFamily]int64, len(models.ChildFamilies))
	for _, family := range models.ChildFamilies {
		table := childTables[family]
		query := fmt.Sprintf(`
			DELETE FROM %s c
			WHERE NOT EXISTS (
				SELECT 1 FROM vendor_invoices vi
				WHERE vi.uuid = c.vendor_invoice_uuid AND vi.invoice_type = ANY($1)
			)
		`, table)
		tag, err := r.db.Exec(ctx, query, family.OwningTypes())
		if err != nil {
			return deleted, fmt.Errorf("sweep %s: %w", table, err)
		}
		deleted[family] = tag.RowsAffected()
	}
	return deleted, nil
}

func listChildRows[T any](ctx context.Context, r *invoiceItemsRepo, family models.ChildFamily, columns []string, vendorInvoiceUUID string, scan func(rowScanner) (T, error)) ([]T, error) {
	table := childTables[family]
	query := fmt.Sprintf(`
		SELECT %s, created_at, updated_at
		FROM %s
		WHERE vendor_invoice_uuid = $1 AND is_active = true
		ORDER BY order_index ASC
	`, strings.Join(columns, ", "), table)

	rows, err := r.db.Query(ctx, query, vendorInvoiceUUID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func childRowValues(c models.InvoiceChildRow) []any {
	return []any{c.UUID, c.VendorInvoiceUUID, c.CorporationUUID, c.ProjectUUID, c.OrderIndex, c.IsActive}
}

// childRowDest scans the shared leading columns. created_at and updated_at close every select.
func childRowDest(c *models.InvoiceChildRow) []any {
	return []any{&c.UUID, &c.VendorInvoiceUUID, &c.CorporationUUID, &c.ProjectUUID, &c.OrderIndex, &c.IsActive}
}

func orderLineValues(l models.OrderInvoiceLine) ([]any, error) {
	metadata, err := encodeMetadata(l.Metadata)
	if err != nil {
		return nil, err
	}
	return []any{
		l.CostCodeUUID, l.CostCodeLabel, l.CostCodeNumber, l.CostCodeName, l.ItemTypeUUID, l.ItemTypeLabel,
		l.ItemUUID, l.ItemName, l.Description, l.ModelNumber, l.LocationUUID, l.LocationLabel,
		l.UnitUUID, l.UnitLabel, l.InvoiceQuantity, l.InvoiceUnitPrice, l.InvoiceTotal, metadata,
	}, nil
}

func orderLineDest(l *models.OrderInvoiceLine, metadata *[]byte) []any {
	return []any{
		&l.CostCodeUUID, &l.CostCodeLabel, &l.CostCodeNumber, &l.CostCodeName, &l.ItemTypeUUID, &l.ItemTypeLabel,
		&l.ItemUUID, &l.ItemName, &l.Description, &l.ModelNumber, &l.LocationUUID, &l.LocationLabel,
		&l.UnitUUID, &l.UnitLabel, &l.InvoiceQuantity, &l.InvoiceUnitPrice, &l.InvoiceTotal, metadata,
	}
}

func encodeMetadata(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		m = map[string]interface{}{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func decodeMetadata(b []byte) map[string]interface{} {
	m := map[string]interface{}{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &m); err != nil {
			return map[string]interface{}{}
		}
	}
	return m
}
