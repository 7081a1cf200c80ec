package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"constructerp/internal/models"
	"constructerp/internal/repositories"
)

// memoryInvoiceRepo is an in-memory VendorInvoiceRepository.
type memoryInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*models.VendorInvoice
	clock    time.Time

	failList    error
	failMark    error
	failRelease error
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices: map[string]*models.VendorInvoice{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryInvoiceRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryInvoiceRepo) Create(ctx context.Context, invoice *models.VendorInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice.CreatedAt = r.tick()
	invoice.UpdatedAt = invoice.CreatedAt
	stored := *invoice
	r.invoices[invoice.UUID] = &stored
	return nil
}

func (r *memoryInvoiceRepo) GetByUUID(ctx context.Context, uuid string) (*models.VendorInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[uuid]
	if !ok || !inv.IsActive {
		return nil, repositories.ErrNotFound
	}
	out := *inv
	out.FinancialBreakdown = inv.FinancialBreakdown.Clone()
	return &out, nil
}

func (r *memoryInvoiceRepo) Update(ctx context.Context, invoice *models.VendorInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.invoices[invoice.UUID]
	if !ok || !current.IsActive {
		return repositories.ErrNotFound
	}
	invoice.UpdatedAt = r.tick()
	stored := *invoice
	stored.CreatedAt = current.CreatedAt
	stored.AdjustedAgainstVendorInvoiceUUID = current.AdjustedAgainstVendorInvoiceUUID
	r.invoices[invoice.UUID] = &stored
	return nil
}

func (r *memoryInvoiceRepo) SoftDelete(ctx context.Context, uuid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[uuid]
	if !ok || !inv.IsActive {
		return repositories.ErrNotFound
	}
	inv.IsActive = false
	return nil
}

func (r *memoryInvoiceRepo) ListByCorporation(ctx context.Context, corporationUUID string, limit, offset int) ([]*models.VendorInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.VendorInvoice
	for _, inv := range r.invoices {
		if inv.CorporationUUID == corporationUUID && inv.IsActive {
			c := *inv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryInvoiceRepo) CountByCorporation(ctx context.Context, corporationUUID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, inv := range r.invoices {
		if inv.CorporationUUID == corporationUUID && inv.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *memoryInvoiceRepo) ListUnadjustedAdvancePayments(ctx context.Context, corporationUUID string, ref models.OrderRef) ([]models.AdvancePayment, error) {
	if r.failList != nil {
		return nil, r.failList
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []*models.VendorInvoice
	for _, inv := range r.invoices {
		if inv.CorporationUUID != corporationUUID || inv.InvoiceType != models.InvoiceTypeAdvancePayment || !inv.IsActive || inv.AdjustedAgainstVendorInvoiceUUID != nil {
			continue
		}
		order := inv.PurchaseOrderUUID
		if ref.Kind == models.OrderKindChangeOrder {
			order = inv.ChangeOrderUUID
		}
		if order != nil && *order == ref.UUID {
			matches = append(matches, inv)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].BillDate.Equal(matches[j].BillDate) {
			return matches[i].BillDate.Before(matches[j].BillDate)
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	out := make([]models.AdvancePayment, 0, len(matches))
	for _, inv := range matches {
		out = append(out, models.AdvancePayment{UUID: inv.UUID, Amount: inv.Amount, BillDate: inv.BillDate})
	}
	return out, nil
}

func (r *memoryInvoiceRepo) MarkAdvancePaymentsAdjusted(ctx context.Context, advancePaymentUUIDs []string, consumerUUID string) (int64, error) {
	if r.failMark != nil {
		return 0, r.failMark
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range advancePaymentUUIDs {
		if inv, ok := r.invoices[id]; ok {
			consumer := consumerUUID
			inv.AdjustedAgainstVendorInvoiceUUID = &consumer
			n++
		}
	}
	return n, nil
}

func (r *memoryInvoiceRepo) ReleaseAdvancePayments(ctx context.Context, consumerUUID string, ref *models.OrderRef) ([]string, error) {
	if r.failRelease != nil {
		return nil, r.failRelease
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var released []string
	for _, inv := range r.invoices {
		if inv.AdjustedAgainstVendorInvoiceUUID == nil || *inv.AdjustedAgainstVendorInvoiceUUID != consumerUUID {
			continue
		}
		if ref != nil {
			order := inv.PurchaseOrderUUID
			if ref.Kind == models.OrderKindChangeOrder {
				order = inv.ChangeOrderUUID
			}
			if order == nil || *order != ref.UUID {
				continue
			}
		}
		inv.AdjustedAgainstVendorInvoiceUUID = nil
		released = append(released, inv.UUID)
	}
	sort.Strings(released)
	return released, nil
}

// consumerOf is the invoice that consumed the advance payment, "" when it is unconsumed.
func (r *memoryInvoiceRepo) consumerOf(uuid string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invoices[uuid]; ok && inv.AdjustedAgainstVendorInvoiceUUID != nil {
		return *inv.AdjustedAgainstVendorInvoiceUUID
	}
	return ""
}

// memoryItemsRepo is an in-memory InvoiceItemsRepository.
type memoryItemsRepo struct {
	mu       sync.Mutex
	direct   map[string][]models.DirectLineItem
	po       map[string][]models.POInvoiceItem
	co       map[string][]models.COInvoiceItem
	ap       map[string][]models.AdvancePaymentCostCode
	adjusted map[string][]models.AdjustedAdvancePaymentCostCode

	failDelete map[models.ChildFamily]error
	failInsert map[models.ChildFamily]error
}

func newMemoryItemsRepo() *memoryItemsRepo {
	return &memoryItemsRepo{
		direct:     map[string][]models.DirectLineItem{},
		po:         map[string][]models.POInvoiceItem{},
		co:         map[string][]models.COInvoiceItem{},
		ap:         map[string][]models.AdvancePaymentCostCode{},
		adjusted:   map[string][]models.AdjustedAdvancePaymentCostCode{},
		failDelete: map[models.ChildFamily]error{},
		failInsert: map[models.ChildFamily]error{},
	}
}

func (r *memoryItemsRepo) count(family models.ChildFamily, invoiceUUID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch family {
	case models.FamilyDirectLineItems:
		return len(r.direct[invoiceUUID])
	case models.FamilyPOInvoiceItems:
		return len(r.po[invoiceUUID])
	case models.FamilyCOInvoiceItems:
		return len(r.co[invoiceUUID])
	case models.FamilyAdvancePaymentCostCodes:
		return len(r.ap[invoiceUUID])
	case models.FamilyAdjustedAdvancePaymentCostCodes:
		return len(r.adjusted[invoiceUUID])
	}
	return 0
}

func (r *memoryItemsRepo) DeleteByInvoice(ctx context.Context, family models.ChildFamily, vendorInvoiceUUID string) (int64, error) {
	if err := r.failDelete[family]; err != nil {
		return 0, err
	}
	n := int64(r.count(family, vendorInvoiceUUID))
	r.mu.Lock()
	defer r.mu.Unlock()
	switch family {
	case models.FamilyDirectLineItems:
		delete(r.direct, vendorInvoiceUUID)
	case models.FamilyPOInvoiceItems:
		delete(r.po, vendorInvoiceUUID)
	case models.FamilyCOInvoiceItems:
		delete(r.co, vendorInvoiceUUID)
	case models.FamilyAdvancePaymentCostCodes:
		delete(r.ap, vendorInvoiceUUID)
	case models.FamilyAdjustedAdvancePaymentCostCodes:
		delete(r.adjusted, vendorInvoiceUUID)
	}
	return n, nil
}

func (r *memoryItemsRepo) InsertDirectLineItems(ctx context.Context, items []models.DirectLineItem) error {
	if err := r.failInsert[models.FamilyDirectLineItems]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.direct[it.VendorInvoiceUUID] = append(r.direct[it.VendorInvoiceUUID], it)
	}
	return nil
}

func (r *memoryItemsRepo) InsertPOInvoiceItems(ctx context.Context, items []models.POInvoiceItem) error {
	if err := r.failInsert[models.FamilyPOInvoiceItems]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.po[it.VendorInvoiceUUID] = append(r.po[it.VendorInvoiceUUID], it)
	}
	return nil
}

func (r *memoryItemsRepo) InsertCOInvoiceItems(ctx context.Context, items []models.COInvoiceItem) error {
	if err := r.failInsert[models.FamilyCOInvoiceItems]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.co[it.VendorInvoiceUUID] = append(r.co[it.VendorInvoiceUUID], it)
	}
	return nil
}

func (r *memoryItemsRepo) InsertAdvancePaymentCostCodes(ctx context.Context, items []models.AdvancePaymentCostCode) error {
	if err := r.failInsert[models.FamilyAdvancePaymentCostCodes]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.ap[it.VendorInvoiceUUID] = append(r.ap[it.VendorInvoiceUUID], it)
	}
	return nil
}

func (r *memoryItemsRepo) InsertAdjustedAdvancePaymentCostCodes(ctx context.Context, items []models.AdjustedAdvancePaymentCostCode) error {
	if err := r.failInsert[models.FamilyAdjustedAdvancePaymentCostCodes]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.adjusted[it.VendorInvoiceUUID] = append(r.adjusted[it.VendorInvoiceUUID], it)
	}
	return nil
}

func (r *memoryItemsRepo) ListDirectLineItems(ctx context.Context, vendorInvoiceUUID string) ([]models.DirectLineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.DirectLineItem(nil), r.direct[vendorInvoiceUUID]...), nil
}

func (r *memoryItemsRepo) ListPOInvoiceItems(ctx context.Context, vendorInvoiceUUID string) ([]models.POInvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.POInvoiceItem(nil), r.po[vendorInvoiceUUID]...), nil
}

func (r *memoryItemsRepo) ListCOInvoiceItems(ctx context.Context, vendorInvoiceUUID string) ([]models.COInvoiceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.COInvoiceItem(nil), r.co[vendorInvoiceUUID]...), nil
}

func (r *memoryItemsRepo) ListAdvancePaymentCostCodes(ctx context.Context, vendorInvoiceUUID string) ([]models.AdvancePaymentCostCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AdvancePaymentCostCode(nil), r.ap[vendorInvoiceUUID]...), nil
}

func (r *memoryItemsRepo) ListAdjustedAdvancePaymentCostCodes(ctx context.Context, vendorInvoiceUUID string) ([]models.AdjustedAdvancePaymentCostCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AdjustedAdvancePaymentCostCode(nil), r.adjusted[vendorInvoiceUUID]...), nil
}

func (r *memoryItemsRepo) DeleteOrphanedChildren(ctx context.Context) (map[models.ChildFamily]int64, error) {
	return map[models.ChildFamily]int64{}, nil
}

// seedAdvancePayment stores an unconsumed AGAINST_ADVANCE_PAYMENT invoice on a purchase order.
func seedAdvancePayment(repo *memoryInvoiceRepo, uuid, purchaseOrderUUID string, amount float64, billDate time.Time) {
	po := purchaseOrderUUID
	amt := amount
	_ = repo.Create(context.Background(), &models.VendorInvoice{
		UUID:              uuid,
		CorporationUUID:   "corp-1",
		PurchaseOrderUUID: &po,
		InvoiceType:       models.InvoiceTypeAdvancePayment,
		BillDate:          billDate,
		Amount:            &amt,
		Status:            models.StatusApproved,
		IsActive:          true,
	})
}
