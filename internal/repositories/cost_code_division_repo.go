package repositories

import (
	"context"

	"constructerp/internal/models"
)

type CostCodeDivisionRepository interface {
	// ExistingDivisionNumbers returns the division numbers a corporation already has.
	ExistingDivisionNumbers(ctx context.Context, corporationUUID string) (map[string]bool, error)
	BulkCreate(ctx context.Context, divisions []models.CostCodeDivision) error
	ListByCorporation(ctx context.Context, corporationUUID string) ([]*models.CostCodeDivision, error)
}

type costCodeDivisionRepo struct {
	db DBTX
}

func NewCostCodeDivisionRepo(db DBTX) CostCodeDivisionRepository {
	return &costCodeDivisionRepo{db: db}
}

var costCodeDivisionColumns = []string{"uuid", "corporation_uuid", "division_number", "division_name", "division_order", "description", "is_active"}

func (r *costCodeDivisionRepo) ExistingDivisionNumbers(ctx context.Context, corporationUUID string) (map[string]bool, error) {
	query := `SELECT division_number FROM cost_code_divisions WHERE corporation_uuid = $1`
	rows, err := r.db.Query(ctx, query, corporationUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		existing[number] = true
	}
	return existing, rows.Err()
}

func (r *costCodeDivisionRepo) BulkCreate(ctx context.Context, divisions []models.CostCodeDivision) error {
	rows := make([][]any, 0, len(divisions))
	for _, d := range divisions {
		rows = append(rows, []any{d.UUID, d.CorporationUUID, d.DivisionNumber, d.DivisionName, d.DivisionOrder, d.Description, d.IsActive})
	}
	return insertRows(ctx, r.db, "cost_code_divisions", costCodeDivisionColumns, rows)
}

func (r *costCodeDivisionRepo) ListByCorporation(ctx context.Context, corporationUUID string) ([]*models.CostCodeDivision, error) {
	query := `
		SELECT uuid, corporation_uuid, division_number, division_name, division_order, description, is_active, created_at, updated_at
		FROM cost_code_divisions
		WHERE corporation_uuid = $1 AND is_active = true
		ORDER BY division_order ASC, division_number ASC
	`
	rows, err := r.db.Query(ctx, query, corporationUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	divisions := []*models.CostCodeDivision{}
	for rows.Next() {
		d := &models.CostCodeDivision{}
		if err := rows.Scan(&d.UUID, &d.CorporationUUID, &d.DivisionNumber, &d.DivisionName, &d.DivisionOrder, &d.Description, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}
