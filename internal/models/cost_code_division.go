package models

import "time"

// CostCodeDivision groups cost codes for a corporation.
type CostCodeDivision struct {
	UUID            string    `json:"uuid" db:"uuid"`
	CorporationUUID string    `json:"corporation_uuid" db:"corporation_uuid"`
	DivisionNumber  string    `json:"division_number" db:"division_number"`
	DivisionName    string    `json:"division_name" db:"division_name"`
	DivisionOrder   int       `json:"division_order" db:"division_order"`
	Description     *string   `json:"description" db:"description"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// DivisionInput is one division submitted for bulk import.
type DivisionInput struct {
	DivisionNumber string  `json:"division_number" validate:"required"`
	DivisionName   string  `json:"division_name" validate:"required"`
	DivisionOrder  int     `json:"division_order" validate:"required,min=1,max=100"`
	Description    *string `json:"description"`
	IsActive       *bool   `json:"is_active"`
}

// DivisionBulkImport is the bulk import request body.
type DivisionBulkImport struct {
	CorporationUUID string          `json:"corporation_uuid" validate:"required"`
	Divisions       []DivisionInput `json:"divisions" validate:"required,min=1"`
}

// BulkOperationError represents an error for a specific item in bulk operation
type BulkOperationError struct {
	ItemIndex int    `json:"item_index"`
	ItemID    string `json:"item_id"`
	Error     string `json:"error"`
}

// DivisionImportResult summarizes a bulk division import.
type DivisionImportResult struct {
	NewCount       int                  `json:"new_count"`
	DuplicateCount int                  `json:"duplicate_count"`
	ErrorCount     int                  `json:"error_count"`
	Errors         []BulkOperationError `json:"errors,omitempty"`
	Inserted       []CostCodeDivision   `json:"inserted,omitempty"`
}
