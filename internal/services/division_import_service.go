package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"constructerp/internal/logger"
	"constructerp/internal/models"
	"constructerp/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type DivisionImportService interface {
	Import(ctx context.Context, req *models.DivisionBulkImport) (*models.DivisionImportResult, error)
	List(ctx context.Context, corporationUUID string) ([]*models.CostCodeDivision, error)
}

type divisionImportService struct {
	repo     repositories.CostCodeDivisionRepository
	validate *validator.Validate
	log      zerolog.Logger
}

func NewDivisionImportService(repo repositories.CostCodeDivisionRepository) DivisionImportService {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &divisionImportService{repo: repo, validate: validate, log: logger.WithComponent("division_import")}
}

// Import inserts every valid division whose number the corporation does not have yet.
// Invalid entries are reported per item; duplicates, including repeats within the batch, are counted and skipped.
func (s *divisionImportService) Import(ctx context.Context, req *models.DivisionBulkImport) (*models.DivisionImportResult, error) {
	if req == nil || strings.TrimSpace(req.CorporationUUID) == "" {
		return nil, invalid("corporation_uuid", "is required")
	}
	if len(req.Divisions) == 0 {
		return nil, invalid("divisions", "must contain at least one division")
	}

	existing, err := s.repo.ExistingDivisionNumbers(ctx, req.CorporationUUID)
	if err != nil {
		return nil, fmt.Errorf("load existing divisions: %w", err)
	}

	result := &models.DivisionImportResult{}
	var toInsert []models.CostCodeDivision
	for i, in := range req.Divisions {
		in.DivisionNumber = strings.TrimSpace(in.DivisionNumber)
		in.DivisionName = strings.TrimSpace(in.DivisionName)

		if err := s.validate.Struct(in); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, models.BulkOperationError{
				ItemIndex: i,
				ItemID:    in.DivisionNumber,
				Error:     describeValidation(err),
			})
			continue
		}
		if existing[in.DivisionNumber] {
			result.DuplicateCount++
			continue
		}
		existing[in.DivisionNumber] = true

		isActive := true
		if in.IsActive != nil {
			isActive = *in.IsActive
		}
		toInsert = append(toInsert, models.CostCodeDivision{
			UUID:            uuid.NewString(),
			CorporationUUID: req.CorporationUUID,
			DivisionNumber:  in.DivisionNumber,
			DivisionName:    in.DivisionName,
			DivisionOrder:   in.DivisionOrder,
			Description:     in.Description,
			IsActive:        isActive,
		})
	}

	if len(toInsert) > 0 {
		if err := s.repo.BulkCreate(ctx, toInsert); err != nil {
			return nil, fmt.Errorf("insert divisions: %w", err)
		}
	}
	result.NewCount = len(toInsert)
	result.Inserted = toInsert

	s.log.Info().
		Str("corporation_uuid", req.CorporationUUID).
		Int("new", result.NewCount).
		Int("duplicates", result.DuplicateCount).
		Int("errors", result.ErrorCount).
		Msg("cost code divisions imported")
	return result, nil
}

func (s *divisionImportService) List(ctx context.Context, corporationUUID string) ([]*models.CostCodeDivision, error) {
	if strings.TrimSpace(corporationUUID) == "" {
		return nil, invalid("corporation_uuid", "is required")
	}
	divisions, err := s.repo.ListByCorporation(ctx, corporationUUID)
	if err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	if divisions == nil {
		divisions = []*models.CostCodeDivision{}
	}
	return divisions, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be between 1 and 100", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
