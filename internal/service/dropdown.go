package service

import (
	"context"
	"strings"

	"github.com/nrahman/jobtrack/internal/apperror"
	"github.com/nrahman/jobtrack/internal/model"
	"github.com/nrahman/jobtrack/internal/repository"
)

// DropdownService curates the shared field vocabularies (the Status
// values and similar). Reads are open to every signed-in user; the
// handler layer restricts writes to admins.
type DropdownService struct {
	dropdowns repository.DropdownRepository
}

func NewDropdownService(dropdowns repository.DropdownRepository) *DropdownService {
	return &DropdownService{dropdowns: dropdowns}
}

// List returns the vocabularies grouped by field, each field's labels in
// display order.
func (s *DropdownService) List(ctx context.Context) (map[string][]model.DropdownOption, error) {
	options, err := s.dropdowns.ListOptions(ctx)
	if err != nil {
		return nil, err
	}

	grouped := map[string][]model.DropdownOption{}
	for _, o := range options {
		grouped[o.FieldName] = append(grouped[o.FieldName], o)
	}
	return grouped, nil
}

func (s *DropdownService) Add(ctx context.Context, fieldName, label string) (*model.DropdownOption, error) {
	fieldName = strings.TrimSpace(fieldName)
	label = strings.TrimSpace(label)
	if fieldName == "" {
		return nil, apperror.ValidationFailed("field_name", "field name is required")
	}
	if label == "" {
		return nil, apperror.ValidationFailed("label", "label is required")
	}
	return s.dropdowns.AddOption(ctx, fieldName, label)
}

func (s *DropdownService) Rename(ctx context.Context, id int64, label string) (*model.DropdownOption, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, apperror.ValidationFailed("label", "label is required")
	}
	return s.dropdowns.RenameOption(ctx, id, label)
}

func (s *DropdownService) Reorder(ctx context.Context, fieldName string, orderedIDs []int64) error {
	if strings.TrimSpace(fieldName) == "" {
		return apperror.ValidationFailed("field_name", "field name is required")
	}
	if len(orderedIDs) == 0 {
		return apperror.ValidationFailed("ids", "at least one option id is required")
	}
	return s.dropdowns.ReorderOptions(ctx, fieldName, orderedIDs)
}

func (s *DropdownService) Delete(ctx context.Context, id int64) error {
	return s.dropdowns.DeleteOption(ctx, id)
}
