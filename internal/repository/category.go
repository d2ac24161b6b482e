package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// CategoryRepository resolves default subcategories for imported payments.
type CategoryRepository interface {
	// GetSubcategoryByName finds a subcategory by exact category and
	// subcategory name within a household.
	GetSubcategoryByName(ctx context.Context, householdID uuid.UUID, categoryName, subcategoryName string) (*model.Subcategory, error)
	// FirstSubcategoryByCategoryType returns the first subcategory whose
	// parent category type matches any of the given ILIKE patterns.
	FirstSubcategoryByCategoryType(ctx context.Context, householdID uuid.UUID, patterns []string) (*model.Subcategory, error)
}
