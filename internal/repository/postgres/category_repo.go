package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/philippemarquet/my-money-muse/internal/errs"
	"github.com/philippemarquet/my-money-muse/internal/model"
)

// CategoryRepo implements CategoryRepository using PostgreSQL.
type CategoryRepo struct{ db *DB }

// NewCategoryRepo constructs a category repository.
func NewCategoryRepo(db *DB) *CategoryRepo { return &CategoryRepo{db: db} }

// GetSubcategoryByName finds a subcategory by exact category/subcategory name.
func (r *CategoryRepo) GetSubcategoryByName(ctx context.Context, householdID uuid.UUID, categoryName, subcategoryName string) (*model.Subcategory, error) {
	const q = `
SELECT s.id, s.category_id, s.name
FROM subcategories s
JOIN categories c ON c.id = s.category_id
WHERE c.household_id=$1 AND c.name=$2 AND s.name=$3
LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q, householdID, categoryName, subcategoryName)
	var s model.Subcategory
	if err := row.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FirstSubcategoryByCategoryType returns the first subcategory whose parent
// category type matches any of the ILIKE patterns (e.g. '%income%').
func (r *CategoryRepo) FirstSubcategoryByCategoryType(ctx context.Context, householdID uuid.UUID, patterns []string) (*model.Subcategory, error) {
	const q = `
SELECT s.id, s.category_id, s.name
FROM subcategories s
JOIN categories c ON c.id = s.category_id
WHERE c.household_id=$1 AND c.type ILIKE ANY($2)
ORDER BY c.name, s.name
LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q, householdID, patterns)
	var s model.Subcategory
	if err := row.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
