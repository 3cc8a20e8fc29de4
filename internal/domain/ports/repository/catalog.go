package repository

import (
	"context"

	"mpesa-subscription-shop/internal/domain/model"
)

// Catalog supplies plan and category data. The engine only reads it; content
// management is out of scope.
type Catalog interface {
	// FindPlan returns the plan and its category; domain.ErrPlanNotFound
	// when the id is unknown.
	FindPlan(ctx context.Context, planID string) (*model.Plan, *model.Category, error)
	Categories(ctx context.Context) ([]model.Category, error)
}
