package usecase

import (
	"context"

	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

type CatalogUseCase interface {
	Categories(ctx context.Context) ([]model.Category, error)
	FindPlan(ctx context.Context, planID string) (*model.Plan, *model.Category, error)
}

type catalogUC struct {
	catalog repository.Catalog
}

func NewCatalogUseCase(catalog repository.Catalog) *catalogUC {
	return &catalogUC{catalog: catalog}
}

func (u *catalogUC) Categories(ctx context.Context) ([]model.Category, error) {
	return u.catalog.Categories(ctx)
}

func (u *catalogUC) FindPlan(ctx context.Context, planID string) (*model.Plan, *model.Category, error) {
	return u.catalog.FindPlan(ctx, planID)
}
