package usecase

import (
	"context"
	"time"

	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	// Totals returns payment counts by status and remaining inventory per plan.
	Totals(ctx context.Context) (map[model.PaymentStatus]int64, map[string]int, error)
	// Revenue returns confirmed revenue for the trailing day, week and month.
	Revenue(ctx context.Context) (day, week, month int64, err error)
}

type statsUC struct {
	payments  repository.PaymentRepository
	catalog   repository.Catalog
	inventory repository.CredentialInventory
}

func NewStatsUseCase(payments repository.PaymentRepository, catalog repository.Catalog, inventory repository.CredentialInventory) *statsUC {
	return &statsUC{payments: payments, catalog: catalog, inventory: inventory}
}

func (u *statsUC) Totals(ctx context.Context) (map[model.PaymentStatus]int64, map[string]int, error) {
	byStatus, err := u.payments.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, nil, err
	}

	stock := make(map[string]int)
	categories, err := u.catalog.Categories(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, cat := range categories {
		for _, plan := range cat.Plans {
			n, err := u.inventory.Count(ctx, plan.ID)
			if err != nil {
				return nil, nil, err
			}
			stock[plan.ID] = n
		}
	}
	return byStatus, stock, nil
}

func (u *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	now := time.Now()
	day, err := u.payments.SumRevenueSince(ctx, repository.NoTX, now.AddDate(0, 0, -1))
	if err != nil {
		return 0, 0, 0, err
	}
	week, err := u.payments.SumRevenueSince(ctx, repository.NoTX, now.AddDate(0, 0, -7))
	if err != nil {
		return 0, 0, 0, err
	}
	month, err := u.payments.SumRevenueSince(ctx, repository.NoTX, now.AddDate(0, -1, 0))
	if err != nil {
		return 0, 0, 0, err
	}
	return day, week, month, nil
}
