// Package catalog loads the plan catalog from a YAML file. The catalog is
// immutable after load; content management is out of scope.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/repository"
)

var _ repository.Catalog = (*YAMLCatalog)(nil)

type planYAML struct {
	Name     string   `yaml:"name"`
	Price    int64    `yaml:"price"`
	Duration string   `yaml:"duration"`
	Features []string `yaml:"features"`
	Popular  bool     `yaml:"popular"`
}

type categoryYAML struct {
	Name  string              `yaml:"name"`
	Icon  string              `yaml:"icon"`
	Color string              `yaml:"color"`
	Plans map[string]planYAML `yaml:"plans"`
}

type fileYAML struct {
	Categories map[string]categoryYAML `yaml:"categories"`
}

type planEntry struct {
	plan     model.Plan
	category model.Category
}

type YAMLCatalog struct {
	categories []model.Category
	byPlanID   map[string]planEntry
}

// Load reads and validates the catalog file.
func Load(path string) (*YAMLCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileYAML
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &YAMLCatalog{byPlanID: make(map[string]planEntry)}
	for catID, cat := range f.Categories {
		mc := model.Category{ID: catID, Name: cat.Name, Icon: cat.Icon, Color: cat.Color}
		planIDs := make([]string, 0, len(cat.Plans))
		for id := range cat.Plans {
			planIDs = append(planIDs, id)
		}
		sort.Strings(planIDs)
		for _, id := range planIDs {
			p := cat.Plans[id]
			plan, err := model.NewPlan(id, p.Name, p.Price, p.Duration, p.Features)
			if err != nil {
				return nil, fmt.Errorf("catalog plan %q: %w", id, err)
			}
			plan.Popular = p.Popular
			if _, dup := c.byPlanID[id]; dup {
				return nil, fmt.Errorf("catalog plan %q: duplicated across categories: %w", id, domain.ErrAlreadyExists)
			}
			mc.Plans = append(mc.Plans, *plan)
		}
		c.categories = append(c.categories, mc)
		for _, plan := range mc.Plans {
			c.byPlanID[plan.ID] = planEntry{plan: plan, category: mc}
		}
	}
	sort.Slice(c.categories, func(i, j int) bool { return c.categories[i].ID < c.categories[j].ID })
	if len(c.byPlanID) == 0 {
		return nil, fmt.Errorf("catalog has no plans: %w", domain.ErrInvalidArgument)
	}
	return c, nil
}

func (c *YAMLCatalog) FindPlan(ctx context.Context, planID string) (*model.Plan, *model.Category, error) {
	e, ok := c.byPlanID[planID]
	if !ok {
		return nil, nil, domain.ErrPlanNotFound
	}
	plan := e.plan
	cat := e.category
	return &plan, &cat, nil
}

func (c *YAMLCatalog) Categories(ctx context.Context) ([]model.Category, error) {
	out := make([]model.Category, len(c.categories))
	copy(out, c.categories)
	return out, nil
}
