package model

import "mpesa-subscription-shop/internal/domain"

// Plan is a purchasable subscription with a fixed price in whole KES.
// Plans are owned by the catalog and immutable after load.
type Plan struct {
	ID       string
	Name     string
	Price    int64
	Duration string // display label, e.g. "1 Month"
	Features []string
	Popular  bool
}

// Category groups plans for the storefront, e.g. "Streaming Services".
type Category struct {
	ID    string
	Name  string
	Icon  string
	Color string
	Plans []Plan
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, price int64, duration string, features []string) (*Plan, error) {
	if id == "" || name == "" || price <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{ID: id, Name: name, Price: price, Duration: duration, Features: features}, nil
}
