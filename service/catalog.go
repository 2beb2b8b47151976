package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	models "storefront/model"
)

// DefaultLowStockThreshold is used when the caller gives no threshold.
const DefaultLowStockThreshold = 5

func (s *Service) CreateProduct(ctx context.Context, p models.NewProduct) (models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Product{}, models.Validationf("name is required")
	}
	if err := validatePrice(p.Price); err != nil {
		return models.Product{}, err
	}
	if p.StockQty < 0 {
		return models.Product{}, models.Validationf("stock_qty must be >= 0")
	}
	return s.store.CreateProduct(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, models.Validationf("min_price must not exceed max_price")
	}
	return s.store.ListProducts(ctx, f)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, u models.ProductUpdate) (models.Product, error) {
	if u.Empty() {
		return models.Product{}, models.Validationf("no fields to update")
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return models.Product{}, models.Validationf("name must not be empty")
		}
		u.Name = &name
	}
	if u.Price != nil {
		if err := validatePrice(*u.Price); err != nil {
			return models.Product{}, err
		}
	}
	if u.StockQty != nil && *u.StockQty < 0 {
		return models.Product{}, models.Validationf("stock_qty must be >= 0")
	}
	return s.store.UpdateProduct(ctx, id, u)
}

func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) (models.Product, error) {
	return s.store.SetProductActive(ctx, id, active)
}

func (s *Service) LowStock(ctx context.Context, threshold int) ([]models.LowStockProduct, error) {
	if threshold < 0 {
		return nil, models.Validationf("threshold must be >= 0")
	}
	return s.store.LowStock(ctx, threshold)
}

// validatePrice enforces price > 0 with at most two decimal places.
func validatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return models.Validationf("price must be > 0")
	}
	if !p.Equal(p.Truncate(2)) {
		return models.Validationf("price must have at most 2 decimal places")
	}
	return nil
}
