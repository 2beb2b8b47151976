package service

import (
	"context"

	models "storefront/model"
)

type ServiceInterface interface {
	CreateProduct(ctx context.Context, p models.NewProduct) (models.Product, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, u models.ProductUpdate) (models.Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) (models.Product, error)
	LowStock(ctx context.Context, threshold int) ([]models.LowStockProduct, error)

	CreateCustomer(ctx context.Context, name, email string) (models.Customer, error)
	CreateCreditCard(ctx context.Context, c models.NewCreditCard) (int64, error)
	ListCreditCards(ctx context.Context, customerID int64) ([]models.CreditCard, error)

	CreatePurchase(ctx context.Context, idempotencyKey string, customerID int64, items []models.ItemRequest) (p models.Purchase, replayed bool, err error)
	GetPurchase(ctx context.Context, id int64) (models.PurchaseDetail, error)
	ListPurchases(ctx context.Context, customerID int64) ([]models.Purchase, error)
}

// IdempotencyGuard reserves client-supplied idempotency keys and remembers
// which purchase a key produced.
type IdempotencyGuard interface {
	// Reserve returns false if the key is already held.
	Reserve(ctx context.Context, key string) (bool, error)
	// Complete binds a reserved key to the purchase it created.
	Complete(ctx context.Context, key string, purchaseID int64) error
	// Lookup returns the purchase bound to key, or 0 while it is still in flight.
	Lookup(ctx context.Context, key string) (int64, error)
	Release(ctx context.Context, key string) error
}
