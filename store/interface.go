package store

import (
	"context"

	models "storefront/model"
)

// GET    /products                        - list active products (search, min_price, max_price)
// POST   /products                        - create a product
// GET    /products/low_stock              - products below a stock threshold
// GET    /products/{id}                   - single product
// PUT    /products/{id}                   - partial update
// PATCH  /products/{id}/active            - toggle visibility
// POST   /customers                       - register a customer
// GET    /customers/{id}/credit_cards     - list card references
// POST   /credit_cards                    - store a card reference
// GET    /customers/{id}/purchases        - purchase history
// POST   /purchases                       - create a purchase
// GET    /purchases/{id}                  - purchase detail

type Store interface {
	CreateProduct(ctx context.Context, p models.NewProduct) (models.Product, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, u models.ProductUpdate) (models.Product, error)
	SetProductActive(ctx context.Context, id int64, active bool) (models.Product, error)
	LowStock(ctx context.Context, threshold int) ([]models.LowStockProduct, error)

	CreateCustomer(ctx context.Context, name, email string) (models.Customer, error)
	CreateCreditCard(ctx context.Context, c models.NewCreditCard) (int64, error)
	ListCreditCards(ctx context.Context, customerID int64) ([]models.CreditCard, error)

	CreatePurchase(ctx context.Context, customerID int64, items []models.ItemRequest) (models.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (models.PurchaseDetail, error)
	ListPurchases(ctx context.Context, customerID int64) ([]models.Purchase, error)

	Close() error
}
