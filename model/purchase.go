package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatusPlaced is the status every purchase is created with.
const PurchaseStatusPlaced = "PLACED"

type Purchase struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	PurchasedAt time.Time       `json:"purchased_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

// PurchaseItem is one line of a purchase. UnitPrice is the product price
// read under lock when the purchase was created.
type PurchaseItem struct {
	PurchaseID int64           `json:"purchase_id"`
	ProductID  int64           `json:"product_id"`
	Qty        int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type PurchaseLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type PurchaseDetail struct {
	Purchase
	Items []PurchaseLine `json:"items"`
}

// ItemRequest is a single (product, quantity) pair of a purchase request.
type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// ValidateItems checks the shape of a purchase request without touching storage.
func ValidateItems(items []ItemRequest) error {
	if len(items) == 0 {
		return Validationf("at least one item is required")
	}
	for _, it := range items {
		if it.ProductID <= 0 {
			return Validationf("product_id must be positive")
		}
		if it.Qty <= 0 {
			return Validationf("qty for product %d must be > 0", it.ProductID)
		}
		if it.Qty > math.MaxInt32 {
			return Validationf("qty for product %d is too large", it.ProductID)
		}
	}
	return nil
}
