package models

import "github.com/shopspring/decimal"

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	StockQty    int             `json:"stock_qty"`
	Active      bool            `json:"active"`
}

type NewProduct struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	StockQty    int
}

// ProductUpdate holds the fields of a partial update; nil means unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	StockQty    *int
}

// Empty reports whether the update sets no field at all.
func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.StockQty == nil
}

type ProductFilter struct {
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

type LowStockProduct struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	StockQty int    `json:"stock_qty"`
}
