package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	models "storefront/model"
)

const (
	lockProductsSQL   = `SELECT id, price, stock_qty FROM product WHERE id = ANY($1) AND active = TRUE ORDER BY id FOR UPDATE`
	insertPurchaseSQL = `INSERT INTO purchase (customer_id, total_amount) VALUES ($1, $2) RETURNING id, customer_id, purchased_at, total_amount, status`
	insertItemSQL     = `INSERT INTO purchase_item (purchase_id, product_id, qty, unit_price) VALUES ($1, $2, $3, $4)`
	decrementStockSQL = `UPDATE product SET stock_qty = stock_qty - $1 WHERE id = $2`
)

// lockedProduct is the state of a product row read under FOR UPDATE.
type lockedProduct struct {
	price decimal.Decimal
	stock int
}

// CreatePurchase creates a purchase, its items and the matching stock
// decrements in a single transaction. Product rows are locked in ascending id
// order before validation, so concurrent purchases of the same product
// serialize and can never oversell. Unit prices are the ones read under lock.
//
// Failures of a purchase line are returned as *models.ProductError; storage
// failures are wrapped with models.ErrTransaction. Either way nothing is
// written.
func (s *PostgresStore) CreatePurchase(ctx context.Context, customerID int64, items []models.ItemRequest) (models.Purchase, error) {
	if err := models.ValidateItems(items); err != nil {
		return models.Purchase{}, err
	}

	var p models.Purchase
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		locked, err := lockProducts(ctx, tx, distinctProductIDs(items))
		if err != nil {
			return err
		}
		total, err := priceItems(items, locked)
		if err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx, insertPurchaseSQL, customerID, total).
			Scan(&p.ID, &p.CustomerID, &p.PurchasedAt, &p.TotalAmount, &p.Status); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		return writeItems(ctx, tx, p.ID, items, locked)
	})
	if err != nil {
		if errors.Is(err, models.ErrBusinessRule) {
			return models.Purchase{}, err
		}
		return models.Purchase{}, fmt.Errorf("%w: %w", models.ErrTransaction, err)
	}
	return p, nil
}

// distinctProductIDs returns the ids referenced by items, ascending.
func distinctProductIDs(items []models.ItemRequest) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func lockProducts(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]lockedProduct, error) {
	rows, err := tx.QueryContext(ctx, lockProductsSQL, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]lockedProduct, len(ids))
	for rows.Next() {
		var (
			id int64
			lp lockedProduct
		)
		if err := rows.Scan(&id, &lp.price, &lp.stock); err != nil {
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		locked[id] = lp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return locked, nil
}

// priceItems validates every line in request order and returns the exact
// total. A product listed more than once is checked against the sum of its
// quantities.
func priceItems(items []models.ItemRequest, locked map[int64]lockedProduct) (decimal.Decimal, error) {
	total := decimal.Zero
	requested := make(map[int64]int, len(locked))
	for _, it := range items {
		lp, ok := locked[it.ProductID]
		if !ok {
			return decimal.Zero, &models.ProductError{ProductID: it.ProductID, Reason: models.ReasonUnavailable}
		}
		// compare against what is left so the running sum cannot overflow
		if it.Qty > lp.stock-requested[it.ProductID] {
			return decimal.Zero, &models.ProductError{ProductID: it.ProductID, Reason: models.ReasonInsufficientStock}
		}
		requested[it.ProductID] += it.Qty
		total = total.Add(lp.price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total, nil
}

func writeItems(ctx context.Context, tx *sql.Tx, purchaseID int64, items []models.ItemRequest, locked map[int64]lockedProduct) error {
	insertItem, err := tx.PrepareContext(ctx, insertItemSQL)
	if err != nil {
		return fmt.Errorf("prepare purchase item: %w", err)
	}
	defer insertItem.Close()

	decrement, err := tx.PrepareContext(ctx, decrementStockSQL)
	if err != nil {
		return fmt.Errorf("prepare stock update: %w", err)
	}
	defer decrement.Close()

	for _, it := range items {
		if _, err := insertItem.ExecContext(ctx, purchaseID, it.ProductID, it.Qty, locked[it.ProductID].price); err != nil {
			return fmt.Errorf("insert purchase item %d: %w", it.ProductID, err)
		}
		if _, err := decrement.ExecContext(ctx, it.Qty, it.ProductID); err != nil {
			return fmt.Errorf("decrement stock %d: %w", it.ProductID, err)
		}
	}
	return nil
}

// GetPurchase returns a purchase with its lines ordered by product name.
func (s *PostgresStore) GetPurchase(ctx context.Context, id int64) (models.PurchaseDetail, error) {
	var d models.PurchaseDetail
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, customer_id, purchased_at, total_amount, status FROM purchase WHERE id = $1`, id,
	).Scan(&d.ID, &d.CustomerID, &d.PurchasedAt, &d.TotalAmount, &d.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return d, models.NotFoundf("purchase %d not found", id)
	}
	if err != nil {
		return d, fmt.Errorf("query purchase: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.id, p.name, pi.qty, pi.unit_price
		FROM purchase_item pi
		JOIN product p ON p.id = pi.product_id
		WHERE pi.purchase_id = $1
		ORDER BY p.name ASC`, id)
	if err != nil {
		return d, fmt.Errorf("query purchase items: %w", err)
	}
	defer rows.Close()

	d.Items = []models.PurchaseLine{}
	for rows.Next() {
		var l models.PurchaseLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Qty, &l.UnitPrice); err != nil {
			return d, fmt.Errorf("scan purchase item: %w", err)
		}
		d.Items = append(d.Items, l)
	}
	return d, rows.Err()
}

// ListPurchases returns a customer's purchases, newest first, without items.
func (s *PostgresStore) ListPurchases(ctx context.Context, customerID int64) ([]models.Purchase, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, customer_id, purchased_at, total_amount, status
		FROM purchase
		WHERE customer_id = $1
		ORDER BY purchased_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	out := []models.Purchase{}
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.PurchasedAt, &p.TotalAmount, &p.Status); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
