package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	models "storefront/model"
)

const productColumns = `id, name, description, price, stock_qty, active`

func scanProduct(row rowScanner) (models.Product, error) {
	var (
		p    models.Product
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Price, &p.StockQty, &p.Active); err != nil {
		return p, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	return p, nil
}

// CreateProduct inserts a product and returns the stored row.
func (s *PostgresStore) CreateProduct(ctx context.Context, np models.NewProduct) (models.Product, error) {
	row := s.DB.QueryRowContext(ctx,
		`INSERT INTO product (name, description, price, stock_qty) VALUES ($1, $2, $3, $4) RETURNING `+productColumns,
		np.Name, np.Description, np.Price, np.StockQty,
	)
	p, err := scanProduct(row)
	if err != nil {
		return p, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM product WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, models.NotFoundf("product %d not found", id)
	}
	if err != nil {
		return p, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// ListProducts returns active products matching the filter, cheapest first.
func (s *PostgresStore) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	var (
		q    strings.Builder
		args []any
	)
	q.WriteString(`SELECT ` + productColumns + ` FROM product WHERE active = TRUE`)
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		fmt.Fprintf(&q, " AND name ILIKE $%d", len(args))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		fmt.Fprintf(&q, " AND price >= $%d", len(args))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		fmt.Fprintf(&q, " AND price <= $%d", len(args))
	}
	q.WriteString(" ORDER BY price ASC, name ASC")

	rows, err := s.DB.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProduct applies the non-nil fields of u and returns the updated row.
func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, u models.ProductUpdate) (models.Product, error) {
	if u.Empty() {
		return models.Product{}, models.Validationf("no fields to update")
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Price != nil {
		set("price", *u.Price)
	}
	if u.StockQty != nil {
		set("stock_qty", *u.StockQty)
	}
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE product SET %s WHERE id = $%d RETURNING `+productColumns, strings.Join(sets, ", "), len(args))
	p, err := scanProduct(s.DB.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return p, models.NotFoundf("product %d not found", id)
	}
	if err != nil {
		return p, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SetProductActive(ctx context.Context, id int64, active bool) (models.Product, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx,
		`UPDATE product SET active = $1 WHERE id = $2 RETURNING `+productColumns,
		active, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return p, models.NotFoundf("product %d not found", id)
	}
	if err != nil {
		return p, fmt.Errorf("set product active: %w", err)
	}
	return p, nil
}

// LowStock returns products whose stock is strictly below threshold,
// lowest stock first.
func (s *PostgresStore) LowStock(ctx context.Context, threshold int) ([]models.LowStockProduct, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, stock_qty FROM product WHERE stock_qty < $1 ORDER BY stock_qty ASC, id ASC`,
		threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	defer rows.Close()

	out := []models.LowStockProduct{}
	for rows.Next() {
		var p models.LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.StockQty); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
