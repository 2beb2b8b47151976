package store

import (
	"context"
	"fmt"

	models "storefront/model"
)

// CreateCustomer registers a customer. A duplicate email is reported as
// models.ErrConflict.
func (s *PostgresStore) CreateCustomer(ctx context.Context, name, email string) (models.Customer, error) {
	var c models.Customer
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO customer (name, email) VALUES ($1, $2) RETURNING id, name, email`,
		name, email,
	).Scan(&c.ID, &c.Name, &c.Email)
	if pgCode(err) == codeUniqueViolation {
		return c, models.Conflictf("customer with email %s already exists", email)
	}
	if err != nil {
		return c, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) CreateCreditCard(ctx context.Context, cc models.NewCreditCard) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO credit_card (customer_id, brand, last4, exp_month, exp_year, token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		cc.CustomerID, string(cc.Brand), cc.Last4, cc.ExpMonth, cc.ExpYear, cc.Token,
	).Scan(&id)
	if pgCode(err) == codeForeignKeyViolation {
		return 0, models.NotFoundf("customer %d not found", cc.CustomerID)
	}
	if err != nil {
		return 0, fmt.Errorf("insert credit card: %w", err)
	}
	return id, nil
}

// ListCreditCards returns a customer's card references, newest first.
// Tokens are not read back.
func (s *PostgresStore) ListCreditCards(ctx context.Context, customerID int64) ([]models.CreditCard, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, customer_id, brand, last4, exp_month, exp_year, created_at
		FROM credit_card
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query credit cards: %w", err)
	}
	defer rows.Close()

	out := []models.CreditCard{}
	for rows.Next() {
		var c models.CreditCard
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Brand, &c.Last4, &c.ExpMonth, &c.ExpYear, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
