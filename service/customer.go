package service

import (
	"context"
	"net/mail"
	"strings"

	models "storefront/model"
)

// MinExpYear is the earliest card expiry year accepted.
const MinExpYear = 2024

func (s *Service) CreateCustomer(ctx context.Context, name, email string) (models.Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return models.Customer{}, models.Validationf("name is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return models.Customer{}, models.Validationf("invalid email %q", email)
	}
	return s.store.CreateCustomer(ctx, name, email)
}

func (s *Service) CreateCreditCard(ctx context.Context, c models.NewCreditCard) (int64, error) {
	if !c.Brand.Valid() {
		return 0, models.Validationf("unsupported brand %q", c.Brand)
	}
	if c.CustomerID <= 0 {
		return 0, models.Validationf("customer_id must be positive")
	}
	if !isDigits(c.Last4, 4) {
		return 0, models.Validationf("last4 must be exactly 4 digits")
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return 0, models.Validationf("exp_month must be between 1 and 12")
	}
	if c.ExpYear < MinExpYear {
		return 0, models.Validationf("exp_year must be >= %d", MinExpYear)
	}
	if strings.TrimSpace(c.Token) == "" {
		return 0, models.Validationf("token is required")
	}
	return s.store.CreateCreditCard(ctx, c)
}

func (s *Service) ListCreditCards(ctx context.Context, customerID int64) ([]models.CreditCard, error) {
	return s.store.ListCreditCards(ctx, customerID)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
