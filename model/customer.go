package models

import "time"

type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CardBrand string

const (
	BrandVisa       CardBrand = "Visa"
	BrandMastercard CardBrand = "Mastercard"
	BrandAmex       CardBrand = "Amex"
	BrandDiscover   CardBrand = "Discover"
)

// Valid reports whether b is one of the accepted card brands.
func (b CardBrand) Valid() bool {
	switch b {
	case BrandVisa, BrandMastercard, BrandAmex, BrandDiscover:
		return true
	}
	return false
}

// CreditCard is a stored reference to a payment card. Token is an opaque
// value issued by the payment provider and is never a card number.
type CreditCard struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Brand      CardBrand `json:"brand"`
	Last4      string    `json:"last4"`
	ExpMonth   int       `json:"exp_month"`
	ExpYear    int       `json:"exp_year"`
	Token      string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewCreditCard struct {
	CustomerID int64
	Brand      CardBrand
	Last4      string
	ExpMonth   int
	ExpYear    int
	Token      string
}
