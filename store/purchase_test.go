package store

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	models "storefront/model"
)

var (
	lockedCols   = []string{"id", "price", "stock_qty"}
	purchaseCols = []string{"id", "customer_id", "purchased_at", "total_amount", "status"}
)

func TestCreatePurchase_EmptyItemsNoTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.CreatePurchase(context.Background(), 1, nil)
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	// no Begin was expected; any db call would fail here
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected db calls: %v", err)
	}
}

func TestCreatePurchase_Success(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	// A: 10.00 x5 in stock, B: 3.50 x2 in stock; request B first to check request order is kept
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockProductsSQL)).
		WithArgs(pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows(lockedCols).
			AddRow(int64(1), "10.00", 5).
			AddRow(int64(2), "3.50", 2))
	mock.ExpectQuery(regexp.QuoteMeta(insertPurchaseSQL)).
		WithArgs(int64(42), decimal.RequireFromString("27.00")).
		WillReturnRows(sqlmock.NewRows(purchaseCols).AddRow(int64(7), int64(42), now, "27.00", models.PurchaseStatusPlaced))
	mock.ExpectPrepare(regexp.QuoteMeta(insertItemSQL))
	mock.ExpectPrepare(regexp.QuoteMeta(decrementStockSQL))
	mock.ExpectExec(regexp.QuoteMeta(insertItemSQL)).
		WithArgs(int64(7), int64(2), 2, decimal.RequireFromString("3.50")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(decrementStockSQL)).
		WithArgs(2, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertItemSQL)).
		WithArgs(int64(7), int64(1), 2, decimal.RequireFromString("10.00")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta(decrementStockSQL)).
		WithArgs(2, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := s.CreatePurchase(context.Background(), 42, []models.ItemRequest{
		{ProductID: 2, Qty: 2},
		{ProductID: 1, Qty: 2},
	})
	if err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}
	if p.ID != 7 || p.CustomerID != 42 || p.Status != models.PurchaseStatusPlaced {
		t.Fatalf("unexpected purchase: %+v", p)
	}
	if !p.TotalAmount.Equal(decimal.RequireFromString("27")) {
		t.Fatalf("expected total 27.00, got %s", p.TotalAmount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePurchase_InsufficientStockRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockProductsSQL)).
		WithArgs(pq.Array([]int64{3})).
		WillReturnRows(sqlmock.NewRows(lockedCols).AddRow(int64(3), "3.50", 0))
	mock.ExpectRollback()

	_, err := s.CreatePurchase(context.Background(), 1, []models.ItemRequest{{ProductID: 3, Qty: 1}})
	var perr *models.ProductError
	if !errors.As(err, &perr) || perr.ProductID != 3 || perr.Reason != models.ReasonInsufficientStock {
		t.Fatalf("expected insufficient stock for product 3, got %v", err)
	}
	if !errors.Is(err, models.ErrBusinessRule) || errors.Is(err, models.ErrTransaction) {
		t.Fatalf("expected business rule error only, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePurchase_InactiveProductRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	// product 5 is inactive, so the locking read only returns 4
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockProductsSQL)).
		WithArgs(pq.Array([]int64{4, 5})).
		WillReturnRows(sqlmock.NewRows(lockedCols).AddRow(int64(4), "1.00", 10))
	mock.ExpectRollback()

	_, err := s.CreatePurchase(context.Background(), 1, []models.ItemRequest{
		{ProductID: 5, Qty: 1},
		{ProductID: 4, Qty: 1},
	})
	var perr *models.ProductError
	if !errors.As(err, &perr) || perr.ProductID != 5 || perr.Reason != models.ReasonUnavailable {
		t.Fatalf("expected product 5 unavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePurchase_StoreFailureIsTransactional(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockProductsSQL)).
		WithArgs(pq.Array([]int64{1})).
		WillReturnRows(sqlmock.NewRows(lockedCols).AddRow(int64(1), "2.00", 3))
	mock.ExpectQuery(regexp.QuoteMeta(insertPurchaseSQL)).
		WithArgs(int64(9), decimal.RequireFromString("4.00")).
		WillReturnRows(sqlmock.NewRows(purchaseCols).AddRow(int64(1), int64(9), time.Now(), "4.00", models.PurchaseStatusPlaced))
	mock.ExpectPrepare(regexp.QuoteMeta(insertItemSQL))
	mock.ExpectPrepare(regexp.QuoteMeta(decrementStockSQL))
	mock.ExpectExec(regexp.QuoteMeta(insertItemSQL)).
		WithArgs(int64(1), int64(1), 2, decimal.RequireFromString("2.00")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.CreatePurchase(context.Background(), 9, []models.ItemRequest{{ProductID: 1, Qty: 2}})
	if !errors.Is(err, models.ErrTransaction) {
		t.Fatalf("expected ErrTransaction, got %v", err)
	}
	if errors.Is(err, models.ErrBusinessRule) {
		t.Fatalf("store failure must not look like a business rule: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePurchase_LockFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockProductsSQL)).
		WithArgs(pq.Array([]int64{1})).
		WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()

	_, err := s.CreatePurchase(context.Background(), 9, []models.ItemRequest{{ProductID: 1, Qty: 1}})
	if !errors.Is(err, models.ErrTransaction) {
		t.Fatalf("expected ErrTransaction, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPriceItems(t *testing.T) {
	locked := map[int64]lockedProduct{
		1: {price: decimal.RequireFromString("0.10"), stock: 5},
		2: {price: decimal.RequireFromString("19.99"), stock: 3},
	}

	total, err := priceItems([]models.ItemRequest{{ProductID: 1, Qty: 3}, {ProductID: 2, Qty: 3}}, locked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0.10*3 + 19.99*3 must be exact, float64 would drift
	if !total.Equal(decimal.RequireFromString("60.27")) {
		t.Fatalf("expected 60.27, got %s", total)
	}

	// repeated product is checked against the combined quantity
	_, err = priceItems([]models.ItemRequest{{ProductID: 1, Qty: 3}, {ProductID: 1, Qty: 3}}, locked)
	var perr *models.ProductError
	if !errors.As(err, &perr) || perr.ProductID != 1 || perr.Reason != models.ReasonInsufficientStock {
		t.Fatalf("expected insufficient stock for repeated product, got %v", err)
	}

	// a huge second quantity must not wrap the running sum past the stock check
	_, err = priceItems([]models.ItemRequest{{ProductID: 1, Qty: 1}, {ProductID: 1, Qty: math.MaxInt}}, locked)
	if !errors.As(err, &perr) || perr.ProductID != 1 || perr.Reason != models.ReasonInsufficientStock {
		t.Fatalf("expected insufficient stock for oversized quantity, got %v", err)
	}
}

func TestDistinctProductIDs(t *testing.T) {
	got := distinctProductIDs([]models.ItemRequest{{ProductID: 9}, {ProductID: 2}, {ProductID: 9}, {ProductID: 5}})
	want := []int64{2, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGetPurchase_ItemsAndNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, customer_id, purchased_at, total_amount, status FROM purchase WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(purchaseCols).AddRow(int64(7), int64(42), now, "27.00", models.PurchaseStatusPlaced))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM purchase_item pi`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "qty", "unit_price"}).
			AddRow(int64(1), "Apple", 2, "10.00").
			AddRow(int64(2), "Banana", 2, "3.50"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM purchase WHERE id = $1`)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(purchaseCols))

	d, err := s.GetPurchase(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetPurchase failed: %v", err)
	}
	if len(d.Items) != 2 || d.Items[0].ProductName != "Apple" || !d.Items[1].UnitPrice.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("unexpected detail: %+v", d)
	}

	if _, err := s.GetPurchase(context.Background(), 8); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListPurchases(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY purchased_at DESC, id DESC`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(purchaseCols).
			AddRow(int64(8), int64(42), now, "1.00", models.PurchaseStatusPlaced).
			AddRow(int64(7), int64(42), now.Add(-time.Hour), "27.00", models.PurchaseStatusPlaced))

	got, err := s.ListPurchases(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListPurchases failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != 8 {
		t.Fatalf("unexpected purchases: %+v", got)
	}
}
