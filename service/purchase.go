package service

import (
	"context"
	"fmt"
	"log/slog"

	models "storefront/model"
)

// ErrDuplicateRequest is returned when an Idempotency-Key is held by a
// purchase that has not finished yet.
var ErrDuplicateRequest = fmt.Errorf("%w: duplicate request", models.ErrConflict)

// CreatePurchase validates the request and hands it to the store, which runs
// the whole purchase in one transaction.
//
// When an idempotency key is given and a guard is configured, the key is held
// while the purchase runs. A failed purchase releases it so a corrected retry
// can reuse it; a successful one binds it to the purchase id, and later calls
// with the same key return that purchase with replayed set.
func (s *Service) CreatePurchase(ctx context.Context, idempotencyKey string, customerID int64, items []models.ItemRequest) (models.Purchase, bool, error) {
	if customerID <= 0 {
		return models.Purchase{}, false, models.Validationf("customer_id must be positive")
	}
	if err := models.ValidateItems(items); err != nil {
		return models.Purchase{}, false, err
	}

	guarded := s.guard != nil && idempotencyKey != ""
	if guarded {
		ok, err := s.guard.Reserve(ctx, idempotencyKey)
		if err != nil {
			return models.Purchase{}, false, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return s.replay(ctx, idempotencyKey)
		}
	}

	p, err := s.store.CreatePurchase(ctx, customerID, items)
	if err != nil {
		if guarded {
			// release even if the request context is already gone
			if rerr := s.guard.Release(context.WithoutCancel(ctx), idempotencyKey); rerr != nil {
				return models.Purchase{}, false, fmt.Errorf("%w (release idempotency key: %v)", err, rerr)
			}
		}
		return models.Purchase{}, false, err
	}

	if guarded {
		if cerr := s.guard.Complete(context.WithoutCancel(ctx), idempotencyKey, p.ID); cerr != nil {
			// the purchase is committed; a retry with this key sees 409 until the key expires
			slog.WarnContext(ctx, "bind idempotency key", "purchase_id", p.ID, "err", cerr)
		}
	}
	return p, false, nil
}

// replay returns the purchase a completed key produced.
func (s *Service) replay(ctx context.Context, key string) (models.Purchase, bool, error) {
	id, err := s.guard.Lookup(ctx, key)
	if err != nil {
		return models.Purchase{}, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if id == 0 {
		return models.Purchase{}, false, ErrDuplicateRequest
	}
	d, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return models.Purchase{}, false, err
	}
	return d.Purchase, true, nil
}

func (s *Service) GetPurchase(ctx context.Context, id int64) (models.PurchaseDetail, error) {
	return s.store.GetPurchase(ctx, id)
}

func (s *Service) ListPurchases(ctx context.Context, customerID int64) ([]models.Purchase, error) {
	return s.store.ListPurchases(ctx, customerID)
}
