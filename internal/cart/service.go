package cart

import (
	"context"
	"log/slog"
)

// Service implements cart use cases for the authenticated user.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a cart Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Add puts a product into the user's cart. A product can be in a cart once.
func (s *Service) Add(ctx context.Context, userID, productID int64) error {
	if productID <= 0 {
		return ErrInvalidProductID
	}
	id, err := s.repo.AddItem(ctx, userID, productID)
	if err != nil {
		return err
	}
	s.logger.Info("product added to cart",
		slog.Int64("user_id", userID),
		slog.Int64("product_id", productID),
		slog.Int64("cart_item_id", id),
	)
	return nil
}

// List returns the user's cart. An empty cart is reported as ErrEmpty.
func (s *Service) List(ctx context.Context, userID int64) ([]Item, error) {
	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	return items, nil
}

// Remove deletes one item of the user's cart.
func (s *Service) Remove(ctx context.Context, userID, cartItemID int64) error {
	if err := s.repo.RemoveItem(ctx, userID, cartItemID); err != nil {
		return err
	}
	s.logger.Info("cart item removed", slog.Int64("user_id", userID), slog.Int64("cart_item_id", cartItemID))
	return nil
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	n, err := s.repo.Clear(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("cart cleared", slog.Int64("user_id", userID), slog.Int64("removed", n))
	return nil
}
