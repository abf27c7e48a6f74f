package cart

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/order-desk/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	repo   Repository
	cache  Cache
	sfg    singleflight.Group // one repository read per seller on a cache miss
	logger *zap.Logger
}

func NewService(repo Repository, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// GetCart returns the seller's cart; a seller without one gets an empty cart.
func (s *Service) GetCart(ctx context.Context, sellerID string) (*Cart, error) {
	v, err, _ := s.sfg.Do(sellerID, func() (interface{}, error) {
		c, err := s.cache.Get(ctx, sellerID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cart cache get failed", zap.String("seller_id", sellerID), zap.Error(err))
		}

		c, err = s.repo.GetCart(ctx, sellerID)
		if errors.Is(err, ErrCartNotFound) {
			now := time.Now()
			return &Cart{SellerID: sellerID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		go func(c *Cart) {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, sellerID, c); err != nil {
				s.logger.Warn("cart cache set failed", zap.String("seller_id", sellerID), zap.Error(err))
			}
		}(c)

		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

// Lines is GetCart reduced to a copy of its lines.
func (s *Service) Lines(ctx context.Context, sellerID string) ([]domain.CartLine, error) {
	c, err := s.GetCart(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return domain.CloneLines(c.Lines), nil
}

func (s *Service) AddItem(ctx context.Context, sellerID string, line domain.CartLine) error {
	if err := s.repo.AddItem(ctx, sellerID, line); err != nil {
		s.logger.Error("cart add item failed", zap.String("seller_id", sellerID), zap.Error(err))
		return err
	}
	s.invalidate(sellerID)
	return nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, sellerID string, key domain.LineKey, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, sellerID, key)
	}
	if err := s.repo.UpdateItemQuantity(ctx, sellerID, key, quantity); err != nil {
		s.logger.Error("cart update quantity failed", zap.String("seller_id", sellerID), zap.Error(err))
		return err
	}
	s.invalidate(sellerID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, sellerID string, key domain.LineKey) error {
	if err := s.repo.RemoveItem(ctx, sellerID, key); err != nil {
		s.logger.Error("cart remove item failed", zap.String("seller_id", sellerID), zap.Error(err))
		return err
	}
	s.invalidate(sellerID)
	return nil
}

// ClearCart deletes the seller's cart. A seller without a cart is not an error.
func (s *Service) ClearCart(ctx context.Context, sellerID string) error {
	err := s.repo.DeleteCart(ctx, sellerID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		s.logger.Error("cart delete failed", zap.String("seller_id", sellerID), zap.Error(err))
		return err
	}
	s.invalidate(sellerID)
	return nil
}

func (s *Service) invalidate(sellerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sellerID); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.String("seller_id", sellerID), zap.Error(err))
	}
}
