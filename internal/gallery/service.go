// Package gallery owns the mutable state of the gallery: the display order of
// assets and the linked-resource parameters. Both live in process memory
// only and reset on restart. Assets themselves live in the injected store.
package gallery

import (
	"context"
	"fmt"
	"io"
	"sync"

	"image-gallery/internal/assets"
)

// DefaultListMax caps how many assets a single listing fetches.
const DefaultListMax = 500

// Config for NewService. Zero values select the defaults.
type Config struct {
	ListMax int
	Params  *Params
}

// Service is the gallery core shared by all request handlers.
type Service struct {
	store   assets.Store
	order   *Order
	listMax int

	mu     sync.RWMutex
	params Params
}

// NewService creates a service around store.
func NewService(store assets.Store, cfg Config) *Service {
	s := &Service{
		store:   store,
		order:   &Order{},
		listMax: cfg.ListMax,
		params:  DefaultParams,
	}
	if s.listMax <= 0 {
		s.listMax = DefaultListMax
	}
	if cfg.Params != nil {
		s.params = *cfg.Params
	}
	return s
}

// Order exposes the order list, mostly for tests and diagnostics.
func (s *Service) Order() *Order {
	return s.order
}

// Images returns the current store listing in display order.
func (s *Service) Images(ctx context.Context) ([]assets.Asset, error) {
	listing, err := s.store.List(ctx, s.listMax)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return s.order.Reconcile(listing), nil
}

// Upload stores a new image and appends it to the order.
func (s *Service) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (assets.Asset, error) {
	a, err := s.store.Upload(ctx, r, size, contentType)
	if err != nil {
		return assets.Asset{}, fmt.Errorf("upload image: %w", err)
	}
	s.order.Append(a.PublicID)
	return a, nil
}

// Delete removes the image from the store and then from the order. When the
// store call fails the order is left untouched.
func (s *Service) Delete(ctx context.Context, publicID string) error {
	if err := ValidatePublicID(publicID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, publicID); err != nil {
		return fmt.Errorf("delete image %s: %w", publicID, err)
	}
	s.order.Remove(publicID)
	return nil
}

// Move repositions one image in the display order.
func (s *Service) Move(from, to int) error {
	return s.order.Move(from, to)
}

// Params returns the current parameters.
func (s *Service) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// UpdateParams validates and replaces the parameters. On error the previous
// values stay in effect.
func (s *Service) UpdateParams(p Params) (Params, error) {
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	return p, nil
}
