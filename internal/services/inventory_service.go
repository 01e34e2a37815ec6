package services

import (
	"context"
	"fmt"

	"fixops/internal/core"
	"fixops/internal/gateway"
)

// InventoryService manages the materials stock list.
type InventoryService struct {
	store gateway.InventoryStore
}

func NewInventoryService(store gateway.InventoryStore) *InventoryService {
	return &InventoryService{store: store}
}

func (s *InventoryService) Create(ctx context.Context, m core.Material) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateMaterial(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("save material: %w", err)
	}
	return id, nil
}

func (s *InventoryService) List(ctx context.Context) ([]core.Material, error) {
	return s.store.ListMaterials(ctx)
}

// Adjust applies a signed stock delta. The store rejects adjustments
// that would take stock negative.
func (s *InventoryService) Adjust(ctx context.Context, id int64, delta float64) (core.Material, error) {
	return s.store.AdjustStock(ctx, id, delta)
}
