package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/campuseats/canteen/internal/models"
	"github.com/google/uuid"
)

// CanteenStore is interface for interacting with canteen-related data
type CanteenStore interface {
	// GetCanteenByID returns canteen by id
	GetCanteenByID(ctx context.Context, id uuid.UUID) (*models.Canteen, error)
	// CreateCanteen inserts new canteen to database
	CreateCanteen(ctx context.Context, canteen *models.Canteen) (*models.Canteen, error)
	// SetAcceptingOrders opens or closes a canteen for new orders
	SetAcceptingOrders(ctx context.Context, id uuid.UUID, accepting bool) error
}

// CanteenService implements CanteenService interface
type CanteenService struct {
	repo CanteenStore
}

// NewCanteenService creates new CanteenService instance
func NewCanteenService(repo CanteenStore) *CanteenService {
	return &CanteenService{repo: repo}
}

// RegisterCanteen creates a new canteen, open for orders by default
func (cs *CanteenService) RegisterCanteen(ctx context.Context, name string) (*models.Canteen, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: canteen name is required", models.ErrValidation)
	}

	canteen := &models.Canteen{
		ID:              uuid.New(),
		Name:            name,
		AcceptingOrders: true,
	}

	return cs.repo.CreateCanteen(ctx, canteen)
}

// GetCanteen returns canteen by id
func (cs *CanteenService) GetCanteen(ctx context.Context, id uuid.UUID) (*models.Canteen, error) {
	return cs.repo.GetCanteenByID(ctx, id)
}

// SetAcceptingOrders opens or closes a canteen for new orders
func (cs *CanteenService) SetAcceptingOrders(ctx context.Context, id uuid.UUID, accepting bool) error {
	return cs.repo.SetAcceptingOrders(ctx, id, accepting)
}
