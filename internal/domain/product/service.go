package product

import (
	"context"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/pkg/logger"
)

// Service provides product master operations.
type Service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create registers a new product. The system code must be unique.
func (s *Service) Create(ctx context.Context, p *Product) (*Product, error) {
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, p.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewDuplicate("product", "code", p.Code)
	}

	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	if actor := security.GetActor(ctx); actor != nil {
		p.CreatedBy = actor.Name
		p.UpdatedBy = actor.Name
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("product created",
		"product_id", p.ID, "code", p.Code)

	return p, nil
}

// Update modifies an existing product. The system code is immutable:
// the stored code always wins over whatever the caller sends.
func (s *Service) Update(ctx context.Context, p *Product) (*Product, error) {
	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	p.Code = current.Code
	p.CreatedAt = current.CreatedAt
	p.CreatedBy = current.CreatedBy
	p.Version = current.Version

	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	if actor := security.GetActor(ctx); actor != nil {
		p.UpdatedBy = actor.Name
	}
	p.Touch()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// SetStatus changes the lifecycle status. Products are never deleted;
// discontinuing keeps the transaction history intact.
func (s *Service) SetStatus(ctx context.Context, productID id.ID, status Status) (*Product, error) {
	if !isValidStatus(status) {
		return nil, apperror.NewValidation("invalid status").
			WithDetail("value", string(status))
	}

	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	p.Status = status
	if actor := security.GetActor(ctx); actor != nil {
		p.UpdatedBy = actor.Name
	}
	p.Touch()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("product status changed",
		"product_id", p.ID, "status", status)

	return p, nil
}

func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Product, error) {
	if code == "" {
		return nil, apperror.NewValidation("code is required")
	}
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) GetByIDs(ctx context.Context, ids []id.ID) ([]*Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.GetByIDs(ctx, ids)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Product, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}
