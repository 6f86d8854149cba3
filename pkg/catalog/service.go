package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	idmerr "github.com/depothub/traindepot/pkg/errors"
)

// ComponentService serves read-only access to the rolling stock catalog
type ComponentService struct {
	repo   ComponentRepository
	logger *slog.Logger
}

// ComponentServiceOption configures a ComponentService
type ComponentServiceOption func(*ComponentService)

// WithComponentLogger sets the service logger
func WithComponentLogger(logger *slog.Logger) ComponentServiceOption {
	return func(s *ComponentService) {
		s.logger = logger
	}
}

// NewComponentService creates a new ComponentService
func NewComponentService(repo ComponentRepository, opts ...ComponentServiceOption) *ComponentService {
	s := &ComponentService{
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListComponents returns the full catalog
func (s *ComponentService) ListComponents(ctx context.Context) ([]TrainComponent, error) {
	components, err := s.repo.ListComponents(ctx)
	if err != nil {
		return nil, idmerr.InternalWrap(err, "failed to list train components")
	}
	return components, nil
}

// GetComponentByID returns one catalog entry
func (s *ComponentService) GetComponentByID(ctx context.Context, id uuid.UUID) (TrainComponent, error) {
	component, err := s.repo.GetComponentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrComponentNotFound) {
			return TrainComponent{}, idmerr.NotFound("train component", id.String())
		}
		return TrainComponent{}, idmerr.InternalWrap(err, "failed to load train component")
	}
	return component, nil
}
