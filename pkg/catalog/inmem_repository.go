package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryComponentRepository implements ComponentRepository in memory.
// Useful for tests and demo setups without a database.
type InMemoryComponentRepository struct {
	mu         sync.RWMutex
	components map[uuid.UUID]TrainComponent
}

// NewInMemoryComponentRepository creates an empty in-memory repository
func NewInMemoryComponentRepository() *InMemoryComponentRepository {
	return &InMemoryComponentRepository{
		components: make(map[uuid.UUID]TrainComponent),
	}
}

// AddComponent stores a component, assigning an id when missing
func (r *InMemoryComponentRepository) AddComponent(component TrainComponent) TrainComponent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}
	r.components[component.ID] = component
	return component
}

// ListComponents implements ComponentRepository.ListComponents
func (r *InMemoryComponentRepository) ListComponents(ctx context.Context) ([]TrainComponent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TrainComponent, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Subtype < out[j].Subtype
	})
	return out, nil
}

// GetComponentByID implements ComponentRepository.GetComponentByID
func (r *InMemoryComponentRepository) GetComponentByID(ctx context.Context, id uuid.UUID) (TrainComponent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	component, ok := r.components[id]
	if !ok {
		return TrainComponent{}, ErrComponentNotFound
	}
	return component, nil
}

// SeedDemoComponents fills the repository with a small rolling stock
// catalog for demo and test environments.
func SeedDemoComponents(repo *InMemoryComponentRepository) {
	demo := []TrainComponent{
		{
			Type:        TypeLocomotive,
			Subtype:     "Type 13",
			Description: "Electric locomotive built by Alstom, in service since 1997, numbered 1301-1360.",
		},
		{
			Type:        TypeLocomotive,
			Subtype:     "Type 18",
			Description: "Electric passenger locomotive from the ES 2007 family, 120 units built between 2009 and 2012.",
		},
		{
			Type:        TypeLocomotive,
			Subtype:     "Type 77",
			Description: "Diesel-hydraulic shunting locomotive, 170 units delivered for yard and freight work.",
		},
		{
			Type:        TypeCarriage,
			Subtype:     "I11",
			Description: "Intercity carriage in service since 1995, built by BN in Bruges.",
		},
		{
			Type:        TypeCarriage,
			Subtype:     "M6",
			Description: "Double-deck carriage in service since 2001, built by Bombardier and Alstom.",
		},
		{
			Type:        TypeTrainset,
			Subtype:     "MS08",
			Description: "Desiro ML electric multiple unit, 305 units delivered by Siemens between 2011 and 2016.",
		},
	}
	for _, c := range demo {
		repo.AddComponent(c)
	}
}
