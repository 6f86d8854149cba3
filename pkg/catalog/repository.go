package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrComponentNotFound is returned when no component matches the id
var ErrComponentNotFound = errors.New("train component not found")

// ComponentType classifies rolling stock
type ComponentType string

const (
	TypeLocomotive ComponentType = "LOCOMOTIVE"
	TypeCarriage   ComponentType = "CARRIAGE"
	TypeTrainset   ComponentType = "TRAINSET"
)

// TrainComponent is a catalog record of one piece of rolling stock
type TrainComponent struct {
	ID               uuid.UUID
	Type             ComponentType
	Subtype          string
	Image            string
	DescriptionImage string
	Description      string
}

// ComponentRepository provides read access to the catalog
type ComponentRepository interface {
	ListComponents(ctx context.Context) ([]TrainComponent, error)
	GetComponentByID(ctx context.Context, id uuid.UUID) (TrainComponent, error)
}
