package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	idmerr "github.com/depothub/traindepot/pkg/errors"
)

func TestListComponents(t *testing.T) {
	repo := NewInMemoryComponentRepository()
	SeedDemoComponents(repo)
	svc := NewComponentService(repo)

	components, err := svc.ListComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 6)

	// Ordered by type, then subtype
	assert.Equal(t, TypeCarriage, components[0].Type)
	assert.Equal(t, "I11", components[0].Subtype)
	assert.Equal(t, TypeTrainset, components[len(components)-1].Type)
}

func TestGetComponentByID(t *testing.T) {
	repo := NewInMemoryComponentRepository()
	svc := NewComponentService(repo)

	added := repo.AddComponent(TrainComponent{
		Type:        TypeLocomotive,
		Subtype:     "Type 77",
		Description: "Diesel-hydraulic shunting locomotive",
	})

	component, err := svc.GetComponentByID(context.Background(), added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Type 77", component.Subtype)

	_, err = svc.GetComponentByID(context.Background(), uuid.New())
	assert.True(t, idmerr.IsCode(err, idmerr.ErrCodeNotFound))
}
