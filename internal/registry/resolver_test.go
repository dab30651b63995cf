package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/registry"
)

func TestResolver_FiltersInactiveTokens(t *testing.T) {
	repo := registry.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, "d1", &registry.RegisteredToken{Token: "tA", Active: true}))
	require.NoError(t, repo.Register(ctx, "d1", &registry.RegisteredToken{Token: "tB", Active: false}))

	resolver := registry.NewResolver(repo, zerolog.Nop())

	tokens, err := resolver.Resolve(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tA"}, tokens)
}

func TestResolver_UnknownDeviceResolvesEmpty(t *testing.T) {
	resolver := registry.NewResolver(registry.NewInMemoryRepository(), zerolog.Nop())

	tokens, err := resolver.Resolve(context.Background(), "never-registered")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestResolver_AllInactiveResolvesEmpty(t *testing.T) {
	repo := registry.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, "d1", &registry.RegisteredToken{Token: "tA", Active: false}))

	resolver := registry.NewResolver(repo, zerolog.Nop())

	tokens, err := resolver.Resolve(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

type failingTokenRepo struct {
	registry.Repository
}

func (f *failingTokenRepo) ListByDevice(context.Context, string) ([]*registry.RegisteredToken, error) {
	return nil, errors.New("store unavailable")
}

func TestResolver_PropagatesRepositoryError(t *testing.T) {
	resolver := registry.NewResolver(&failingTokenRepo{}, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), "d1")
	assert.Error(t, err)
}
