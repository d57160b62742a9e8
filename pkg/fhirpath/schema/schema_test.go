package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseProvider(t *testing.T) {
	ctx := context.Background()
	p := Base()

	t.Run("resource types", func(t *testing.T) {
		ok, err := p.HasResourceType(ctx, "Patient")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = p.HasResourceType(ctx, "NotAThing")
		require.NoError(t, err)
		assert.False(t, ok)

		names, err := p.ResourceTypes(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "Observation")
	})

	t.Run("primitive and complex types", func(t *testing.T) {
		ok, _ := p.IsPrimitiveType(ctx, "dateTime")
		assert.True(t, ok)
		ok, _ = p.IsComplexType(ctx, "HumanName")
		assert.True(t, ok)
		ok, _ = p.IsPrimitiveType(ctx, "HumanName")
		assert.False(t, ok)
	})

	t.Run("subtype walks the hierarchy", func(t *testing.T) {
		ok, _ := p.IsSubtypeOf(ctx, "Patient", "DomainResource")
		assert.True(t, ok)
		ok, _ = p.IsSubtypeOf(ctx, "Patient", "Resource")
		assert.True(t, ok)
		ok, _ = p.IsSubtypeOf(ctx, "Patient", "Patient")
		assert.True(t, ok)
		ok, _ = p.IsSubtypeOf(ctx, "Patient", "Observation")
		assert.False(t, ok)
		ok, _ = p.IsSubtypeOf(ctx, "Bundle", "DomainResource")
		assert.False(t, ok)
	})

	t.Run("choice elements resolve", func(t *testing.T) {
		info, err := p.PropertyInfo(ctx, "Observation", "value")
		require.NoError(t, err)
		assert.True(t, info.Exists)
		assert.True(t, info.IsChoice)

		res, err := p.ResolveChoice(ctx, "Observation", "value", "String")
		require.NoError(t, err)
		assert.True(t, res.Resolved)
		assert.Equal(t, "valueString", res.Property)
		assert.Equal(t, "string", res.Type)

		res, err = p.ResolveChoice(ctx, "Observation", "value", "Quantity")
		require.NoError(t, err)
		assert.True(t, res.Resolved)
		assert.Equal(t, "valueQuantity", res.Property)
		assert.Equal(t, "Quantity", res.Type)

		res, err = p.ResolveChoice(ctx, "Patient", "name", "String")
		require.NoError(t, err)
		assert.False(t, res.Resolved, "name is not a choice element")
	})

	t.Run("suffix helpers", func(t *testing.T) {
		suffix, ok := SuffixFromProperty("value", "valueString")
		assert.True(t, ok)
		assert.Equal(t, "String", suffix)

		_, ok = SuffixFromProperty("value", "valuestring")
		assert.False(t, ok)

		_, ok = SuffixFromProperty("value", "other")
		assert.False(t, ok)
	})
}

// countingProvider records how many calls reach the wrapped provider.
type countingProvider struct {
	Provider
	calls int
}

func (c *countingProvider) IsSubtypeOf(ctx context.Context, child, parent string) (bool, error) {
	c.calls++
	return c.Provider.IsSubtypeOf(ctx, child, parent)
}

func (c *countingProvider) PropertyInfo(ctx context.Context, typeName, property string) (PropertyInfo, error) {
	c.calls++
	return c.Provider.PropertyInfo(ctx, typeName, property)
}

func TestCachingProvider(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{Provider: Base()}
	cached := NewCachingProvider(inner)

	for i := 0; i < 5; i++ {
		ok, err := cached.IsSubtypeOf(ctx, "Patient", "Resource")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, inner.calls, "repeat subtype queries should hit the cache")

	for i := 0; i < 5; i++ {
		_, err := cached.PropertyInfo(ctx, "Observation", "value")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls, "repeat property queries should hit the cache")
}
