package schema

import (
	"context"
	"sync"
)

// CachingProvider memoizes another Provider. The evaluator issues the
// same subtype and property questions many times per evaluation;
// wrapping a fetch-backed provider keeps those calls O(1) after the
// first answer.
type CachingProvider struct {
	inner Provider

	mu        sync.RWMutex
	resources map[string]bool
	subtypes  map[[2]string]bool
	props     map[[2]string]PropertyInfo
	choices   map[[3]string]ChoiceResolution
}

// NewCachingProvider wraps inner with memoization.
func NewCachingProvider(inner Provider) *CachingProvider {
	return &CachingProvider{
		inner:     inner,
		resources: make(map[string]bool),
		subtypes:  make(map[[2]string]bool),
		props:     make(map[[2]string]PropertyInfo),
		choices:   make(map[[3]string]ChoiceResolution),
	}
}

func (c *CachingProvider) HasResourceType(ctx context.Context, name string) (bool, error) {
	c.mu.RLock()
	if v, ok := c.resources[name]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()
	v, err := c.inner.HasResourceType(ctx, name)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.resources[name] = v
	c.mu.Unlock()
	return v, nil
}

func (c *CachingProvider) IsPrimitiveType(ctx context.Context, name string) (bool, error) {
	return c.inner.IsPrimitiveType(ctx, name)
}

func (c *CachingProvider) IsComplexType(ctx context.Context, name string) (bool, error) {
	return c.inner.IsComplexType(ctx, name)
}

func (c *CachingProvider) PropertyInfo(ctx context.Context, typeName, property string) (PropertyInfo, error) {
	key := [2]string{typeName, property}
	c.mu.RLock()
	if v, ok := c.props[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()
	v, err := c.inner.PropertyInfo(ctx, typeName, property)
	if err != nil {
		return PropertyInfo{}, err
	}
	c.mu.Lock()
	c.props[key] = v
	c.mu.Unlock()
	return v, nil
}

func (c *CachingProvider) ResolveChoice(ctx context.Context, typeName, path, suffix string) (ChoiceResolution, error) {
	key := [3]string{typeName, path, suffix}
	c.mu.RLock()
	if v, ok := c.choices[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()
	v, err := c.inner.ResolveChoice(ctx, typeName, path, suffix)
	if err != nil {
		return ChoiceResolution{}, err
	}
	c.mu.Lock()
	c.choices[key] = v
	c.mu.Unlock()
	return v, nil
}

func (c *CachingProvider) IsSubtypeOf(ctx context.Context, child, parent string) (bool, error) {
	key := [2]string{child, parent}
	c.mu.RLock()
	if v, ok := c.subtypes[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()
	v, err := c.inner.IsSubtypeOf(ctx, child, parent)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.subtypes[key] = v
	c.mu.Unlock()
	return v, nil
}

func (c *CachingProvider) ResourceTypes(ctx context.Context) ([]string, error) {
	return c.inner.ResourceTypes(ctx)
}
