package fhirpath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Patient.name", "Patient.name"},
		{"Patient . name", "Patient.name"},
		{"Patient  .  name [ 0 ]", "Patient.name[0]"},
		{"name.where( use = 'official' )", "name.where(use='official')"},
		{"a and b", "a and b"},
		{"1 + 2", "1+2"},
		{"'a  b'", "'a  b'"}, // string content untouched
		{"5 'mg'", "5 'mg'"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeKey(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	inputs := []string{
		"Patient.name.given",
		"name . where ( use = 'official' ) . family",
		"( 1 | 2 )  .  count ( )",
		"value is Quantity and value < 5 'mg'",
		"a  and  b  or  c",
	}
	for _, in := range inputs {
		once := NormalizeKey(in)
		twice := NormalizeKey(once)
		assert.Equal(t, once, twice, "normalize not idempotent for %q", in)
	}
}

func TestExpressionCache(t *testing.T) {
	t.Run("hit and miss accounting", func(t *testing.T) {
		c := NewExpressionCache(10)
		_, err := c.Get("name.given")
		require.NoError(t, err)
		_, err = c.Get("name.given")
		require.NoError(t, err)
		stats := c.Stats()
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, 1, stats.Size)
	})

	t.Run("spelling variants share an entry", func(t *testing.T) {
		c := NewExpressionCache(10)
		_, err := c.Get("name . given")
		require.NoError(t, err)
		_, err = c.Get("name.given")
		require.NoError(t, err)
		assert.Equal(t, 1, c.Size())
		assert.Equal(t, int64(1), c.Stats().Hits)
	})

	t.Run("lru eviction", func(t *testing.T) {
		c := NewExpressionCache(2)
		_, _ = c.Get("a")
		_, _ = c.Get("b")
		_, _ = c.Get("a") // refresh a
		_, _ = c.Get("c") // evicts b
		assert.Equal(t, 2, c.Size())
		assert.Equal(t, int64(1), c.Stats().Evictions)

		_, _ = c.Get("a")
		assert.Equal(t, int64(2), c.Stats().Hits, "a should still be cached")
	})

	t.Run("ttl expiry recompiles", func(t *testing.T) {
		c := NewExpressionCacheTTL(10, time.Millisecond)
		_, err := c.Get("name")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = c.Get("name")
		require.NoError(t, err)
		assert.Equal(t, int64(2), c.Stats().Misses)
	})

	t.Run("compile errors are not cached", func(t *testing.T) {
		c := NewExpressionCache(10)
		_, err := c.Get("1 + + ]")
		require.Error(t, err)
		assert.Equal(t, 0, c.Size())
	})

	t.Run("clear resets", func(t *testing.T) {
		c := NewExpressionCache(10)
		_, _ = c.Get("a")
		c.Clear()
		assert.Equal(t, 0, c.Size())
		assert.Equal(t, int64(0), c.Stats().Misses)
	})

	t.Run("concurrent readers", func(t *testing.T) {
		c := NewExpressionCache(10)
		done := make(chan struct{})
		for i := 0; i < 8; i++ {
			go func() {
				defer func() { done <- struct{}{} }()
				for j := 0; j < 100; j++ {
					if _, err := c.Get("Patient.name.given"); err != nil {
						t.Error(err)
						return
					}
				}
			}()
		}
		for i := 0; i < 8; i++ {
			<-done
		}
		assert.Equal(t, 1, c.Size())
	})
}
