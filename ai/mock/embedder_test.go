package mock

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_Deterministic(t *testing.T) {
	a := Vector("pipeline configuration", 64)
	b := Vector("pipeline configuration", 64)
	c := Vector("something else", 64)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedder_ConcurrentCalls(t *testing.T) {
	m := NewMockEmbedderWithDimension(8)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.EmbedText(context.Background(), "x")
			assert.NoError(t, err)
			assert.Len(t, v, 8)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.CallCount())
	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockImageDescriber(t *testing.T) {
	d := NewMockImageDescriber()
	a, err := d.DescribeImage(context.Background(), "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	b, err := d.DescribeImage(context.Background(), "image/png", []byte{3, 2, 1})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "image/png")
	assert.Equal(t, 2, d.CallCount())
}
