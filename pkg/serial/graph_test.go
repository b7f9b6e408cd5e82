package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefGraph(t *testing.T) {
	t.Run("targets populate first", func(t *testing.T) {
		// 0 -> 1 -> 2, 0 -> 2
		g := newRefGraph(3, []edge{{0, 1, false}, {1, 2, false}, {0, 2, false}})
		assert.Empty(t, g.detectCycles())
		order, err := g.topologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1, 0}, order)
	})

	t.Run("independent records keep index order", func(t *testing.T) {
		g := newRefGraph(4, nil)
		order, err := g.topologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, order)
	})

	t.Run("weak edge closes cycle", func(t *testing.T) {
		g := newRefGraph(2, []edge{{0, 1, false}, {1, 0, true}})
		assert.Empty(t, g.detectCycles())
		order, err := g.topologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0}, order)
	})

	t.Run("weak edge exempts the whole pair", func(t *testing.T) {
		g := newRefGraph(2, []edge{{0, 1, false}, {1, 0, false}, {1, 0, true}})
		assert.Empty(t, g.detectCycles())
		order, err := g.topologicalSort()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0}, order)
	})

	t.Run("strong cycle", func(t *testing.T) {
		g := newRefGraph(3, []edge{{0, 1, false}, {1, 2, false}, {2, 0, false}})
		cycles := g.detectCycles()
		require.Len(t, cycles, 1)
		assert.Equal(t, []int{0, 1, 2}, cycles[0])

		_, err := g.topologicalSort()
		assert.ErrorIs(t, err, ErrCircularStrongReference)
	})

	t.Run("strong self reference", func(t *testing.T) {
		g := newRefGraph(1, []edge{{0, 0, true}, {0, 0, false}})
		assert.Equal(t, [][]int{{0}}, g.detectCycles())
	})

	t.Run("weak self reference", func(t *testing.T) {
		g := newRefGraph(1, []edge{{0, 0, true}})
		assert.Empty(t, g.detectCycles())
	})
}

func TestFormatCycles(t *testing.T) {
	out := formatCycles([][]int{{0, 1}, {2}}, nil)
	assert.Equal(t, "  Cycle 1: #0 -> #1 -> #0\n  Cycle 2: #2 -> #2", out)
}
