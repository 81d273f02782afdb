package random

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource float64

func (f fixedSource) Next() float64 { return float64(f) }

func TestGeneratorIsDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

func TestGeneratorRecurrence(t *testing.T) {
	g := New(1)
	// (1*9301 + 49297) % 233280 = 58598
	assert.InDelta(t, 58598.0/233280.0, g.Next(), 1e-12)
}

func TestNextStaysInUnitInterval(t *testing.T) {
	g := New(-17)
	for i := 0; i < 5000; i++ {
		v := g.Next()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestIntIsInclusive(t *testing.T) {
	g := New(7)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := g.Int(2, 5)
		require.GreaterOrEqual(t, v, 2)
		require.LessOrEqual(t, v, 5)
		seen[v] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 3, Int(g, 3, 3))
}

func TestFloatAndBool(t *testing.T) {
	assert.InDelta(t, 0.5, Float(fixedSource(0.5), 0, 1), 1e-12)
	assert.InDelta(t, 0.0, Float(fixedSource(0.5), -0.3, 0.3), 1e-12)
	assert.True(t, Bool(fixedSource(0.2), 0.3))
	assert.False(t, Bool(fixedSource(0.3), 0.3))
}

func TestChoiceEdgeCases(t *testing.T) {
	assert.Equal(t, "", Choice[string](New(1), nil))
	assert.Equal(t, "only", Choice(New(1), []string{"only"}))
	assert.Equal(t, "b", Choice(fixedSource(0.99), []string{"a", "b"}))
}

func TestShuffleIsPermutation(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	Shuffle(New(3), items)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, items)

	single := []int{9}
	Shuffle(New(3), single)
	assert.Equal(t, []int{9}, single)

	x, y := []int{1, 2, 3, 4, 5}, []int{1, 2, 3, 4, 5}
	Shuffle(New(11), x)
	Shuffle(New(11), y)
	assert.Equal(t, x, y)
}

func TestWeightedChoice(t *testing.T) {
	items := []Weighted[string]{{Item: "a", Weight: 1}, {Item: "b", Weight: 3}}
	assert.Equal(t, "a", WeightedChoice(fixedSource(0.1), items))
	assert.Equal(t, "b", WeightedChoice(fixedSource(0.5), items))

	zero := []Weighted[string]{{Item: "a"}, {Item: "b"}}
	assert.Equal(t, "b", WeightedChoice(fixedSource(0.4), zero))
	assert.Equal(t, "", WeightedChoice[string](fixedSource(0.4), nil))
}

func TestDeriveDependsOnDate(t *testing.T) {
	d1 := time.Date(2020, 1, 13, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Derive(42, d1), Derive(42, d1))
	assert.NotEqual(t, Derive(42, d1), Derive(42, d1.AddDate(0, 0, 7)))
}
