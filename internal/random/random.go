// Package random provides the seeded sequence generator that drives every
// stochastic decision of the simulator. Output depends only on the seed and
// the order of calls.
package random

import (
	"math"
	"time"
)

const (
	multiplier = 9301
	increment  = 49297
	modulus    = 233280
)

// Source yields floats in [0,1).
type Source interface {
	Next() float64
}

// Generator is a linear congruential generator. It is not safe for concurrent use.
type Generator struct {
	state int64
}

// New returns a generator seeded with seed.
func New(seed int64) *Generator {
	state := seed % modulus
	if state < 0 {
		state += modulus
	}
	return &Generator{state: state}
}

// Derive returns the seed of the tick that starts at the given simulated date.
func Derive(seed int64, date time.Time) int64 {
	days := date.UTC().Unix() / int64(24*time.Hour/time.Second)
	return seed*31 + days
}

// Next advances the recurrence and returns a float in [0,1).
func (g *Generator) Next() float64 {
	g.state = (g.state*multiplier + increment) % modulus
	return float64(g.state) / modulus
}

// Int returns an integer in [min, max].
func Int(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + int(math.Floor(src.Next()*float64(max-min+1)))
}

// Float returns a float in [min, max).
func Float(src Source, min, max float64) float64 {
	return min + src.Next()*(max-min)
}

// Bool returns true with probability p.
func Bool(src Source, p float64) bool {
	return src.Next() < p
}

// Int is a convenience wrapper for random.Int on the generator.
func (g *Generator) Int(min, max int) int { return Int(g, min, max) }

// Float is a convenience wrapper for random.Float on the generator.
func (g *Generator) Float(min, max float64) float64 { return Float(g, min, max) }

// Bool is a convenience wrapper for random.Bool on the generator.
func (g *Generator) Bool(p float64) bool { return Bool(g, p) }

// Choice picks one item uniformly. An empty slice yields the zero value.
func Choice[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	idx := int(math.Floor(src.Next() * float64(len(items))))
	if idx >= len(items) {
		idx = len(items) - 1
	}
	return items[idx]
}

// Shuffle permutes items in place with Fisher–Yates, walking from the end.
func Shuffle[T any](src Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := int(math.Floor(src.Next() * float64(i+1)))
		items[i], items[j] = items[j], items[i]
	}
}

// Weighted pairs an item with its relative weight.
type Weighted[T any] struct {
	Item   T
	Weight float64
}

// WeightedChoice picks an item proportionally to its weight. When the walk
// never reaches the target (zero total weight, rounding) the last item wins.
func WeightedChoice[T any](src Source, items []Weighted[T]) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	total := 0.0
	for _, it := range items {
		total += it.Weight
	}
	target := src.Next() * total
	for _, it := range items {
		target -= it.Weight
		if target < 0 {
			return it.Item
		}
	}
	return items[len(items)-1].Item
}
