package grocery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"ies suffix", "Berries", "berry"},
		{"ves suffix", "Leaves", "leaf"},
		{"oes suffix", "Potatoes", "potato"},
		{"ches suffix", "Batches", "batch"},
		{"ses suffix", "Dresses", "dress"},
		{"plain s suffix", "Apples", "apple"},
		{"no trailing s", "Rice", "rice"},
		{"already singular", "tomato", "tomato"},
		{"whitespace trimmed", "  Milk  ", "milk"},
		{"uppercase folded", "EGGS", "egg"},
		{"non-plural trailing s", "hummus", "hummu"},
		{"only one rule fires", "groceries", "grocery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Berries", "Leaves", "Potatoes", "Apples", "Rice", "tomato", "milk", "EGGS"}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "normalizing %q twice changed the result", s)
	}
}

func TestMatchesNormalized(t *testing.T) {
	tests := []struct {
		name       string
		stored     string
		normalized string
		want       bool
	}{
		{"exact match", "tomato", "tomato", true},
		{"stored trailing s", "tomatos", "tomato", true},
		{"stored uppercase", "Tomato", "tomato", true},
		{"stored uppercase plural", "TOMATOS", "tomato", true},
		{"irregular plural does not match", "tomatoes", "tomato", false},
		{"different word", "potato", "tomato", false},
		{"candidate longer", "tomato", "tomatos", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesNormalized(tt.stored, tt.normalized))
		})
	}
}
