package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "deploy", "deploy", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "deploy", "", 0.0},
		{"disjoint", "abc", "xyz", 0.0},
		// 2 * len("bcd") / (4 + 4)
		{"overlapping", "abcd", "bcde", 0.75},
		// 2 * len("deploy") / (20 + 6)
		{"keyword inside sentence", "deploy to production", "deploy", 12.0 / 26.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	assert.InDelta(t, similarity("abcd", "bcde"), similarity("bcde", "abcd"), 1e-9)
}
