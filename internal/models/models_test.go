package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentStart(t *testing.T) {
	tests := []struct {
		position float64
		expected int
	}{
		{0, 0},
		{4.5, 0},
		{9.999, 0},
		{10, 10},
		{15.2, 10},
		{19.99, 10},
		{20, 20},
		{123.7, 120},
		{-3, 0},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, SegmentStart(tc.position), "position %v", tc.position)
	}
}

func TestSegmentEnd(t *testing.T) {
	assert.Equal(t, 10, SegmentEnd(0))
	assert.Equal(t, 10, SegmentEnd(9.5))
	assert.Equal(t, 20, SegmentEnd(10))
	assert.Equal(t, 130, SegmentEnd(123.7))
}

func TestCompletionPercentage(t *testing.T) {
	s := &VideoSession{FurthestPos: 45, DurationSeconds: 90}
	assert.InDelta(t, 50.0, s.CompletionPercentage(), 0.001)

	s = &VideoSession{FurthestPos: 90, DurationSeconds: 90}
	assert.InDelta(t, 100.0, s.CompletionPercentage(), 0.001)

	// Unknown duration never divides by zero.
	s = &VideoSession{FurthestPos: 45, DurationSeconds: 0}
	assert.Equal(t, 0.0, s.CompletionPercentage())

	s = &VideoSession{FurthestPos: 45, DurationSeconds: -1}
	assert.Equal(t, 0.0, s.CompletionPercentage())
}

func TestEngagementTier(t *testing.T) {
	tests := []struct {
		rate     float64
		expected string
	}{
		{100, EngagementTierHigh},
		{75.1, EngagementTierHigh},
		{75, EngagementTierMedium}, // boundary belongs to medium
		{50, EngagementTierMedium}, // boundary belongs to medium
		{49.9, EngagementTierLow},
		{0, EngagementTierLow},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, EngagementTier(tc.rate), "rate %v", tc.rate)
	}
}
