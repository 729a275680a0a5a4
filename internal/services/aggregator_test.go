package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"viewtrace-backend/internal/models"
)

func TestCompletionReached(t *testing.T) {
	tests := []struct {
		name        string
		furthestPos float64
		duration    float64
		threshold   float64
		expected    bool
	}{
		{"well below threshold", 30, 100, 90, false},
		{"just below threshold", 89.99, 100, 90, false},
		{"exactly at threshold", 90, 100, 90, true},
		{"above threshold", 95, 100, 90, true},
		{"full watch", 100, 100, 90, true},
		{"past reported duration", 101, 100, 90, true},
		{"custom threshold", 40, 100, 40, true},
		{"zero duration never completes", 90, 0, 90, false},
		{"negative duration never completes", 90, -5, 90, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session := &models.VideoSession{
				FurthestPos:     tc.furthestPos,
				DurationSeconds: tc.duration,
			}
			assert.Equal(t, tc.expected, completionReached(session, tc.threshold))
		})
	}
}

func TestDependencyError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &DependencyError{Message: "Analytics store unavailable", Err: cause}

	assert.Equal(t, "Analytics store unavailable", err.Error())
	assert.True(t, errors.Is(err, cause))

	var dep *DependencyError
	assert.True(t, errors.As(error(err), &dep))
}

func TestValidationError_Fields(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"videoId": "videoId is required"}}
	assert.Equal(t, "Validation error", err.Error())
	assert.Contains(t, err.Fields, "videoId")
}
