package uistate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ai-agentic-browser/internal/geometry"
)

func TestUIElementHasBounds(t *testing.T) {
	noBounds := UIElement{}
	assert.False(t, noBounds.HasBounds())

	empty := UIElement{Bounds: &geometry.Bounds{}}
	assert.False(t, empty.HasBounds())

	withBounds := UIElement{Bounds: &geometry.Bounds{X1: 0, Y1: 0, X2: 10, Y2: 10}}
	assert.True(t, withBounds.HasBounds())
}

func TestActionDecisionConfidenceThreeState(t *testing.T) {
	undefined := ActionDecision{}
	assert.Nil(t, undefined.Confidence)
	assert.Equal(t, 0.0, undefined.ConfidenceOrZero())

	zero := 0.0
	parseFailure := ActionDecision{Confidence: &zero}
	assert.NotNil(t, parseFailure.Confidence)
	assert.Equal(t, 0.0, parseFailure.ConfidenceOrZero())

	explicit := 0.92
	valued := ActionDecision{Confidence: &explicit}
	assert.Equal(t, 0.92, valued.ConfidenceOrZero())
}

func TestSessionSealLifecycle(t *testing.T) {
	start := time.Now()
	s := &Session{ID: "s1", StartTime: start}
	assert.False(t, s.Sealed())
	assert.Equal(t, time.Duration(0), s.Duration())

	end := start.Add(2 * time.Second)
	s.Seal(end, true)

	assert.True(t, s.Sealed())
	assert.True(t, s.Success)
	assert.Equal(t, 2*time.Second, s.Duration())
}
