package agenterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesIs(t *testing.T) {
	err := Wrap(ErrTransport, "GET /source failed")
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, ErrParse))
}

func TestWrapFormatsMessage(t *testing.T) {
	err := Wrap(ErrGesture, "no element or coordinates for action %q", "tap")
	assert.Contains(t, err.Error(), `no element or coordinates for action "tap"`)
	assert.Contains(t, err.Error(), ErrGesture.Error())
}

func TestWrapWithoutArgs(t *testing.T) {
	err := Wrap(ErrSession, "no open session")
	assert.Equal(t, "no open session: session error", err.Error())
}

func TestSentinelsAreDistinct(t *testing.T) {
	kinds := []error{ErrTransport, ErrParse, ErrResolution, ErrConfidence, ErrGesture, ErrSession}
	for i, a := range kinds {
		for j, b := range kinds {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}
