package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/internal/device"
	"github.com/ai-agentic-browser/internal/dispatcher"
	"github.com/ai-agentic-browser/internal/engine"
	"github.com/ai-agentic-browser/internal/observer"
)

const sampleXML = `<hierarchy>
  <node class="android.widget.Button" text="Submit" resource-id="com.app:id/submit"
        bounds="[10,20][110,70]" clickable="true" visible-to-user="true"/>
</hierarchy>`

type fakeSession struct {
	pageSource string
	window     device.WindowSize
	taps       []struct{ x, y int }
}

func (f *fakeSession) GetPageSource(ctx context.Context) (string, error) { return f.pageSource, nil }
func (f *fakeSession) GetCurrentActivity(ctx context.Context) (string, error) {
	return ".MainActivity", nil
}
func (f *fakeSession) GetWindowSize(ctx context.Context) (device.WindowSize, error) {
	return f.window, nil
}
func (f *fakeSession) TakeScreenshot(ctx context.Context) (string, error) { return "", nil }
func (f *fakeSession) Tap(ctx context.Context, x, y int) error {
	f.taps = append(f.taps, struct{ x, y int }{x, y})
	return nil
}
func (f *fakeSession) LongPress(ctx context.Context, x, y, durationMS int) error { return nil }
func (f *fakeSession) SwipeGesture(ctx context.Context, points []device.TouchPoint) error {
	return nil
}
func (f *fakeSession) MultiTouch(ctx context.Context, fingers [][]device.TouchPoint) error {
	return nil
}
func (f *fakeSession) TypeKeys(ctx context.Context, chars []string) error { return nil }
func (f *fakeSession) Pause(ctx context.Context, ms int) error            { return nil }
func (f *fakeSession) Capabilities(ctx context.Context) (device.Capabilities, error) {
	return device.Capabilities{PlatformName: "Android"}, nil
}

type fakeAdapter struct {
	query           func(ctx context.Context, prompt, systemPrompt string) (string, error)
	queryWithVision func(ctx context.Context, prompt, imageBase64, systemPrompt string) (string, error)
}

func (f *fakeAdapter) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return f.query(ctx, prompt, systemPrompt)
}
func (f *fakeAdapter) QueryWithVision(ctx context.Context, prompt, imageBase64, systemPrompt string) (string, error) {
	return f.queryWithVision(ctx, prompt, imageBase64, systemPrompt)
}

func newController(t *testing.T, fake *fakeSession, adapter *fakeAdapter) *Controller {
	t.Helper()
	obs := observer.New(fake)
	eng := engine.New(obs, adapter, engine.DefaultConfig(), nil)
	disp := dispatcher.New(fake, nil, "")
	return New(eng, disp, fake, "", nil)
}

func TestExecuteBeforeStartSessionFails(t *testing.T) {
	fake := &fakeSession{pageSource: sampleXML, window: device.WindowSize{Width: 360, Height: 800}}
	ctrl := newController(t, fake, &fakeAdapter{})

	_, err := ctrl.Execute(context.Background(), "tap submit")
	assert.Error(t, err)
}

func TestStartSessionTwiceWithoutStopFails(t *testing.T) {
	fake := &fakeSession{pageSource: sampleXML, window: device.WindowSize{Width: 360, Height: 800}}
	ctrl := newController(t, fake, &fakeAdapter{})

	_, err := ctrl.StartSession(context.Background(), "a task")
	require.NoError(t, err)

	_, err = ctrl.StartSession(context.Background(), "another task")
	assert.Error(t, err)
}

func TestExecuteRecordsSuccessfulStepAndDispatchesTap(t *testing.T) {
	fake := &fakeSession{pageSource: sampleXML, window: device.WindowSize{Width: 360, Height: 800}}
	adapter := &fakeAdapter{
		query: func(ctx context.Context, p, sp string) (string, error) {
			return `{"action":"click","element_id":"1","reasoning":"matches Submit","confidence":0.95}`, nil
		},
	}
	ctrl := newController(t, fake, adapter)

	_, err := ctrl.StartSession(context.Background(), "tap submit")
	require.NoError(t, err)

	success, err := ctrl.Execute(context.Background(), "tap submit")
	require.NoError(t, err)
	assert.True(t, success)

	require.Len(t, fake.taps, 1)
	assert.Equal(t, 60, fake.taps[0].x) // bounds [10,20][110,70] center x
	assert.Equal(t, 45, fake.taps[0].y)

	state, err := ctrl.GetCurrentState()
	require.NoError(t, err)
	require.Len(t, state.Steps, 1)
	assert.True(t, state.Steps[0].Success)
	assert.Equal(t, "1", state.Steps[0].TargetElementID)
}

func TestHistoryLinesReflectReasoningAcrossSteps(t *testing.T) {
	fake := &fakeSession{pageSource: sampleXML, window: device.WindowSize{Width: 360, Height: 800}}
	var seenPrompt string
	callCount := 0
	adapter := &fakeAdapter{
		query: func(ctx context.Context, p, sp string) (string, error) {
			callCount++
			if callCount == 2 {
				seenPrompt = p
			}
			return `{"action":"click","element_id":"1","reasoning":"matches Submit","confidence":0.95}`, nil
		},
	}
	ctrl := newController(t, fake, adapter)

	_, err := ctrl.StartSession(context.Background(), "tap submit twice")
	require.NoError(t, err)

	_, err = ctrl.Execute(context.Background(), "tap submit")
	require.NoError(t, err)
	_, err = ctrl.Execute(context.Background(), "tap submit again")
	require.NoError(t, err)

	assert.Contains(t, seenPrompt, "click-matches Submit")
}

func TestAssertAppendsVerificationButWaitForConditionDoesNot(t *testing.T) {
	fake := &fakeSession{pageSource: sampleXML, window: device.WindowSize{Width: 360, Height: 800}}
	adapter := &fakeAdapter{
		query: func(ctx context.Context, p, sp string) (string, error) {
			return `{"passed":true,"assertions":["ok"],"issues":[],"confidence":0.9}`, nil
		},
	}
	ctrl := newController(t, fake, adapter)

	_, err := ctrl.StartSession(context.Background(), "check dialog")
	require.NoError(t, err)

	passed, err := ctrl.Assert(context.Background(), "dialog visible")
	require.NoError(t, err)
	assert.True(t, passed)

	ok, err := ctrl.WaitForCondition(context.Background(), "dialog visible", 100, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	state, err := ctrl.GetCurrentState()
	require.NoError(t, err)
	assert.Len(t, state.Verifications, 1, "WaitForCondition must not append to recorded verifications")
}

func TestWaitForConditionTimesOutWithoutPassing(t *testing.T) {
	fake := &fakeSession{pageSource: sampleXML, window: device.WindowSize{Width: 360, Height: 800}}
	adapter := &fakeAdapter{
		query: func(ctx context.Context, p, sp string) (string, error) {
			return `{"passed":false,"assertions":[],"issues":["dialog not visible"],"confidence":0.9}`, nil
		},
	}
	ctrl := newController(t, fake, adapter)

	_, err := ctrl.StartSession(context.Background(), "check dialog")
	require.NoError(t, err)

	ok, err := ctrl.WaitForCondition(context.Background(), "dialog visible", 30, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStopSessionSealsAndRejectsFurtherOperations(t *testing.T) {
	fake := &fakeSession{pageSource: sampleXML, window: device.WindowSize{Width: 360, Height: 800}}
	ctrl := newController(t, fake, &fakeAdapter{})

	_, err := ctrl.StartSession(context.Background(), "a task")
	require.NoError(t, err)

	sealed, err := ctrl.StopSession(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, sealed.Sealed())

	_, err = ctrl.Execute(context.Background(), "tap submit")
	assert.Error(t, err)
}
