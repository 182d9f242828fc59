package observer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/internal/device"
	"github.com/ai-agentic-browser/internal/uistate"
)

const sampleXML = `<hierarchy>
  <node class="android.widget.Button" text="Submit" resource-id="com.app:id/submit"
        bounds="[10,20][110,70]" clickable="true" visible-to-user="true"/>
  <node class="android.widget.TextView" text="Hello" bounds="[0,0][50,20]"
        clickable="false" visible-to-user="true"/>
</hierarchy>`

type fakeSession struct {
	pageSource  string
	activity    string
	windowSize  device.WindowSize
	screenshot  string
	caps        device.Capabilities
	capsErr     error
	activityErr error

	pageSourceCalls int
	activityCalls   int
	capsCalls       int
}

func (f *fakeSession) GetPageSource(ctx context.Context) (string, error) {
	f.pageSourceCalls++
	return f.pageSource, nil
}
func (f *fakeSession) GetCurrentActivity(ctx context.Context) (string, error) {
	f.activityCalls++
	return f.activity, f.activityErr
}
func (f *fakeSession) GetWindowSize(ctx context.Context) (device.WindowSize, error) {
	return f.windowSize, nil
}
func (f *fakeSession) TakeScreenshot(ctx context.Context) (string, error) { return f.screenshot, nil }
func (f *fakeSession) Tap(ctx context.Context, x, y int) error            { return nil }
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
	f.capsCalls++
	return f.caps, f.capsErr
}

func TestSnapshotModeNoneSkipsScreenshot(t *testing.T) {
	fake := &fakeSession{
		pageSource: sampleXML,
		activity:   ".MainActivity",
		caps:       device.Capabilities{PlatformName: "Android"},
	}
	obs := New(fake)

	state, err := obs.Snapshot(context.Background(), uistate.ModeNone, 0)
	require.NoError(t, err)
	assert.Equal(t, ".MainActivity", state.Activity)
	assert.Len(t, state.Elements, 2)
	assert.Empty(t, state.ScreenshotBase64)
	assert.Equal(t, "Android", state.DeviceInfo.Platform)
}

func TestSnapshotFallsBackToUnknownActivityOnError(t *testing.T) {
	fake := &fakeSession{
		pageSource:  sampleXML,
		activityErr: assertErr{},
	}
	obs := New(fake)

	state, err := obs.Snapshot(context.Background(), uistate.ModeNone, 0)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", state.Activity)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestSettleKeyIsIdentity(t *testing.T) {
	assert.Equal(t, sampleXML, SettleKey(sampleXML))
}

func TestSnapshotModeScreenshotNeverQueriesAccessibilityTree(t *testing.T) {
	fake := &fakeSession{
		pageSource: sampleXML,
		activity:   ".MainActivity",
		caps:       device.Capabilities{PlatformName: "Android"},
		screenshot: "base64-screenshot",
		windowSize: device.WindowSize{Width: 360, Height: 800},
	}
	obs := New(fake)

	state, err := obs.Snapshot(context.Background(), uistate.ModeScreenshot, 0)
	require.NoError(t, err)

	assert.Zero(t, fake.pageSourceCalls, "pure-vision snapshot must not fetch the accessibility tree")
	assert.Zero(t, fake.activityCalls)
	assert.Zero(t, fake.capsCalls)
	assert.Empty(t, state.Elements)
	assert.Empty(t, state.XMLSource)
	assert.Equal(t, "base64-screenshot", state.ScreenshotBase64)
	assert.Equal(t, 360, state.WindowSize.Width)
}
