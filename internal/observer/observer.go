// Package observer implements the UI Observer (spec §4.B): the single
// snapshot() operation that fetches the accessibility tree, infers element
// metadata, and optionally attaches a screenshot with a numeric-tag or grid
// overlay for the decision engine's middle tiers.
package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ai-agentic-browser/internal/device"
	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/overlay"
	"github.com/ai-agentic-browser/internal/uistate"
)

var tracer = otel.Tracer("mobile-agent/observer")

// Observer fetches and assembles UIState snapshots from a device.Session.
// It holds no state of its own; every snapshot is independently
// constructed, per spec §3's immutable-UIState invariant.
type Observer struct {
	device device.Session
}

// New builds an Observer bound to the given device session.
func New(dev device.Session) *Observer {
	return &Observer{device: dev}
}

// Snapshot produces one UIState per spec §4.B's six steps. gridSize is only
// consulted when mode == ModeGrid.
//
// ModeScreenshot (tier 4, pure vision) never resolves against the
// accessibility tree, so it skips the tree/activity/capabilities fetch
// entirely rather than discarding an unused tree on every call — matching
// Scenario S4's "no accessibility tree queried" in pure-vision mode. The
// dispatcher's settle wait polls GetPageSource directly and does not rely
// on this snapshot's XMLSource.
func (o *Observer) Snapshot(ctx context.Context, mode uistate.SnapshotMode, gridSize int) (uistate.UIState, error) {
	ctx, span := tracer.Start(ctx, "Observer.Snapshot")
	defer span.End()

	if mode == uistate.ModeScreenshot {
		return o.screenshotOnlySnapshot(ctx)
	}

	xmlSource, err := o.device.GetPageSource(ctx)
	if err != nil {
		return uistate.UIState{}, err
	}

	elements := ParseHierarchy(xmlSource)

	activity, err := o.device.GetCurrentActivity(ctx)
	if err != nil {
		activity = "Unknown"
	}

	deviceInfo := uistate.DeviceInfo{Platform: "Unknown"}
	if caps, err := o.device.Capabilities(ctx); err == nil {
		deviceInfo = uistate.DeviceInfo{
			Platform:        valueOr(caps.PlatformName, "Unknown"),
			PlatformVersion: caps.PlatformVersion,
			DeviceName:      caps.DeviceName,
		}
	}

	state := uistate.UIState{
		Activity:   activity,
		Elements:   elements,
		XMLSource:  xmlSource,
		DeviceInfo: deviceInfo,
		Timestamp:  time.Now(),
	}

	if mode == uistate.ModeNone {
		return state, nil
	}

	screenshot, err := o.device.TakeScreenshot(ctx)
	if err != nil {
		return uistate.UIState{}, err
	}
	state.ScreenshotBase64 = screenshot

	win, err := o.device.GetWindowSize(ctx)
	if err != nil {
		return uistate.UIState{}, err
	}
	state.WindowSize = geometry.WindowSize{Width: win.Width, Height: win.Height}

	switch mode {
	case uistate.ModeTagged:
		overlaid, mapping, err := overlay.NumericTag(screenshot, elements, state.WindowSize)
		if err != nil {
			return uistate.UIState{}, err
		}
		state.ScreenshotBase64 = overlaid
		state.TagMapping = mapping
	case uistate.ModeGrid:
		overlaid, gridMap, err := overlay.Grid(screenshot, state.WindowSize, gridSize)
		if err != nil {
			return uistate.UIState{}, err
		}
		state.ScreenshotBase64 = overlaid
		state.GridMap = gridMap
	}

	return state, nil
}

// screenshotOnlySnapshot builds the tier-4 UIState: screenshot and window
// size only, no accessibility tree.
func (o *Observer) screenshotOnlySnapshot(ctx context.Context) (uistate.UIState, error) {
	screenshot, err := o.device.TakeScreenshot(ctx)
	if err != nil {
		return uistate.UIState{}, err
	}

	win, err := o.device.GetWindowSize(ctx)
	if err != nil {
		return uistate.UIState{}, err
	}

	return uistate.UIState{
		ScreenshotBase64: screenshot,
		WindowSize:       geometry.WindowSize{Width: win.Width, Height: win.Height},
		Timestamp:        time.Now(),
	}, nil
}

// SettleKey extracts the comparison key used by the dispatcher's UI-settle
// wait. Identity by default (spec open question §9.3); a platform-specific
// normalizer can be swapped in without touching the dispatcher.
func SettleKey(xmlSource string) string {
	return xmlSource
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
