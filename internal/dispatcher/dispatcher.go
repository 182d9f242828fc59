// Package dispatcher implements the Action Dispatcher (spec §4.E): gesture
// execution over a device.Session plus the UI-settle wait that replaces
// unconditional sleeps after every gesture but long_press.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ai-agentic-browser/internal/agenterr"
	"github.com/ai-agentic-browser/internal/device"
	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/observer"
	"github.com/ai-agentic-browser/internal/uistate"
	"github.com/ai-agentic-browser/pkg/observability"
)

var tracer = otel.Tracer("mobile-agent/dispatcher")

const (
	tapPressMS    = 100
	tapMoveMS     = 100
	tapReleaseMS  = 100
	doubleTapGapMS = 75
	longPressHoldMS = 1000
	longPressPostMS = 500
	pinchZoomMS   = 250
	pinchStartPx  = 100
	pinchEndPx    = 10
	scrollDistance = 0.3

	settlePollMS    = 150
	settleTimeoutMS = 1200
)

// Target is the resolved action target: an explicit coordinate wins over
// a resolved element's center when both are present (spec §4.E tap/click
// semantics).
type Target struct {
	Element     *uistate.UIElement
	Coordinates *geometry.LogicalPoint
}

// Resolve returns the logical point to act on, or false if neither a
// bounded element nor explicit coordinates are available.
func (t Target) Resolve() (geometry.LogicalPoint, bool) {
	if t.Coordinates != nil {
		return *t.Coordinates, true
	}
	if t.Element != nil && t.Element.HasBounds() {
		return t.Element.Bounds.Center(), true
	}
	return geometry.LogicalPoint{}, false
}

// Dispatcher executes ActionDecisions against a device.Session.
type Dispatcher struct {
	device       device.Session
	perf         *observability.PerformanceLogger
	artifactsDir string
}

// New builds a Dispatcher. artifactsDir may be empty, disabling
// pre/post-gesture screenshot persistence.
func New(dev device.Session, perf *observability.PerformanceLogger, artifactsDir string) *Dispatcher {
	return &Dispatcher{device: dev, perf: perf, artifactsDir: artifactsDir}
}

// Execute runs one gesture for the given action/target/parameters
// (spec §4.E). stepIndex is used only to name persisted artifacts.
func (d *Dispatcher) Execute(ctx context.Context, action uistate.ActionType, target Target, params map[string]any, window geometry.WindowSize, stepIndex int) error {
	ctx, span := tracer.Start(ctx, "Dispatcher.Execute")
	defer span.End()

	start := time.Now()
	defer func() {
		if d.perf != nil {
			d.perf.LogDuration(ctx, fmt.Sprintf("gesture.%s", action), time.Since(start))
		}
	}()

	d.captureArtifact(ctx, stepIndex, "before")

	var err error
	switch action {
	case uistate.ActionClick, uistate.ActionTap:
		err = d.tap(ctx, target)
	case uistate.ActionDoubleTap:
		err = d.doubleTap(ctx, target)
	case uistate.ActionLongPress:
		err = d.longPress(ctx, target)
	case uistate.ActionTypeText:
		err = d.typeText(ctx, target, params)
	case uistate.ActionSwipe:
		err = d.swipe(ctx, window, params)
	case uistate.ActionScroll:
		err = d.scroll(ctx, window, params)
	case uistate.ActionPinch:
		err = d.pinchZoom(ctx, window, target, true)
	case uistate.ActionZoom:
		err = d.pinchZoom(ctx, window, target, false)
	default:
		err = agenterr.Wrap(agenterr.ErrGesture, "unsupported action %q", action)
	}
	if err != nil {
		return err
	}

	if action != uistate.ActionLongPress {
		d.awaitSettle(ctx)
	} else if err := d.device.Pause(ctx, longPressPostMS); err != nil {
		_ = err // best-effort fixed pause
	}

	d.captureArtifact(ctx, stepIndex, "after")
	return nil
}

func (d *Dispatcher) tap(ctx context.Context, target Target) error {
	p, ok := target.Resolve()
	if !ok {
		return agenterr.Wrap(agenterr.ErrGesture, "No element or coordinates to tap")
	}
	return d.device.Tap(ctx, p.X, p.Y)
}

func (d *Dispatcher) doubleTap(ctx context.Context, target Target) error {
	p, ok := target.Resolve()
	if !ok {
		return agenterr.Wrap(agenterr.ErrGesture, "No element or coordinates to double_tap")
	}
	if err := d.device.Tap(ctx, p.X, p.Y); err != nil {
		return err
	}
	if err := d.device.Pause(ctx, doubleTapGapMS); err != nil {
		return err
	}
	return d.device.Tap(ctx, p.X, p.Y)
}

func (d *Dispatcher) longPress(ctx context.Context, target Target) error {
	p, ok := target.Resolve()
	if !ok {
		return agenterr.Wrap(agenterr.ErrGesture, "No element or coordinates to long_press")
	}
	return d.device.LongPress(ctx, p.X, p.Y, longPressHoldMS)
}

func (d *Dispatcher) typeText(ctx context.Context, target Target, params map[string]any) error {
	p, ok := target.Resolve()
	if !ok {
		return agenterr.Wrap(agenterr.ErrGesture, "No element or coordinates to type_text")
	}
	if err := d.device.Tap(ctx, p.X, p.Y); err != nil {
		return err
	}
	text, _ := params["text"].(string)
	chars := make([]string, 0, len(text))
	for _, r := range text {
		chars = append(chars, string(r))
	}
	return d.device.TypeKeys(ctx, chars)
}

// swipe computes a start-end pair across the screen center and replays a
// 100ms press/move/release timeline (spec §4.E).
func (d *Dispatcher) swipe(ctx context.Context, window geometry.WindowSize, params map[string]any) error {
	direction, _ := params["direction"].(string)
	distance, _ := params["distance"].(float64)
	if distance <= 0 {
		distance = 0.5
	}
	start, end := swipeEndpoints(window, direction, distance)
	points := []device.TouchPoint{
		{Action: device.TouchPress, X: start.X, Y: start.Y},
		{Action: device.TouchWait, WaitMS: tapPressMS},
		{Action: device.TouchMove, X: end.X, Y: end.Y, WaitMS: tapMoveMS},
		{Action: device.TouchWait, WaitMS: tapReleaseMS},
		{Action: device.TouchRelease},
	}
	return d.device.SwipeGesture(ctx, points)
}

// scroll is swipe with a fixed distance of 0.3 (spec §4.E).
func (d *Dispatcher) scroll(ctx context.Context, window geometry.WindowSize, params map[string]any) error {
	direction, _ := params["direction"].(string)
	scrollParams := map[string]any{"direction": direction, "distance": scrollDistance}
	return d.swipe(ctx, window, scrollParams)
}

func swipeEndpoints(window geometry.WindowSize, direction string, distance float64) (geometry.LogicalPoint, geometry.LogicalPoint) {
	cx, cy := window.Width/2, window.Height/2
	switch direction {
	case "up":
		deflect := int(float64(window.Height) * distance)
		return geometry.LogicalPoint{X: cx, Y: cy + deflect/2}, geometry.LogicalPoint{X: cx, Y: cy - deflect/2}
	case "down":
		deflect := int(float64(window.Height) * distance)
		return geometry.LogicalPoint{X: cx, Y: cy - deflect/2}, geometry.LogicalPoint{X: cx, Y: cy + deflect/2}
	case "left":
		deflect := int(float64(window.Width) * distance)
		return geometry.LogicalPoint{X: cx + deflect/2, Y: cy}, geometry.LogicalPoint{X: cx - deflect/2, Y: cy}
	default: // "right"
		deflect := int(float64(window.Width) * distance)
		return geometry.LogicalPoint{X: cx - deflect/2, Y: cy}, geometry.LogicalPoint{X: cx + deflect/2, Y: cy}
	}
}

// pinchZoom drives two synchronized finger timelines around a center
// point: pinch contracts 100px→10px, zoom expands 10px→100px, both over
// 250ms (spec §4.E).
func (d *Dispatcher) pinchZoom(ctx context.Context, window geometry.WindowSize, target Target, pinch bool) error {
	center := geometry.LogicalPoint{X: window.Width / 2, Y: window.Height / 2}
	if p, ok := target.Resolve(); ok {
		center = p
	}

	startOffset, endOffset := pinchStartPx, pinchEndPx
	if !pinch {
		startOffset, endOffset = pinchEndPx, pinchStartPx
	}

	finger1 := []device.TouchPoint{
		{Action: device.TouchPress, X: center.X - startOffset, Y: center.Y},
		{Action: device.TouchMove, X: center.X - endOffset, Y: center.Y, WaitMS: pinchZoomMS},
		{Action: device.TouchRelease},
	}
	finger2 := []device.TouchPoint{
		{Action: device.TouchPress, X: center.X + startOffset, Y: center.Y},
		{Action: device.TouchMove, X: center.X + endOffset, Y: center.Y, WaitMS: pinchZoomMS},
		{Action: device.TouchRelease},
	}
	return d.device.MultiTouch(ctx, [][]device.TouchPoint{finger1, finger2})
}

// awaitSettle polls pageSource every settlePollMS up to settleTimeoutMS,
// declaring settled on two consecutive byte-identical samples (spec §5).
// Transient read errors are ignored; the timebox always wins.
func (d *Dispatcher) awaitSettle(ctx context.Context) {
	deadline := time.Now().Add(settleTimeoutMS * time.Millisecond)
	var previous string
	havePrevious := false

	for {
		source, err := d.device.GetPageSource(ctx)
		if err == nil {
			key := observer.SettleKey(source)
			if havePrevious && key == previous {
				return
			}
			previous = key
			havePrevious = true
		}

		if time.Now().After(deadline) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(settlePollMS * time.Millisecond):
		}
	}
}

func (d *Dispatcher) captureArtifact(ctx context.Context, stepIndex int, phase string) {
	if d.artifactsDir == "" {
		return
	}
	screenshot, err := d.device.TakeScreenshot(ctx)
	if err != nil {
		return
	}
	path := fmt.Sprintf("%s/step_%d_%s.png", d.artifactsDir, stepIndex, phase)
	_ = persistPNG(path, screenshot)
}
