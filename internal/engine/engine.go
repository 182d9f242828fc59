// Package engine implements the Decision Engine (spec §4.F): the
// cascading four-tier pipeline (hierarchy → vision+tagging → grid
// overlay → pure vision) with confidence-driven fallback gating and
// target re-resolution across tiers.
package engine

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/google/uuid"

	"github.com/ai-agentic-browser/internal/agenterr"
	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/llm"
	"github.com/ai-agentic-browser/internal/observer"
	"github.com/ai-agentic-browser/internal/prompt"
	"github.com/ai-agentic-browser/internal/uistate"
	"github.com/ai-agentic-browser/pkg/observability"
)

var tracer = otel.Tracer("mobile-agent/engine")

// Engine orchestrates the four decision tiers over an Observer and an
// LLM Adapter. It holds configuration only; all per-decision state lives
// in the UIState snapshots it produces, never mutated in place (spec §9).
// The Observer already owns the device.Session this engine drives; Engine
// itself never issues a device RPC directly.
type Engine struct {
	observer *observer.Observer
	adapter  llm.Adapter
	cfg      Config
	logger   *observability.Logger
}

// New builds an Engine bound to the given collaborators.
func New(obs *observer.Observer, adapter llm.Adapter, cfg Config, logger *observability.Logger) *Engine {
	if logger != nil {
		logger.Info(context.Background(), "decision engine initialized", map[string]interface{}{
			"pureVisionOnly":      cfg.PureVisionOnly,
			"visionEnabled":       cfg.effectiveVisionEnabled(),
			"confidenceThreshold": cfg.ConfidenceThreshold,
		})
	}
	return &Engine{observer: obs, adapter: adapter, cfg: cfg, logger: logger}
}

// TargetElement is the re-resolved target carried between tiers (spec
// §4.F "Target re-resolution"): either a reference into the freshest
// snapshot, or nil when the decision is purely coordinate-based.
type TargetElement = *uistate.UIElement

// Decide runs the cascade for one instruction and returns the final
// ActionDecision plus the element it resolved against (if any) and the
// window size recorded by the snapshot that produced the decision. Tier-1
// snapshots fetch no window size, so a tier-1 decision comes back with a
// zero WindowSize.
func (e *Engine) Decide(ctx context.Context, instruction string, history string) (uistate.ActionDecision, TargetElement, geometry.WindowSize, error) {
	ctx, span := tracer.Start(ctx, "Engine.Decide")
	defer span.End()

	if e.cfg.PureVisionOnly {
		return e.tier4(ctx, instruction, history)
	}

	decision, target, window, err := e.tier1(ctx, instruction, history)
	if err != nil {
		return uistate.ActionDecision{}, nil, window, err
	}

	if !e.shouldFallbackToVision(decision, target) {
		return decision, target, window, nil
	}

	decision2, target2, window2, err2 := e.tier2(ctx, instruction, history)
	if err2 == nil {
		return decision2, target2, window2, nil
	}

	decision3, target3, window3, err3 := e.tier3(ctx, instruction, history)
	if err3 == nil {
		return decision3, target3, window3, nil
	}

	if e.cfg.PureVisionEnabled {
		return e.tier4(ctx, instruction, history)
	}

	return uistate.ActionDecision{}, nil, window, err3
}

// tier1 implements spec §4.F tier 1: snapshot(mode=none), text-only
// hierarchy query, parse, resolve targetElement by elementId.
func (e *Engine) tier1(ctx context.Context, instruction, history string) (uistate.ActionDecision, TargetElement, geometry.WindowSize, error) {
	ctx, span := tracer.Start(ctx, "Engine.tier1")
	defer span.End()

	state, err := e.observer.Snapshot(ctx, uistate.ModeNone, 0)
	if err != nil {
		return uistate.ActionDecision{}, nil, geometry.WindowSize{}, agenterr.Wrap(agenterr.ErrTransport, "tier1 snapshot: %v", err)
	}

	p := prompt.Hierarchy(instruction, state.Activity, state.DeviceInfo.Platform, state.Elements, history)
	raw, err := e.adapter.Query(ctx, p, prompt.SystemPrompt())
	if err != nil {
		// Per spec §4.F failure semantics: an LLM-query failure inside a
		// tier throws within the tier, but the cascade proceeds — unlike
		// the snapshot/device-RPC error above, which aborts execute
		// entirely. Reported as an ActionError decision (not a Go error)
		// so shouldFallbackToVision routes it into tier 2 exactly like a
		// parse failure.
		if e.logger != nil {
			e.logger.Warn(ctx, "tier1 query failed, cascading to vision tiers", map[string]interface{}{"error": err.Error()})
		}
		zero := 0.0
		decision := uistate.ActionDecision{ID: uuid.New().String(), Action: uistate.ActionError, Confidence: &zero, Method: uistate.MethodHierarchy}
		return decision, nil, geometry.WindowSize{}, nil
	}

	var resp hierarchyResponse
	var decision uistate.ActionDecision
	if !llm.ParseJSONResponse(raw, &resp) {
		zero := 0.0
		decision = uistate.ActionDecision{ID: uuid.New().String(), Action: uistate.ActionError, Confidence: &zero, Method: uistate.MethodHierarchy}
		return decision, nil, geometry.WindowSize{}, nil
	}

	decision = uistate.ActionDecision{
		ID:         uuid.New().String(),
		Action:     uistate.ActionType(resp.Action),
		ElementID:  resp.ElementID,
		Parameters: resp.Parameters,
		Reasoning:  resp.Reasoning,
		Confidence: resp.Confidence,
		Method:     uistate.MethodHierarchy,
	}

	var target TargetElement
	if decision.ElementID != "" {
		target = findByID(state.Elements, decision.ElementID)
	}

	return decision, target, geometry.WindowSize{}, nil
}

// shouldFallbackToVision implements the spec §4.F fallback predicate.
func (e *Engine) shouldFallbackToVision(decision uistate.ActionDecision, target TargetElement) bool {
	if e.cfg.effectiveVisionEnabled() && e.cfg.AlwaysUseVision {
		return true
	}
	if e.cfg.FallbackOnElementNotFound && decision.ElementID != "" && target == nil {
		return true
	}
	if e.cfg.FallbackOnLowConfidence && decision.Confidence != nil && *decision.Confidence < e.cfg.ConfidenceThreshold {
		return true
	}
	if decision.Action == uistate.ActionError {
		return true
	}
	return false
}

// tier2 implements spec §4.F tier 2: snapshot(mode=tagged), vision query,
// resolve tag_id via tagMapping, default confidence 0.8.
func (e *Engine) tier2(ctx context.Context, instruction, history string) (uistate.ActionDecision, TargetElement, geometry.WindowSize, error) {
	ctx, span := tracer.Start(ctx, "Engine.tier2")
	defer span.End()

	state, err := e.observer.Snapshot(ctx, uistate.ModeTagged, 0)
	if err != nil {
		return uistate.ActionDecision{}, nil, geometry.WindowSize{}, agenterr.Wrap(agenterr.ErrTransport, "tier2 snapshot: %v", err)
	}

	p := prompt.Tagged(instruction, state.TagMapping, history)
	raw, err := e.adapter.QueryWithVision(ctx, p, state.ScreenshotBase64, prompt.SystemPrompt())
	if err != nil {
		if e.logger != nil {
			e.logger.Warn(ctx, "tier2 query failed, cascading to grid overlay", map[string]interface{}{"error": err.Error()})
		}
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrTransport, "tier2 query: %v", err)
	}

	var resp taggedResponse
	if !llm.ParseJSONResponse(raw, &resp) {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrParse, "tier2 parse failed")
	}
	if resp.TagID == nil {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrResolution, "tier2 missing tag_id")
	}

	elem, ok := state.TagMapping[*resp.TagID]
	if !ok {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrResolution, "tier2 tag %d not in mapping", *resp.TagID)
	}

	confidence := resp.Confidence
	if confidence == nil {
		defaultConf := 0.8
		confidence = &defaultConf
	}

	var coords *geometry.LogicalPoint
	if elem.HasBounds() {
		c := elem.Bounds.Center()
		coords = &c
	}

	decision := uistate.ActionDecision{
		ID:          uuid.New().String(),
		Action:      uistate.ActionType(resp.Action),
		ElementID:   elem.ElementID,
		Coordinates: coords,
		Parameters:  resp.Parameters,
		Reasoning:   resp.Reasoning,
		Confidence:  confidence,
		Method:      uistate.MethodVisionTagging,
		TagID:       resp.TagID,
	}

	return decision, &elem, state.WindowSize, nil
}

// tier3 implements spec §4.F tier 3: snapshot(mode=grid), vision query,
// resolve grid_position via gridMap, default confidence 0.7.
func (e *Engine) tier3(ctx context.Context, instruction, history string) (uistate.ActionDecision, TargetElement, geometry.WindowSize, error) {
	ctx, span := tracer.Start(ctx, "Engine.tier3")
	defer span.End()

	gridSize := e.cfg.GridSize
	if gridSize == 0 {
		gridSize = 10
	}

	state, err := e.observer.Snapshot(ctx, uistate.ModeGrid, gridSize)
	if err != nil {
		return uistate.ActionDecision{}, nil, geometry.WindowSize{}, agenterr.Wrap(agenterr.ErrTransport, "tier3 snapshot: %v", err)
	}

	p := prompt.Grid(instruction, gridSize, history)
	raw, err := e.adapter.QueryWithVision(ctx, p, state.ScreenshotBase64, prompt.SystemPrompt())
	if err != nil {
		if e.logger != nil {
			e.logger.Warn(ctx, "tier3 query failed, cascading to pure vision", map[string]interface{}{"error": err.Error()})
		}
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrTransport, "tier3 query: %v", err)
	}

	var resp gridResponse
	if !llm.ParseJSONResponse(raw, &resp) {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrParse, "tier3 parse failed")
	}
	if resp.GridPosition == "" {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrResolution, "tier3 missing grid_position")
	}

	point, ok := state.GridMap[resp.GridPosition]
	if !ok {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrResolution, "tier3 grid position %q not in map", resp.GridPosition)
	}

	confidence := resp.Confidence
	if confidence == nil {
		defaultConf := 0.7
		confidence = &defaultConf
	}

	decision := uistate.ActionDecision{
		ID:           uuid.New().String(),
		Action:       uistate.ActionType(resp.Action),
		Coordinates:  &point,
		Parameters:   resp.Parameters,
		Reasoning:    resp.Reasoning,
		Confidence:   confidence,
		Method:       uistate.MethodGridOverlay,
		GridPosition: resp.GridPosition,
	}

	// Coordinate-based decision: no element reference carried forward
	// (spec §4.F "Target re-resolution").
	return decision, nil, state.WindowSize, nil
}

// tier4 implements spec §4.F tier 4: snapshot(mode=screenshot), pure
// vision query, percentage→logical conversion, minimum-confidence gate.
func (e *Engine) tier4(ctx context.Context, instruction, history string) (uistate.ActionDecision, TargetElement, geometry.WindowSize, error) {
	ctx, span := tracer.Start(ctx, "Engine.tier4")
	defer span.End()

	state, err := e.observer.Snapshot(ctx, uistate.ModeScreenshot, 0)
	if err != nil {
		return uistate.ActionDecision{}, nil, geometry.WindowSize{}, agenterr.Wrap(agenterr.ErrTransport, "tier4 snapshot: %v", err)
	}

	p := prompt.PureVision(instruction, state.WindowSize.Width, state.WindowSize.Height, history)
	raw, err := e.adapter.QueryWithVision(ctx, p, state.ScreenshotBase64, prompt.SystemPrompt())
	if err != nil {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrTransport, "tier4 query: %v", err)
	}

	var resp pureVisionResponse
	if !llm.ParseJSONResponse(raw, &resp) {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrParse, "tier4 parse failed")
	}
	if resp.Location == nil {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrResolution, "tier4 missing location")
	}

	minConfidence := e.cfg.PureVisionMinimumConfidence
	if minConfidence == 0 {
		minConfidence = 0.5
	}
	if resp.Confidence == nil || *resp.Confidence < minConfidence {
		return uistate.ActionDecision{}, nil, state.WindowSize, agenterr.Wrap(agenterr.ErrConfidence, "tier4 confidence below minimum %.2f", minConfidence)
	}

	point := geometry.FromPercent(resp.Location.XPercent, resp.Location.YPercent, state.WindowSize)

	decision := uistate.ActionDecision{
		ID:          uuid.New().String(),
		Action:      uistate.ActionType(resp.Action),
		Coordinates: &point,
		Parameters:  resp.Parameters,
		Reasoning:   resp.Reasoning,
		Confidence:  resp.Confidence,
		Method:      uistate.MethodPureVision,
		Location:    &uistate.PercentLocation{XPercent: resp.Location.XPercent, YPercent: resp.Location.YPercent},
	}

	return decision, nil, state.WindowSize, nil
}

func findByID(elements []uistate.UIElement, id string) TargetElement {
	for i := range elements {
		if elements[i].ElementID == id {
			return &elements[i]
		}
	}
	return nil
}

// Verify runs the verification-as-wait primitive's single-shot check
// (spec §4.G): given a natural-language condition, snapshot the current
// state and ask the LLM whether it holds.
func (e *Engine) Verify(ctx context.Context, condition string) (uistate.VerificationPoint, error) {
	ctx, span := tracer.Start(ctx, "Engine.Verify")
	defer span.End()

	state, err := e.observer.Snapshot(ctx, uistate.ModeNone, 0)
	if err != nil {
		return uistate.VerificationPoint{
			Condition: condition,
			Status:    uistate.VerificationError,
			Issues:    []string{err.Error()},
		}, nil
	}

	p := prompt.Verification(condition, state.Elements)
	raw, err := e.adapter.Query(ctx, p, prompt.SystemPrompt())
	if err != nil {
		return uistate.VerificationPoint{
			Condition: condition,
			Status:    uistate.VerificationError,
			Issues:    []string{err.Error()},
		}, nil
	}

	var resp verificationResponse
	if !llm.ParseJSONResponse(raw, &resp) {
		return uistate.VerificationPoint{
			Condition: condition,
			Status:    uistate.VerificationError,
			Issues:    []string{"verification response did not parse as JSON"},
		}, nil
	}

	status := uistate.VerificationFailed
	if resp.Passed {
		status = uistate.VerificationPassed
	}

	return uistate.VerificationPoint{
		Condition: condition,
		Expected:  true,
		Actual:    resp.Passed,
		Status:    status,
		Issues:    resp.Issues,
	}, nil
}

