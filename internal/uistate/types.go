// Package uistate holds the data model shared by every tier of the
// decision engine: UIElement, UIState, ActionDecision, ActionStep,
// VerificationPoint and Session (spec §3).
package uistate

import (
	"time"

	"github.com/ai-agentic-browser/internal/geometry"
)

// ElementType is the tagged variant inferred from an accessibility node's
// class name (spec §3, §4.B step 2).
type ElementType string

const (
	ElementButton      ElementType = "button"
	ElementTextView    ElementType = "text_view"
	ElementEditText    ElementType = "edit_text"
	ElementImageView   ElementType = "image_view"
	ElementListView    ElementType = "list_view"
	ElementRecyclerView ElementType = "recycler_view"
	ElementWebView     ElementType = "webview"
	ElementDialog      ElementType = "dialog"
	ElementToggle      ElementType = "toggle"
	ElementSpinner     ElementType = "spinner"
	ElementUnknown     ElementType = "unknown"
)

// UIElement is a single node parsed from the device accessibility tree.
type UIElement struct {
	ElementID   string            `json:"elementId"`
	Text        string            `json:"text"`
	ResourceID  string            `json:"resourceId,omitempty"`
	ClassName   string            `json:"className,omitempty"`
	ContentDesc string            `json:"contentDesc,omitempty"`
	Bounds      *geometry.Bounds  `json:"bounds,omitempty"`
	ElementType ElementType       `json:"elementType"`
	Clickable      bool `json:"clickable"`
	Scrollable     bool `json:"scrollable"`
	Focusable      bool `json:"focusable"`
	LongClickable  bool `json:"longClickable"`
	Checked        bool `json:"checked"`
	Enabled        bool `json:"enabled"`
	Visible        bool `json:"visible"`
}

// HasBounds reports whether the element carries a usable bounding box
// (spec §3 invariant: absence of bounds means "not targetable by
// coordinate").
func (e UIElement) HasBounds() bool {
	return e.Bounds != nil && !e.Bounds.Empty()
}

// DeviceInfo is the best-effort device identity attached to every
// snapshot (spec §3).
type DeviceInfo struct {
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion,omitempty"`
	DeviceName      string `json:"deviceName,omitempty"`
}

// SnapshotMode selects what the UI Observer captures (spec §4.B).
type SnapshotMode string

const (
	ModeNone       SnapshotMode = "none"
	ModeScreenshot SnapshotMode = "screenshot"
	ModeTagged     SnapshotMode = "tagged"
	ModeGrid       SnapshotMode = "grid"
)

// UIState is an immutable snapshot for one decision cycle (spec §3). It is
// never mutated after creation; a new decision step always constructs a
// fresh UIState rather than reusing or patching an old one, which removes
// the stale-reference re-resolution bug class at the type level (spec §9).
type UIState struct {
	Activity          string
	Elements          []UIElement
	XMLSource         string
	ScreenshotBase64  string
	TagMapping        map[int]UIElement
	GridMap           map[string]geometry.LogicalPoint
	DeviceInfo        DeviceInfo
	WindowSize        geometry.WindowSize
	Timestamp         time.Time
}

// ActionType enumerates the gestures the dispatcher can execute (spec §3,
// §4.E).
type ActionType string

const (
	ActionClick      ActionType = "click"
	ActionTap        ActionType = "tap"
	ActionDoubleTap  ActionType = "double_tap"
	ActionLongPress  ActionType = "long_press"
	ActionTypeText   ActionType = "type_text"
	ActionSwipe      ActionType = "swipe"
	ActionScroll     ActionType = "scroll"
	ActionPinch      ActionType = "pinch"
	ActionZoom       ActionType = "zoom"
	ActionError      ActionType = "error"
)

// Method records which tier produced an ActionDecision (spec §3).
type Method string

const (
	MethodHierarchy    Method = "HIERARCHY"
	MethodVisionTagging Method = "VISION_TAGGING"
	MethodGridOverlay  Method = "GRID_OVERLAY"
	MethodPureVision   Method = "PURE_VISION"
)

// ActionDecision is the output of the decision engine for one instruction
// (spec §3).
type ActionDecision struct {
	// ID uniquely identifies this decision for tracing/audit correlation
	// (spec §9); it carries no resolution semantics.
	ID          string
	Action      ActionType
	ElementID   string
	Coordinates *geometry.LogicalPoint
	Parameters  map[string]any
	Reasoning   string
	// Confidence is a pointer so the three-state contract from spec §9 is
	// representable: nil = undefined (LLM didn't say), 0 = parse failure,
	// (0,1] = explicit.
	Confidence  *float64
	Method      Method
	TagID       *int
	GridPosition string
	Location     *PercentLocation
}

// PercentLocation is tier 4's raw LLM-reported location before conversion
// to logical pixels (spec §4.D tier 4: location:{x_percent,y_percent}).
type PercentLocation struct {
	XPercent float64
	YPercent float64
}

// ConfidenceOrZero returns the decision's confidence, treating "undefined"
// as 0 for callers that don't need to distinguish the two (diagnostics,
// logging). The fallback predicate in internal/engine must NOT use this —
// it needs the nil/0/value distinction directly.
func (d ActionDecision) ConfidenceOrZero() float64 {
	if d.Confidence == nil {
		return 0
	}
	return *d.Confidence
}

// ActionStep is one recorded history entry (spec §3).
type ActionStep struct {
	ID              string
	Action          ActionType
	TargetElementID string
	Parameters      map[string]any
	Timestamp       time.Time
	Success         bool
	ErrorMessage    string
	BeforeScreenshotPath string
	AfterScreenshotPath  string
}

// VerificationStatus is the outcome of an assert() call (spec §3).
type VerificationStatus string

const (
	VerificationPassed VerificationStatus = "passed"
	VerificationFailed VerificationStatus = "failed"
	VerificationError  VerificationStatus = "error"
)

// VerificationPoint is recorded per assert() (spec §3).
type VerificationPoint struct {
	Condition string
	Expected  bool
	Actual    bool
	Status    VerificationStatus
	Issues    []string
	Timestamp time.Time
}

// Session is the test-result aggregate owned by the SessionController
// (spec §3). Created on startSession, sealed on stopSession, never reused.
type Session struct {
	ID            string
	Task          string
	Steps         []ActionStep
	Verifications []VerificationPoint
	StartTime     time.Time
	EndTime       time.Time
	Success       bool
	Metadata      map[string]any
	ArtifactDir   string
	sealed        bool
}

// Sealed reports whether stopSession has already closed this session.
func (s *Session) Sealed() bool { return s.sealed }

// Seal marks the session closed; further mutation must go through the
// SessionController, which enforces the precondition error from spec §7.
func (s *Session) Seal(end time.Time, success bool) {
	s.EndTime = end
	s.Success = success
	s.sealed = true
}

// Duration returns the session's total elapsed wall time.
func (s *Session) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
