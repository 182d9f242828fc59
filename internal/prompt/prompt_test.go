package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/uistate"
)

func TestHistoryLinesEmpty(t *testing.T) {
	assert.Equal(t, "(none yet)", HistoryLines(nil, nil))
}

func TestHistoryLinesFormatsActionReasoning(t *testing.T) {
	steps := []uistate.ActionStep{
		{ID: "s1", Action: uistate.ActionTap},
		{ID: "s2", Action: uistate.ActionSwipe},
	}
	reasons := map[string]string{"s1": "tapped submit", "s2": "scrolled to reveal more"}

	out := HistoryLines(steps, reasons)
	assert.Contains(t, out, "- tap-tapped submit")
	assert.Contains(t, out, "- swipe-scrolled to reveal more")
}

func TestHierarchyFiltersNonClickableOrInvisibleElements(t *testing.T) {
	elements := []uistate.UIElement{
		{ElementID: "1", Text: "Submit", Clickable: true, Visible: true, Bounds: &geometry.Bounds{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		{ElementID: "2", Text: "Hidden", Clickable: true, Visible: false},
		{ElementID: "3", Text: "Label", Clickable: false, Visible: true},
	}

	out := Hierarchy("tap submit", ".MainActivity", "Android", elements, "(none yet)")
	assert.Contains(t, out, `id=1 text="Submit"`)
	assert.NotContains(t, out, `id=2`)
	assert.NotContains(t, out, `id=3`)
	assert.Contains(t, out, "action, element_id, parameters, reasoning, confidence")
}

func TestTaggedListsEachMappingEntryByTagOrder(t *testing.T) {
	mapping := map[int]uistate.UIElement{
		1: {Text: "Submit"},
		2: {ContentDesc: "close icon"},
	}
	out := Tagged("tap submit", mapping, "(none yet)")
	assert.Contains(t, out, "[1] Submit")
	assert.Contains(t, out, "[2] close icon")
}

func TestGridMentionsDimensions(t *testing.T) {
	out := Grid("tap submit", 10, "(none yet)")
	assert.Contains(t, out, "10x10")
	assert.Contains(t, out, "rows 1..10")
}

func TestPureVisionMentionsScreenDimensionsAndPercentSchema(t *testing.T) {
	out := PureVision("tap submit", 360, 800, "(none yet)")
	assert.Contains(t, out, "360x800")
	assert.Contains(t, out, "x_percent")
}

func TestVerificationCapsAtFiftyVisibleElements(t *testing.T) {
	elements := make([]uistate.UIElement, 0, 60)
	for i := 0; i < 60; i++ {
		elements = append(elements, uistate.UIElement{ElementID: "x", Visible: true})
	}
	out := Verification("dialog is visible", elements)
	assert.Equal(t, 50, strings.Count(out, "- id=x"))
}

func TestVerificationSkipsHiddenElements(t *testing.T) {
	elements := []uistate.UIElement{
		{ElementID: "v", Visible: true},
		{ElementID: "h", Visible: false},
	}
	out := Verification("dialog is visible", elements)
	assert.Contains(t, out, "id=v")
	assert.NotContains(t, out, "id=h")
}
