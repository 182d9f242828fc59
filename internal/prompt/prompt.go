// Package prompt builds the four tier-specific LLM prompts plus the
// verification prompt (spec §4.D). Templates are kept as plain format
// strings with literal example responses, following the teacher's
// buildAnalysisPrompt/buildSummarizationPrompt style of switch-keyed
// string builders rather than a templating engine.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ai-agentic-browser/internal/uistate"
)

const systemPrompt = "You are a mobile UI automation agent. Respond with a single JSON object only, matching the schema in the prompt. Do not include any text outside the JSON object."

// SystemPrompt is the shared system prompt passed to every tier query.
func SystemPrompt() string { return systemPrompt }

// HistoryLines formats the rolling action history spec §4.D requires on
// every prompt: a short list of prior "{action}-{reasoning}" strings.
func HistoryLines(steps []uistate.ActionStep, reasons map[string]string) string {
	if len(steps) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for _, s := range steps {
		reasoning := reasons[s.ID]
		fmt.Fprintf(&b, "- %s-%s\n", s.Action, reasoning)
	}
	return b.String()
}

// Hierarchy builds the tier-1 prompt: activity, platform, and the
// filtered clickable ∧ visible element list with bounds and ids.
func Hierarchy(instruction, activity, platform string, elements []uistate.UIElement, history string) string {
	var elemLines strings.Builder
	for _, e := range elements {
		if !e.Clickable || !e.Visible {
			continue
		}
		bounds := "none"
		if e.HasBounds() {
			bounds = fmt.Sprintf("[%d,%d][%d,%d]", e.Bounds.X1, e.Bounds.Y1, e.Bounds.X2, e.Bounds.Y2)
		}
		fmt.Fprintf(&elemLines, "- id=%s text=%q desc=%q type=%s bounds=%s\n",
			e.ElementID, e.Text, e.ContentDesc, e.ElementType, bounds)
	}

	return fmt.Sprintf(`Instruction: %s

Screen activity: %s
Device platform: %s

Clickable, visible elements:
%s
Recent actions:
%s

Respond with a JSON object with keys: action, element_id, parameters, reasoning, confidence.
Example: {"action":"click","element_id":"42","parameters":{},"reasoning":"the Submit button matches the instruction","confidence":0.92}`,
		instruction, activity, platform, elemLines.String(), history)
}

// Tagged builds the tier-2 prompt: the numeric-tag list, paired with the
// overlaid screenshot sent alongside via queryWithVision.
func Tagged(instruction string, tagMapping map[int]uistate.UIElement, history string) string {
	var tagLines strings.Builder
	for id := 1; id <= len(tagMapping); id++ {
		elem, ok := tagMapping[id]
		if !ok {
			continue
		}
		label := elem.Text
		if label == "" {
			label = elem.ContentDesc
		}
		fmt.Fprintf(&tagLines, "[%d] %s\n", id, label)
	}

	return fmt.Sprintf(`Instruction: %s

The screenshot shows numbered circles over interactive elements:
%s
Recent actions:
%s

Respond with a JSON object with keys: action, tag_id, parameters, reasoning, confidence.
Example: {"action":"tap","tag_id":3,"parameters":{},"reasoning":"tag 3 is the Submit button","confidence":0.85}`,
		instruction, tagLines.String(), history)
}

// Grid builds the tier-3 prompt: an N×N labeled-grid screenshot.
func Grid(instruction string, gridSize int, history string) string {
	return fmt.Sprintf(`Instruction: %s

The screenshot has a %dx%d labeled grid overlaid (columns A.., rows 1..%d).
Identify which cell contains the element to interact with.

Recent actions:
%s

Respond with a JSON object with keys: action, grid_position, parameters, reasoning, confidence.
Example: {"action":"tap","grid_position":"C4","parameters":{},"reasoning":"the Submit button is in cell C4","confidence":0.75}`,
		instruction, gridSize, gridSize, gridSize, history)
}

// PureVision builds the tier-4 prompt: raw screenshot plus screen
// dimensions, percentage-based location response.
func PureVision(instruction string, width, height int, history string) string {
	return fmt.Sprintf(`Instruction: %s

Screen dimensions: %dx%d pixels. Identify where on the screen to act,
as a percentage of width/height (0-100).

Recent actions:
%s

Respond with a JSON object with keys: element, location, action, parameters, reasoning, confidence.
"location" is an object with "x_percent" and "y_percent".
Example: {"element":"Submit button","location":{"x_percent":50.0,"y_percent":82.0},"action":"tap","parameters":{},"reasoning":"the Submit button sits near the bottom center","confidence":0.6}`,
		instruction, width, height, history)
}

// Verification builds the assert() prompt: up to 50 visible elements plus
// the condition to check.
func Verification(condition string, elements []uistate.UIElement) string {
	var b strings.Builder
	count := 0
	for _, e := range elements {
		if !e.Visible {
			continue
		}
		if count >= 50 {
			break
		}
		fmt.Fprintf(&b, "- id=%s text=%q desc=%q type=%s\n", e.ElementID, e.Text, e.ContentDesc, e.ElementType)
		count++
	}

	return fmt.Sprintf(`Condition to verify: %s

Visible elements:
%s
Respond with a JSON object with keys: passed, assertions, issues, confidence.
Example: {"passed":true,"assertions":["the confirmation dialog is visible"],"issues":[],"confidence":0.9}`,
		condition, b.String())
}
