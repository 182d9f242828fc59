package observer

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/uistate"
)

// rawNode mirrors the attribute shape of an Android UiAutomator2 (and,
// loosely, iOS XCUITest) accessibility dump node: a generic recursive
// element with a flat attribute bag plus nested children. The exact
// attribute names below follow the UiAutomator2 dump (class, resource-id,
// content-desc, bounds="[x1,y1][x2,y2]"); this is the dump format spec
// §4.B step 2 describes.
type rawNode struct {
	XMLName     xml.Name
	Text        string    `xml:"text,attr"`
	ResourceID  string    `xml:"resource-id,attr"`
	Class       string    `xml:"class,attr"`
	ContentDesc string    `xml:"content-desc,attr"`
	Bounds      string    `xml:"bounds,attr"`
	Clickable     string `xml:"clickable,attr"`
	Scrollable    string `xml:"scrollable,attr"`
	Focusable     string `xml:"focusable,attr"`
	LongClickable string `xml:"long-clickable,attr"`
	Checked       string `xml:"checked,attr"`
	Enabled       string `xml:"enabled,attr"`
	Visible       string `xml:"visible-to-user,attr"`
	Children []rawNode `xml:",any"`
}

// ParseHierarchy parses a raw accessibility dump depth-first into an
// ordered UIElement sequence (spec §4.B step 1). On malformed XML it
// returns an empty sequence rather than an error — the raw source is
// still kept by the caller for UI-settle comparison.
func ParseHierarchy(xmlSource string) []uistate.UIElement {
	var root rawNode
	if err := xml.Unmarshal([]byte(xmlSource), &root); err != nil {
		return nil
	}

	var out []uistate.UIElement
	counter := 0
	var walk func(n rawNode)
	walk = func(n rawNode) {
		// The outermost <hierarchy> wrapper (and any other container
		// node without a class) is not itself an accessibility element;
		// only nodes carrying a class attribute are counted.
		if n.Class != "" {
			counter++
			out = append(out, toUIElement(n, counter))
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return out
}

func toUIElement(n rawNode, id int) uistate.UIElement {
	elem := uistate.UIElement{
		ElementID:   strconv.Itoa(id),
		Text:        n.Text,
		ResourceID:  n.ResourceID,
		ClassName:   n.Class,
		ContentDesc: n.ContentDesc,
		ElementType: inferElementType(n.Class),
		Clickable:     parseFlag(n.Clickable, false),
		Scrollable:    parseFlag(n.Scrollable, false),
		Focusable:     parseFlag(n.Focusable, false),
		LongClickable: parseFlag(n.LongClickable, false),
		Checked:       parseFlag(n.Checked, false),
		Enabled:       parseFlag(n.Enabled, true),
		Visible:       parseFlag(n.Visible, true),
	}
	if b, ok := parseBounds(n.Bounds); ok {
		elem.Bounds = &b
	}
	return elem
}

// parseFlag reads an explicit "true"/"false" attribute; spec §4.B step 2:
// "Boolean flags from string attributes with explicit true/false; enabled
// and visible default to true when unspecified."
func parseFlag(value string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return true
	case "false":
		return false
	default:
		return defaultValue
	}
}

// parseBounds parses the "[x1,y1][x2,y2]" format spec §4.B step 2
// describes.
func parseBounds(raw string) (geometry.Bounds, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return geometry.Bounds{}, false
	}
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Split(raw, "][")
	if len(parts) != 2 {
		return geometry.Bounds{}, false
	}
	x1, y1, ok1 := splitCoord(parts[0])
	x2, y2, ok2 := splitCoord(parts[1])
	if !ok1 || !ok2 {
		return geometry.Bounds{}, false
	}
	return geometry.Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2}, true
}

func splitCoord(pair string) (int, int, bool) {
	xy := strings.SplitN(pair, ",", 2)
	if len(xy) != 2 {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xy[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(xy[1]))
	return x, y, errX == nil && errY == nil
}

// elementTypeOrder is the ordered, case-insensitive substring search spec
// §4.B step 2 mandates: "button → edit_text → text_view → image_view →
// recycler_view → list_view → webview → dialog → toggle → spinner →
// unknown".
var elementTypeOrder = []struct {
	substr string
	typ    uistate.ElementType
}{
	{"button", uistate.ElementButton},
	{"edittext", uistate.ElementEditText},
	{"textview", uistate.ElementTextView},
	{"imageview", uistate.ElementImageView},
	{"recyclerview", uistate.ElementRecyclerView},
	{"listview", uistate.ElementListView},
	{"webview", uistate.ElementWebView},
	{"dialog", uistate.ElementDialog},
	{"toggle", uistate.ElementToggle},
	{"spinner", uistate.ElementSpinner},
}

func inferElementType(className string) uistate.ElementType {
	lower := strings.ToLower(className)
	for _, candidate := range elementTypeOrder {
		if strings.Contains(lower, candidate.substr) {
			return candidate.typ
		}
	}
	return uistate.ElementUnknown
}
