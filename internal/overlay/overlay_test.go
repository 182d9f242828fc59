package overlay

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/uistate"
)

func testScreenshot(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestNumericTagOnlyTagsClickableVisibleElementsWithBounds(t *testing.T) {
	shot := testScreenshot(t, 360, 800)
	elements := []uistate.UIElement{
		{ElementID: "1", Clickable: true, Visible: true, Bounds: &geometry.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 100}},
		{ElementID: "2", Clickable: false, Visible: true, Bounds: &geometry.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 100}},
		{ElementID: "3", Clickable: true, Visible: false, Bounds: &geometry.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 100}},
		{ElementID: "4", Clickable: true, Visible: true},
		{ElementID: "5", Clickable: true, Visible: true, Bounds: &geometry.Bounds{X1: 100, Y1: 100, X2: 200, Y2: 200}},
	}

	overlaid, mapping, err := NumericTag(shot, elements, geometry.WindowSize{Width: 360, Height: 800})
	require.NoError(t, err)
	require.Len(t, mapping, 2)
	assert.Equal(t, "1", mapping[1].ElementID)
	assert.Equal(t, "5", mapping[2].ElementID)

	decoded, err := base64.StdEncoding.DecodeString(overlaid)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
}

func TestGridProducesExpectedCellCountAndLabels(t *testing.T) {
	shot := testScreenshot(t, 360, 800)
	overlaid, gridMap, err := Grid(shot, geometry.WindowSize{Width: 360, Height: 800}, 10)
	require.NoError(t, err)
	assert.Len(t, gridMap, 100)
	assert.Contains(t, gridMap, "A1")
	assert.Contains(t, gridMap, "J10")

	decoded, err := base64.StdEncoding.DecodeString(overlaid)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
}

func TestGridClampsOutOfRangeSize(t *testing.T) {
	shot := testScreenshot(t, 100, 100)
	_, gridMap, err := Grid(shot, geometry.WindowSize{Width: 100, Height: 100}, 2)
	require.NoError(t, err)
	assert.Len(t, gridMap, 100) // clamped to default 10x10
}

func TestDecodeBase64PNGRejectsGarbage(t *testing.T) {
	_, _, err := NumericTag("not-base64-png", nil, geometry.WindowSize{Width: 10, Height: 10})
	assert.Error(t, err)
}

func TestColumnLettersSingleLetterForSmallGrids(t *testing.T) {
	assert.Equal(t, "A", columnLetters(0))
	assert.Equal(t, "J", columnLetters(9))
}
