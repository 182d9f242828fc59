// Package overlay renders the two screenshot-overlay strategies the
// decision engine's middle tiers depend on (spec §4.A): a numeric-tag
// overlay for tier 2 and an NxN grid overlay for tier 3. Drawing happens
// in physical (screenshot) pixel space; every coordinate handed back to
// the caller is converted to logical space, the only space gestures
// consume (spec glossary: Physical coordinates / Logical coordinates).
package overlay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ai-agentic-browser/internal/geometry"
	"github.com/ai-agentic-browser/internal/uistate"
)

const tagRadiusPx = 20

// decodeBase64PNG decodes a base64 PNG into an image and its intrinsic
// physical pixel size. Fails on zero/missing dimensions per spec §4.A
// ("unrecoverable input").
func decodeBase64PNG(screenshotBase64 string) (image.Image, geometry.PhysicalSize, error) {
	raw, err := base64.StdEncoding.DecodeString(screenshotBase64)
	if err != nil {
		return nil, geometry.PhysicalSize{}, fmt.Errorf("decoding base64 screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, geometry.PhysicalSize{}, fmt.Errorf("decoding png screenshot: %w", err)
	}
	bounds := img.Bounds()
	size := geometry.PhysicalSize{Width: bounds.Dx(), Height: bounds.Dy()}
	if size.Width == 0 || size.Height == 0 {
		return nil, geometry.PhysicalSize{}, fmt.Errorf("screenshot has zero dimensions")
	}
	return img, size, nil
}

func encodeBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding png screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// NumericTag renders a filled circle and numeral over every eligible
// element (clickable ∧ visible ∧ bounds), in traversal order, 1-indexed
// (spec §4.A "Numeric tag overlay"). Returns the overlaid PNG plus the
// tag→element mapping tier 2 resolves against.
func NumericTag(screenshotBase64 string, elements []uistate.UIElement, window geometry.WindowSize) (string, map[int]uistate.UIElement, error) {
	base, physical, err := decodeBase64PNG(screenshotBase64)
	if err != nil {
		return "", nil, err
	}
	scale := geometry.NewScale(physical, window)

	canvas := image.NewRGBA(base.Bounds())
	draw.Draw(canvas, canvas.Bounds(), base, image.Point{}, draw.Src)

	mapping := make(map[int]uistate.UIElement)
	tag := 0
	for _, elem := range elements {
		if !elem.Clickable || !elem.Visible || !elem.HasBounds() {
			continue
		}
		tag++
		center := elem.Bounds.Center()
		physicalCenter := scale.ToPhysical(center)
		drawFilledCircle(canvas, physicalCenter.X, physicalCenter.Y, tagRadiusPx, color.RGBA{R: 230, G: 30, B: 30, A: 255})
		drawLabel(canvas, physicalCenter.X, physicalCenter.Y, fmt.Sprintf("%d", tag), color.White)
		mapping[tag] = elem
	}

	overlaid, err := encodeBase64PNG(canvas)
	if err != nil {
		return "", nil, err
	}
	return overlaid, mapping, nil
}

// Grid renders an NxN labeled grid onto the screenshot's physical pixel
// space and returns the label→logical-center map (spec §4.A "Grid
// overlay", the DPI-sensitive path).
func Grid(screenshotBase64 string, window geometry.WindowSize, gridSize int) (string, map[string]geometry.LogicalPoint, error) {
	if gridSize < 5 || gridSize > 20 {
		gridSize = 10
	}
	base, physical, err := decodeBase64PNG(screenshotBase64)
	if err != nil {
		return "", nil, err
	}
	scale := geometry.NewScale(physical, window)

	canvas := image.NewRGBA(base.Bounds())
	draw.Draw(canvas, canvas.Bounds(), base, image.Point{}, draw.Src)

	cellW := float64(physical.Width) / float64(gridSize)
	cellH := float64(physical.Height) / float64(gridSize)
	lineColor := color.RGBA{R: 255, G: 215, B: 0, A: 200}

	stroke := int(math.Max(2, math.Round((scale.X+scale.Y)/2)))

	for col := 0; col <= gridSize; col++ {
		x := int(float64(col) * cellW)
		drawVerticalLine(canvas, x, stroke, lineColor)
	}
	for row := 0; row <= gridSize; row++ {
		y := int(float64(row) * cellH)
		drawHorizontalLine(canvas, y, stroke, lineColor)
	}

	gridMap := make(map[string]geometry.LogicalPoint, gridSize*gridSize)
	for col := 0; col < gridSize; col++ {
		for row := 0; row < gridSize; row++ {
			label := cellLabel(col, row)
			physicalCenter := geometry.PhysicalPoint{
				X: int(float64(col)*cellW + cellW/2),
				Y: int(float64(row)*cellH + cellH/2),
			}
			drawLabel(canvas, physicalCenter.X, physicalCenter.Y, label, color.Black)
			gridMap[label] = scale.ToLogical(physicalCenter)
		}
	}

	overlaid, err := encodeBase64PNG(canvas)
	if err != nil {
		return "", nil, err
	}
	return overlaid, gridMap, nil
}

// cellLabel builds the "{column}{row}" label spec §4.A step 4 describes:
// columns A.. left-to-right, rows 1..N top-to-bottom.
func cellLabel(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetters(col), row+1)
}

// columnLetters supports gridSize up to 20 with a spreadsheet-style
// A..Z, AA.. sequence (20 < 26 so a single letter always suffices today,
// but the sequence degrades gracefully if gridSize ever grows).
func columnLetters(col int) string {
	letters := ""
	col++
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return letters
}

func drawFilledCircle(img *image.RGBA, cx, cy, radius int, c color.Color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				img.Set(cx+dx, cy+dy, c)
			}
		}
	}
	// white border
	for angle := 0.0; angle < 360; angle += 2 {
		rad := angle * math.Pi / 180
		x := cx + int(float64(radius)*math.Cos(rad))
		y := cy + int(float64(radius)*math.Sin(rad))
		img.Set(x, y, color.White)
	}
}

func drawVerticalLine(img *image.RGBA, x, width int, c color.Color) {
	bounds := img.Bounds()
	for w := 0; w < width; w++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			img.Set(x+w, y, c)
		}
	}
}

func drawHorizontalLine(img *image.RGBA, y, width int, c color.Color) {
	bounds := img.Bounds()
	for w := 0; w < width; w++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y+w, c)
		}
	}
}

// drawLabel centers a short text label at (cx, cy) using the stdlib-free
// ecosystem bitmap font from golang.org/x/image/font/basicfont.
func drawLabel(img *image.RGBA, cx, cy int, label string, c color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Ceil()
	origin := fixed.P(cx-width/2, cy+4)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  origin,
	}
	d.DrawString(label)
}
