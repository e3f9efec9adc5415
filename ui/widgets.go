package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/inkflux/sim"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight + 2
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawMeter draws value/scale as a bar with a marker at threshold/scale.
// The bar turns hot once value passes the threshold. A threshold <= 0 hides the marker.
func (r *Renderer) DrawMeter(x, y int32, label string, value, threshold, scale float64, width int32) int32 {
	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth - 50

	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, r.Theme.BarHeight, r.Theme.BarBg)

	fill := r.Theme.BarFill
	if threshold > 0 && value > threshold {
		fill = r.Theme.BarFillHot
	}
	rl.DrawRectangle(barX, y+2, int32(float64(barWidth)*unit(value, scale)), r.Theme.BarHeight, fill)
	if threshold > 0 {
		mx := barX + int32(float64(barWidth)*unit(threshold, scale))
		rl.DrawLine(mx, y, mx, y+r.Theme.BarHeight+4, r.Theme.Marker)
	}

	rl.DrawText(fmt.Sprintf("%.3f", value), barX+barWidth+5, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight + 2
}

// DrawSparkline draws values/scale as one column per value. Columns are
// squeezed to fit when there are more values than pixels.
func (r *Renderer) DrawSparkline(x, y int32, label string, values []float64, scale float64, width int32) int32 {
	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth
	height := r.Theme.LineHeight + 4

	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(barX, y, barWidth, height, r.Theme.BarBg)
	if n := int32(len(values)); n > 0 {
		for i, v := range values {
			cx := barX + int32(i)*barWidth/n
			h := int32(float64(height) * unit(v, scale))
			rl.DrawLine(cx, y+height, cx, y+height-h, r.Theme.BarFill)
		}
	}
	return y + height + 4
}

// DrawColorSwatch draws a labelled color square.
func (r *Renderer) DrawColorSwatch(x, y int32, label string, c sim.Color) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(x+r.Theme.LabelWidth, y+1, 24, 12, ToRGBA(c))
	rl.DrawRectangleLines(x+r.Theme.LabelWidth, y+1, 24, 12, r.Theme.PanelBorder)
	return y + r.Theme.LineHeight
}

// ToRGBA converts a [0,1] color to 8-bit, clamping each channel.
func ToRGBA(c sim.Color) rl.Color {
	return rl.Color{
		R: uint8(255 * unit(c.R, 1)),
		G: uint8(255 * unit(c.G, 1)),
		B: uint8(255 * unit(c.B, 1)),
		A: 255,
	}
}

func unit(v, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return min(max(v/scale, 0), 1)
}
