package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/rigidsim/internal/viz"
)

// Palette colors successive series.
var Palette = []string{"#00ffff", "#ff00ff", "#ffcc00", "#00ff88", "#ff6b6b", "#0088ff", "#ffffff"}

const background = "#0a0a0a"

// CanvasToSVG draws every lit braille dot of canvas as a circle. scale is
// the dot pitch in pixels.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	dw, dh := canvas.Dots()
	width, height := float64(dw)*scale, float64(dh)*scale

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")
	r := scale * 0.4
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

type Point struct{ X, Y float64 }

// Series is one labelled polyline, e.g. the path of a body projected onto
// a plane.
type Series struct {
	Label  string
	Points []Point
}

// TrajectoriesToSVG plots the series on shared axes with a legend. Series
// with fewer than two points are skipped; "" is returned when none remain.
func TrajectoriesToSVG(series []Series, width, height int) string {
	var drawn []Series
	var all []Point
	for _, s := range series {
		if len(s.Points) >= 2 {
			drawn = append(drawn, s)
			all = append(all, s.Points...)
		}
	}
	if len(drawn) == 0 {
		return ""
	}
	minX, maxX, minY, maxY := bounds(all)
	rangeX, rangeY := maxX-minX, maxY-minY

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	for i, s := range drawn {
		color := Palette[i%len(Palette)]
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", color)
		for j, p := range s.Points {
			x := (p.X - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-minY)/rangeY*float64(height)
			if j == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		if s.Label != "" {
			fmt.Fprintf(&sb, "<text x=\"8\" y=\"%d\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s</text>\n",
				16+14*i, color, escape(s.Label))
		}
	}
	sb.WriteString("</svg>")
	return sb.String()
}

func header(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// bounds pads the extent of points by 10% on each side.
func bounds(points []Point) (minX, maxX, minY, maxY float64) {
	minX, maxX = points[0].X, points[0].X
	minY, maxY = points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	rx, ry := maxX-minX, maxY-minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	return minX - rx*0.1, maxX + rx*0.1, minY - ry*0.1, maxY + ry*0.1
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
