package analysis

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

type Point struct{ X, Y float64 }

// PhasePortrait pairs position and velocity along axis for every sample.
func PhasePortrait(tr Trajectory, axis int) []Point {
	out := make([]Point, tr.Len())
	for i := range out {
		out[i] = Point{X: tr.Positions[i][axis], Y: tr.Velocities[i][axis]}
	}
	return out
}

// PlotASCII scatters points onto a width x height character grid, drawing
// the axes where they are in view.
func PlotASCII(points []Point, width, height int) string {
	if len(points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := bounds(points)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	for _, p := range points {
		r, c := row(p.Y), col(p.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			grid[r][c] = '•'
		}
	}
	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := 0; r < height; r++ {
			if grid[r][c] == ' ' {
				grid[r][c] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := 0; c < width; c++ {
			if grid[r][c] == ' ' {
				grid[r][c] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, line := range grid {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
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

// Crossings returns the interpolated times at which the coordinate along
// axis rises through level.
func Crossings(tr Trajectory, axis int, level float64) []float64 {
	var out []float64
	for i := 1; i < tr.Len(); i++ {
		prev, cur := tr.Positions[i-1][axis], tr.Positions[i][axis]
		if prev >= level || cur < level {
			continue
		}
		frac := (level - prev) / (cur - prev)
		out = append(out, tr.Times[i-1]+frac*(tr.Times[i]-tr.Times[i-1]))
	}
	return out
}

// Period is the mean spacing of successive crossings and its standard
// deviation. ok is false with fewer than two crossings.
func Period(crossings []float64) (mean, std float64, ok bool) {
	if len(crossings) < 2 {
		return 0, 0, false
	}
	gaps := make([]float64, len(crossings)-1)
	for i := range gaps {
		gaps[i] = crossings[i+1] - crossings[i]
	}
	if len(gaps) == 1 {
		return gaps[0], 0, true
	}
	mean, std = stat.MeanStdDev(gaps, nil)
	return mean, std, true
}
