package readings

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
)

const (
	PlotWidth  = 640
	PlotHeight = 480

	plotMargin = 40
	markerSize = 2
)

var ErrNoReadings = errors.New("no readings to plot")

var (
	axisColor = color.Gray{Y: 0x80}
	lineColor = color.Black
)

// Plot renders temperature over elapsed seconds as a PNG line chart with a marker at each reading.
func Plot(w io.Writer, rs []Reading) error {
	if len(rs) == 0 {
		return ErrNoReadings
	}

	minX, maxX := float64(rs[0].ElapsedSec), float64(rs[0].ElapsedSec)
	minY, maxY := rs[0].Temperature, rs[0].Temperature
	for _, r := range rs[1:] {
		minX = min(minX, float64(r.ElapsedSec))
		maxX = max(maxX, float64(r.ElapsedSec))
		minY = min(minY, r.Temperature)
		maxY = max(maxY, r.Temperature)
	}
	// a flat series would otherwise divide by zero
	if minX == maxX {
		minX, maxX = minX-1, maxX+1
	}
	if minY == maxY {
		minY, maxY = minY-1, maxY+1
	}

	img := image.NewRGBA(image.Rect(0, 0, PlotWidth, PlotHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	left, right := plotMargin, PlotWidth-plotMargin
	top, bottom := plotMargin, PlotHeight-plotMargin
	drawLine(img, image.Pt(left, bottom), image.Pt(right, bottom), axisColor)
	drawLine(img, image.Pt(left, bottom), image.Pt(left, top), axisColor)

	toPixel := func(r Reading) image.Point {
		x := left + int((float64(r.ElapsedSec)-minX)/(maxX-minX)*float64(right-left)+0.5)
		y := bottom - int((r.Temperature-minY)/(maxY-minY)*float64(bottom-top)+0.5)
		return image.Pt(x, y)
	}

	prev := toPixel(rs[0])
	for i, r := range rs {
		p := toPixel(r)
		if i > 0 {
			drawLine(img, prev, p, lineColor)
		}
		marker := image.Rect(p.X-markerSize, p.Y-markerSize, p.X+markerSize+1, p.Y+markerSize+1)
		draw.Draw(img, marker, image.NewUniform(lineColor), image.Point{}, draw.Src)
		prev = p
	}

	return png.Encode(w, img)
}

// drawLine is Bresenham's line algorithm.
func drawLine(img draw.Image, from, to image.Point, c color.Color) {
	dx, dy := abs(to.X-from.X), -abs(to.Y-from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	e := dx + dy
	x, y := from.X, from.Y
	for {
		img.Set(x, y, c)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
