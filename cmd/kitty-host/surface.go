package main

import (
	"github.com/gdamore/tcell/v2"

	"github.com/texelation/kittygfx/kittygfx"
)

// cellSurface is a kittygfx.Surface backed by plain ARGB32 buffers in
// process memory. Since tcell only exposes a character grid, Composite
// down-samples the composited rectangle to one averaged color per terminal
// cell instead of true per-pixel output.
type cellSurface struct {
	cellW, cellH int

	nextHandle int
	pixmaps    map[int]*pixmapBuf

	// grid holds the last color composited into each (col, row) cell.
	grid map[[2]int]tcell.Color
}

type pixmapBuf struct {
	argb []uint32
	w, h int
}

func newCellSurface(cellW, cellH int) *cellSurface {
	return &cellSurface{
		cellW:   cellW,
		cellH:   cellH,
		pixmaps: make(map[int]*pixmapBuf),
		grid:    make(map[[2]int]tcell.Color),
	}
}

func (s *cellSurface) AllocatePixmap(w, h int) (kittygfx.PixmapHandle, error) {
	s.nextHandle++
	s.pixmaps[s.nextHandle] = &pixmapBuf{argb: make([]uint32, w*h), w: w, h: h}
	return s.nextHandle, nil
}

func (s *cellSurface) UploadPremultiplied(p kittygfx.PixmapHandle, argb []uint32, w, h int) error {
	buf := s.pixmaps[p.(int)]
	if buf == nil {
		buf = &pixmapBuf{}
		s.pixmaps[p.(int)] = buf
	}
	buf.argb = append(buf.argb[:0], argb...)
	buf.w, buf.h = w, h
	return nil
}

func (s *cellSurface) Composite(src kittygfx.PixmapHandle, srcRect, dstRect kittygfx.Rect, op kittygfx.CompositeOp) error {
	buf := s.pixmaps[src.(int)]
	if buf == nil {
		return nil
	}
	startCol := dstRect.X / maxInt(s.cellW, 1)
	startRow := dstRect.Y / maxInt(s.cellH, 1)
	cols := maxInt(dstRect.W/maxInt(s.cellW, 1), 1)
	rows := maxInt(dstRect.H/maxInt(s.cellH, 1), 1)

	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			cell := kittygfx.Rect{X: srcRect.X + c*s.cellW, Y: srcRect.Y + r*s.cellH, W: s.cellW, H: s.cellH}
			s.grid[[2]int{startCol + c, startRow + r}] = avgColor(buf, cell)
		}
	}
	return nil
}

func (s *cellSurface) InvertCopy(src kittygfx.PixmapHandle, w, h int) (kittygfx.PixmapHandle, error) {
	buf := s.pixmaps[src.(int)]
	if buf == nil {
		return s.AllocatePixmap(w, h)
	}
	inv := make([]uint32, len(buf.argb))
	for i, px := range buf.argb {
		inv[i] = px ^ 0x00ffffff
	}
	s.nextHandle++
	s.pixmaps[s.nextHandle] = &pixmapBuf{argb: inv, w: buf.w, h: buf.h}
	return s.nextHandle, nil
}

func (s *cellSurface) FreePixmap(p kittygfx.PixmapHandle) error {
	delete(s.pixmaps, p.(int))
	return nil
}

func (s *cellSurface) cellColor(col, row int) (tcell.Color, bool) {
	c, ok := s.grid[[2]int{col, row}]
	return c, ok
}

func avgColor(buf *pixmapBuf, r kittygfx.Rect) tcell.Color {
	x0, y0, x1, y1 := r.X, r.Y, r.X+r.W, r.Y+r.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > buf.w {
		x1 = buf.w
	}
	if y1 > buf.h {
		y1 = buf.h
	}
	var sumR, sumG, sumB, n int64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			px := buf.argb[y*buf.w+x]
			sumR += int64((px >> 16) & 0xff)
			sumG += int64((px >> 8) & 0xff)
			sumB += int64(px & 0xff)
			n++
		}
	}
	if n == 0 {
		return tcell.ColorBlack
	}
	return tcell.NewRGBColor(int32(sumR/n), int32(sumG/n), int32(sumB/n))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
