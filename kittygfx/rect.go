package kittygfx

// ImageRect is an ephemeral, per-draw-cycle pending rectangle.
// The coalescer caps live rects at MaxPendingRects.
type ImageRect struct {
	ImageID     uint32
	PlacementID uint32

	StartCol, EndCol int // column sub-range of the placement to draw
	StartRow, EndRow int // row sub-range of the placement to draw

	ScreenXPix, ScreenYPix int // pixel origin on the output

	CellW, CellH int // current cell size when this rect was registered

	Reverse bool
}

// MaxPendingRects bounds the rect coalescer's live set.
const MaxPendingRects = 20
