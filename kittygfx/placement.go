package kittygfx

// ScaleMode controls how a placement's src rect maps onto its cell extent.
type ScaleMode int

const (
	ScaleFill ScaleMode = iota
	ScaleContain
	ScaleNone
	ScaleNoneOrContain
)

// DefaultScaleMode picks the scale mode derived at placement-creation time
// from which dimensions were specified: both rows and cols
// given => fill; exactly one => contain; neither => none. Virtual
// (Unicode-diacritic) placements always default to contain.
func DefaultScaleMode(virtual bool, haveRows, haveCols bool) ScaleMode {
	if virtual {
		return ScaleContain
	}
	switch {
	case haveRows && haveCols:
		return ScaleFill
	case haveRows || haveCols:
		return ScaleContain
	default:
		return ScaleNone
	}
}

// SrcRect is a pixel sub-rectangle of the source image.
type SrcRect struct {
	X, Y, W, H int
}

// Placement is a declaration that an image should be displayed at a
// particular cell extent, belonging to exactly one Image.
type Placement struct {
	owner *Image

	ID    uint32
	Atime int64

	Virtual bool

	ScaleMode ScaleMode
	Rows, Cols int // display size in cells; may be 0 until inferred

	SrcRect SrcRect

	DoNotMoveCursor bool

	ScaledCellW, ScaledCellH int // cell size pixmaps were built for; 0 = never built

	// Pixmaps is a sparse array indexed by frame index (1-based); index 0
	// unused, matching Image.Frames.
	Pixmaps []*Pixmap

	// ProtectedFrame marks the pixmap currently being (re)built so the
	// eviction pass triggered by that same build cannot evict it.
	// 0 = not protected.
	ProtectedFrame int

	sizeInferred bool
}

// Pixmap is a scaled, premultiplied RGBA buffer living on the surface,
// keyed by (placement, frame, cell size) per the glossary.
type Pixmap struct {
	Handle PixmapHandle
	W, H   int // pixel dimensions
}

func newPlacement(owner *Image, id uint32) *Placement {
	return &Placement{
		owner:   owner,
		ID:      id,
		Pixmaps: make([]*Pixmap, 1, 4),
	}
}

func (p *Placement) Owner() *Image { return p.owner }

func (p *Placement) pixmapAt(frameIndex int) *Pixmap {
	if frameIndex < 1 || frameIndex >= len(p.Pixmaps) {
		return nil
	}
	return p.Pixmaps[frameIndex]
}

func (p *Placement) setPixmapAt(frameIndex int, pm *Pixmap) {
	for frameIndex >= len(p.Pixmaps) {
		p.Pixmaps = append(p.Pixmaps, nil)
	}
	p.Pixmaps[frameIndex] = pm
}

func (p *Placement) touch(now int64) {
	p.Atime = now
	if p.owner != nil {
		p.owner.touch(now)
	}
}
