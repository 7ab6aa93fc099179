package kittygfx

// NewPlacement creates (or replaces) a placement on img. If id is 0, a fresh
// random 24-bit id is generated.
func (s *Store) NewPlacement(img *Image, id uint32) *Placement {
	if id == 0 {
		id = genPlacementID(s.rng, func(c uint32) bool { _, ok := img.Placements[c]; return ok })
	} else if old, ok := img.Placements[id]; ok {
		s.freePlacementPixmaps(old)
	}
	p := newPlacement(img, id)
	p.touch(s.now())
	img.Placements[id] = p
	if img.DefaultPlacementID == 0 {
		img.DefaultPlacementID = id
	}
	return p
}

// DeletePlacement removes a placement and frees its pixmaps.
func (s *Store) DeletePlacement(img *Image, id uint32) {
	p, ok := img.Placements[id]
	if !ok {
		return
	}
	s.freePlacementPixmaps(p)
	delete(img.Placements, id)
	if img.DefaultPlacementID == id {
		img.DefaultPlacementID = 0
		for otherID := range img.Placements {
			img.DefaultPlacementID = otherID
			break
		}
	}
}

func (s *Store) freePlacementPixmaps(p *Placement) {
	for i, pm := range p.Pixmaps {
		if pm == nil {
			continue
		}
		s.addRAMBytes(-int64(pm.W) * int64(pm.H) * 4)
		if s.Surface != nil {
			s.Surface.FreePixmap(pm.Handle)
		}
		p.Pixmaps[i] = nil
	}
}

// pendingPlacement captures a put command's placement parameters for
// deferred application once an image's canonical pixel size is known.
type pendingPlacement struct {
	placementID     uint32
	virtual         bool
	doNotMoveCursor bool
	rows, cols      int
	srcRect         SrcRect
}

func buildPendingPlacement(cmd *Command) *pendingPlacement {
	return &pendingPlacement{
		placementID:     cmd.PlacementID,
		virtual:         cmd.Virtual,
		doNotMoveCursor: cmd.DoNotMoveCursor,
		rows:            int(cmd.Num4),
		cols:            int(cmd.Num3),
		srcRect:         SrcRect{X: int(cmd.Num5), Y: int(cmd.Num6), W: int(cmd.Num9), H: int(cmd.Num10)},
	}
}

// applyPendingPlacement resolves or creates the placement pp names, sets its
// fields, runs size inference, and fires the placeholder callback. It is the
// single place that actually registers a placement, called either
// immediately (dispatchPut, canonical size already known) or later
// (resolvePendingPut, once it becomes known).
func (s *Store) applyPendingPlacement(img *Image, pp *pendingPlacement) *Placement {
	var p *Placement
	if pp.placementID != 0 {
		if existing, ok := img.Placements[pp.placementID]; ok {
			p = existing
		}
	}
	if p == nil {
		p = s.NewPlacement(img, pp.placementID)
	}

	p.Virtual = pp.virtual
	p.DoNotMoveCursor = pp.doNotMoveCursor
	p.Rows = pp.rows
	p.Cols = pp.cols
	p.SrcRect = pp.srcRect
	p.ScaleMode = DefaultScaleMode(p.Virtual, p.Rows > 0, p.Cols > 0)

	s.InferSizeIfNeeded(img, p, s.currentCellW, s.currentCellH)
	p.touch(s.now())
	img.InitialPlacementID = p.ID

	if s.CreatePlaceholder != nil {
		s.CreatePlaceholder(PlaceholderRequest{ImageID: img.ID, PlacementID: p.ID, Rows: p.Rows, Cols: p.Cols})
	}
	return p
}

// resolvePendingPut applies img's deferred put, if any, once its canonical
// pixel size has become known. Called after a frame finishes uploading and
// after a frame is decoded, the two points at which that size can first
// become available.
func (s *Store) resolvePendingPut(img *Image) {
	pp := img.pendingPut
	if pp == nil || (img.PixWidth == 0 && img.PixHeight == 0) {
		return
	}
	img.pendingPut = nil
	s.applyPendingPlacement(img, pp)
}

// InferSizeIfNeeded runs the size-inference algorithm. It clamps SrcRect to
// the image bounds on every call and is safe to call again before every
// pixmap build. Rows/Cols are derived only while one of them is still 0; once
// both are positive they are kept, so a later call with a different cell size
// does not re-derive them. currentCW/currentCH of 0 defer inference entirely: if the
// host has never called start_drawing, a put command cannot finalise
// the placement's cell dimensions.
func (s *Store) InferSizeIfNeeded(img *Image, p *Placement, currentCW, currentCH int) {
	sr := &p.SrcRect
	if sr.X < 0 {
		sr.X = 0
	}
	if sr.Y < 0 {
		sr.Y = 0
	}
	if sr.X > img.PixWidth {
		sr.X = img.PixWidth
	}
	if sr.Y > img.PixHeight {
		sr.Y = img.PixHeight
	}
	if sr.W <= 0 {
		sr.W = img.PixWidth - sr.X
	}
	if sr.H <= 0 {
		sr.H = img.PixHeight - sr.Y
	}
	if sr.X+sr.W > img.PixWidth {
		sr.W = img.PixWidth - sr.X
	}
	if sr.Y+sr.H > img.PixHeight {
		sr.H = img.PixHeight - sr.Y
	}

	if p.Rows > 0 && p.Cols > 0 {
		return
	}
	if currentCW <= 0 || currentCH <= 0 {
		return // defer: no cell size known yet
	}

	switch {
	case p.Rows == 0 && p.Cols == 0:
		p.Cols = ceilDiv(sr.W, currentCW)
		p.Rows = ceilDiv(sr.H, currentCH)
	case p.Cols == 0:
		p.Cols = deriveOtherDim(p.ScaleMode, sr.W, sr.H, p.Rows*currentCH, currentCW)
	case p.Rows == 0:
		p.Rows = deriveOtherDimRows(p.ScaleMode, sr.W, sr.H, p.Cols*currentCW, currentCH)
	}
	if p.Rows <= 0 {
		p.Rows = 1
	}
	if p.Cols <= 0 {
		p.Cols = 1
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// deriveOtherDim derives Cols in pixels-then-cells when Rows is known and
// Cols is 0. contain preserves the src aspect ratio; other modes derive from
// src pixel size alone.
func deriveOtherDim(mode ScaleMode, srcW, srcH, givenPixH, cellW int) int {
	if mode == ScaleContain && srcH > 0 {
		pixW := srcW * givenPixH / srcH
		return ceilDiv(pixW, cellW)
	}
	return ceilDiv(srcW, cellW)
}

func deriveOtherDimRows(mode ScaleMode, srcW, srcH, givenPixW, cellH int) int {
	if mode == ScaleContain && srcW > 0 {
		pixH := srcH * givenPixW / srcW
		return ceilDiv(pixH, cellH)
	}
	return ceilDiv(srcH, cellH)
}
