package kittygfx

// StartDrawing begins a draw cycle: records the cycle's start time and the
// cell size currently in effect. Pixmaps built for a different cell size are
// not freed here; BuildPixmap replaces them when it next draws the placement.
func (s *Store) StartDrawing(now int64, cellW, cellH int) {
	s.drawingStartTime = now
	s.currentCellW, s.currentCellH = cellW, cellH
}

// AppendImageRect registers one row/column span of a placement as needing a
// redraw this cycle, coalescing it with adjacent pending rects and, when the
// pending set is full, flushing the rect with the lowest bottom screen
// coordinate through draw.
func (s *Store) AppendImageRect(r *ImageRect, draw func(*ImageRect)) {
	s.AddPendingRect(r, draw)
}

// FinishDrawing drains the remaining pending rects, building (or reusing)
// each placement's pixmap and compositing it onto the surface, then
// registers each row's next animation redraw time.
func (s *Store) FinishDrawing(draw func(*ImageRect)) {
	for _, r := range s.pending {
		s.drawRect(r, draw)
	}
	s.ClearPendingRects()
}

func (s *Store) drawRect(r *ImageRect, draw func(*ImageRect)) {
	img := s.ImageByID(r.ImageID)
	if img == nil {
		return
	}
	p, ok := img.Placements[r.PlacementID]
	if !ok {
		return
	}

	frameIdx := img.CurrentFrame
	if frameIdx == 0 {
		frameIdx = 1
	}
	pm, err := s.BuildPixmap(img, p, frameIdx, r.CellW, r.CellH)
	if err != nil {
		s.logf("drawloop", "build pixmap for image %d placement %d: %v", img.ID, p.ID, err)
		return
	}

	src := Rect{
		X: (r.StartCol - 0) * r.CellW, Y: (r.StartRow - 0) * r.CellH,
		W: (r.EndCol - r.StartCol + 1) * r.CellW, H: (r.EndRow - r.StartRow + 1) * r.CellH,
	}
	dst := Rect{X: r.ScreenXPix, Y: r.ScreenYPix, W: src.W, H: src.H}

	if s.Surface != nil {
		handle := pm.Handle
		op := OpOver
		if r.Reverse {
			inv, err := s.Surface.InvertCopy(pm.Handle, pm.W, pm.H)
			if err == nil {
				handle = inv
				op = OpSrc
			}
		}
		if err := s.Surface.Composite(handle, src, dst, op); err != nil {
			s.logf("drawloop", "composite image %d placement %d: %v", img.ID, p.ID, err)
		}
	}

	if draw != nil {
		draw(r)
	}
	s.registerRowRedraw(r, img)
}

func (s *Store) registerRowRedraw(r *ImageRect, img *Image) {
	if img.NextRedraw == 0 {
		return
	}
	for row := r.StartRow; row <= r.EndRow; row++ {
		if cur, ok := s.rowNextRedraw[row]; !ok || img.NextRedraw < cur {
			s.rowNextRedraw[row] = img.NextRedraw
		}
	}
}

// MarkDirtyAnimations advances every live animated image to now and returns
// the rows whose registered next-redraw time has arrived, clearing their
// entries so the caller can re-register them on the following draw cycle.
func (s *Store) MarkDirtyAnimations(now int64) []int {
	for _, img := range s.Images() {
		if img.AnimationState == AnimLooping || img.AnimationState == AnimLoading {
			s.Advance(img, now)
		}
	}

	var dueRows []int
	for row, at := range s.rowNextRedraw {
		if at <= now {
			dueRows = append(dueRows, row)
			delete(s.rowNextRedraw, row)
		}
	}
	return dueRows
}
