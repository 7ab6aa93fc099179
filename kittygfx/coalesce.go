package kittygfx

// AddPendingRect registers a rectangle of a placement that needs to be
// redrawn this draw cycle. If an existing pending rect for the same
// placement is vertically adjacent (same columns, abutting rows) it is
// merged into a single rect instead of appended. When the pending set is
// already at MaxPendingRects, the rect with the lowest bottom screen
// coordinate is drawn immediately (by the caller-supplied draw func) and
// evicted to make room.
func (s *Store) AddPendingRect(r *ImageRect, draw func(*ImageRect)) {
	for _, existing := range s.pending {
		if mergeVertically(existing, r) {
			return
		}
	}

	if len(s.pending) >= MaxPendingRects {
		victim := s.lowestBottomRect()
		if victim != nil && draw != nil {
			draw(victim)
		}
		s.removePending(victim)
	}

	s.pending = append(s.pending, r)
}

// mergeVertically extends dst in place to cover src if they belong to the
// same placement, share the same columns, and abut along rows (src directly
// above or below dst with no gap).
func mergeVertically(dst, src *ImageRect) bool {
	if dst.ImageID != src.ImageID || dst.PlacementID != src.PlacementID {
		return false
	}
	if dst.StartCol != src.StartCol || dst.EndCol != src.EndCol {
		return false
	}
	switch {
	case src.StartRow == dst.EndRow+1:
		dst.EndRow = src.EndRow
		dst.Reverse = dst.Reverse || src.Reverse
		return true
	case src.EndRow+1 == dst.StartRow:
		dst.StartRow = src.StartRow
		dst.Reverse = dst.Reverse || src.Reverse
		return true
	case src.StartRow >= dst.StartRow && src.EndRow <= dst.EndRow:
		dst.Reverse = dst.Reverse || src.Reverse
		return true // fully contained, nothing new to add
	}
	return false
}

func (s *Store) lowestBottomRect() *ImageRect {
	var victim *ImageRect
	bottom := -1
	for _, r := range s.pending {
		b := r.ScreenYPix + (r.EndRow-r.StartRow+1)*r.CellH
		if victim == nil || b < bottom {
			bottom = b
			victim = r
		}
	}
	return victim
}

func (s *Store) removePending(r *ImageRect) {
	if r == nil {
		return
	}
	for i, p := range s.pending {
		if p == r {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// PendingRects returns the live pending-rect set, for the draw loop to drain.
func (s *Store) PendingRects() []*ImageRect {
	return s.pending
}

// ClearPendingRects empties the pending set, called once the draw loop has
// consumed it.
func (s *Store) ClearPendingRects() {
	s.pending = nil
}
