package kittygfx

import "testing"

func TestAddPendingRectMergesVerticallyAdjacent(t *testing.T) {
	s := &Store{}
	r1 := &ImageRect{ImageID: 1, PlacementID: 1, StartCol: 0, EndCol: 1, StartRow: 0, EndRow: 1, CellW: 8, CellH: 16}
	r2 := &ImageRect{ImageID: 1, PlacementID: 1, StartCol: 0, EndCol: 1, StartRow: 2, EndRow: 3, CellW: 8, CellH: 16}

	s.AddPendingRect(r1, nil)
	s.AddPendingRect(r2, nil)

	if len(s.pending) != 1 {
		t.Fatalf("expected merge into 1 rect, got %d", len(s.pending))
	}
	if s.pending[0].EndRow != 3 {
		t.Fatalf("expected merged rect to span to row 3, got %d", s.pending[0].EndRow)
	}
}

func TestAddPendingRectDoesNotMergeDifferentColumns(t *testing.T) {
	s := &Store{}
	r1 := &ImageRect{ImageID: 1, PlacementID: 1, StartCol: 0, EndCol: 1, StartRow: 0, EndRow: 1}
	r2 := &ImageRect{ImageID: 1, PlacementID: 1, StartCol: 2, EndCol: 3, StartRow: 2, EndRow: 3}

	s.AddPendingRect(r1, nil)
	s.AddPendingRect(r2, nil)

	if len(s.pending) != 2 {
		t.Fatalf("expected 2 distinct rects, got %d", len(s.pending))
	}
}

func TestAddPendingRectEvictsLowestBottomWhenFull(t *testing.T) {
	s := &Store{}
	var drawn []*ImageRect
	draw := func(r *ImageRect) { drawn = append(drawn, r) }

	for i := 0; i < MaxPendingRects; i++ {
		s.AddPendingRect(&ImageRect{
			ImageID: uint32(i + 1), PlacementID: 1,
			StartCol: 0, EndCol: 0, StartRow: i, EndRow: i,
			ScreenYPix: i * 16, CellH: 16,
		}, draw)
	}
	if len(s.pending) != MaxPendingRects {
		t.Fatalf("expected %d pending rects, got %d", MaxPendingRects, len(s.pending))
	}

	overflow := &ImageRect{ImageID: 999, PlacementID: 1, StartCol: 5, EndCol: 5, StartRow: 5, EndRow: 5, ScreenYPix: 500, CellH: 16}
	s.AddPendingRect(overflow, draw)

	if len(s.pending) != MaxPendingRects {
		t.Fatalf("expected pending set to stay capped at %d, got %d", MaxPendingRects, len(s.pending))
	}
	if len(drawn) != 1 {
		t.Fatalf("expected exactly 1 rect to be flushed through draw, got %d", len(drawn))
	}
	if drawn[0].ImageID != 1 {
		t.Fatalf("expected the rect with the lowest bottom coordinate (image 1) to be evicted first, got image %d", drawn[0].ImageID)
	}
}
