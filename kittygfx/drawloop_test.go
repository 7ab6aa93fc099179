package kittygfx

import (
	"testing"

	"github.com/texelation/kittygfx/config"
)

func newTestStoreWithSurface(t *testing.T) (*Store, *fakeSurface) {
	t.Helper()
	cfg := config.Default()
	cfg.CacheDirTemplate = "kittygfx-test-*"
	surf := newFakeSurface()
	s := NewStore(cfg, surf, nil)
	t.Cleanup(func() { s.Shutdown() })
	return s, surf
}

func TestFinishDrawingBuildsAndComposites(t *testing.T) {
	s, surf := newTestStoreWithSurface(t)
	transmitRaw32(t, s, 1, 2, 2)
	s.Dispatch(ParseCommand([]byte("Ga=p,i=1,c=1,r=1")))

	s.StartDrawing(0, 8, 16)
	img := s.ImageByID(1)
	p := img.Placements[img.DefaultPlacementID]

	r := &ImageRect{
		ImageID: 1, PlacementID: p.ID,
		StartCol: 0, EndCol: 0, StartRow: 0, EndRow: 0,
		ScreenXPix: 0, ScreenYPix: 0, CellW: 8, CellH: 16,
	}
	s.AddPendingRect(r, nil)
	s.FinishDrawing(nil)

	if len(surf.composites) != 1 {
		t.Fatalf("expected 1 composite call, got %d", len(surf.composites))
	}
	if len(s.pending) != 0 {
		t.Fatalf("expected pending rects to be drained")
	}
}

func TestFinishDrawingReverseUsesInvertAndSrc(t *testing.T) {
	s, surf := newTestStoreWithSurface(t)
	transmitRaw32(t, s, 1, 2, 2)
	s.Dispatch(ParseCommand([]byte("Ga=p,i=1,c=1,r=1")))
	s.StartDrawing(0, 8, 16)

	img := s.ImageByID(1)
	p := img.Placements[img.DefaultPlacementID]
	r := &ImageRect{
		ImageID: 1, PlacementID: p.ID,
		StartCol: 0, EndCol: 0, StartRow: 0, EndRow: 0,
		CellW: 8, CellH: 16, Reverse: true,
	}
	s.AddPendingRect(r, nil)
	s.FinishDrawing(nil)

	if len(surf.composites) != 1 {
		t.Fatalf("expected 1 composite call, got %d", len(surf.composites))
	}
	if surf.composites[0].op != OpSrc {
		t.Fatalf("expected reverse-video composite to use OpSrc, got %v", surf.composites[0].op)
	}
}

func TestMarkDirtyAnimationsReturnsDueRows(t *testing.T) {
	s := newTestStore(t)
	var clockVal int64
	s.Clock = func() int64 { return clockVal }

	transmitRaw32(t, s, 1, 2, 2)
	img := s.ImageByID(1)
	img.AnimationState = AnimLooping
	f2 := s.AppendFrame(img)
	f2.GapMS = 100
	f2.Status = StatusUploadSuccess
	img.TotalDuration = 100

	s.rowNextRedraw[3] = 50
	clockVal = 100
	due := s.MarkDirtyAnimations(clockVal)

	found := false
	for _, row := range due {
		if row == 3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected row 3 to be due at t=100, got %v", due)
	}
	if _, ok := s.rowNextRedraw[3]; ok {
		t.Fatalf("expected due row to be cleared from the schedule")
	}
}
