package kittygfx

import "testing"

func newAnimatedImage(t *testing.T, gaps ...int32) *Image {
	t.Helper()
	img := newImage(2, 1)
	for _, g := range gaps {
		img.Frames = append(img.Frames, &ImageFrame{owner: img, index: len(img.Frames), GapMS: g, Status: StatusUploadSuccess})
	}
	var total int64
	for _, f := range img.Frames[1:] {
		total += f.EffectiveGap()
	}
	img.TotalDuration = total
	img.AnimationState = AnimLooping
	return img
}

func TestAdvanceStepsThroughFrames(t *testing.T) {
	s := &Store{}
	img := newAnimatedImage(t, 100, 200, 50)

	s.Advance(img, 0)
	if img.CurrentFrame != 1 || img.NextRedraw != 100 {
		t.Fatalf("t=0: frame=%d next=%d, want frame=1 next=100", img.CurrentFrame, img.NextRedraw)
	}

	s.Advance(img, 150)
	if img.CurrentFrame != 2 || img.NextRedraw != 300 {
		t.Fatalf("t=150: frame=%d next=%d, want frame=2 next=300", img.CurrentFrame, img.NextRedraw)
	}

	s.Advance(img, 360)
	if img.CurrentFrame != 1 {
		t.Fatalf("t=360: frame=%d, want wraparound to frame 1", img.CurrentFrame)
	}
}

func TestAdvanceIdempotentForSameTime(t *testing.T) {
	s := &Store{}
	img := newAnimatedImage(t, 100, 200, 50)
	s.Advance(img, 150)
	frame, redraw := img.CurrentFrame, img.NextRedraw
	s.Advance(img, 150)
	if img.CurrentFrame != frame || img.NextRedraw != redraw {
		t.Fatalf("second Advance at same time changed state: got frame=%d redraw=%d", img.CurrentFrame, img.NextRedraw)
	}
}

func TestAdvanceStoppedImageDoesNothing(t *testing.T) {
	s := &Store{}
	img := newAnimatedImage(t, 100, 200)
	img.AnimationState = AnimStopped
	s.Advance(img, 500)
	if img.CurrentFrame != 0 {
		t.Fatalf("expected stopped image to never initialise current frame, got %d", img.CurrentFrame)
	}
}

func TestAdvanceGaplessFramesDoNotHang(t *testing.T) {
	s := &Store{}
	img := newAnimatedImage(t, -1, -1, -1)
	s.Advance(img, 1000)
	if img.CurrentFrame < 1 || img.CurrentFrame > 3 {
		t.Fatalf("expected Advance to terminate with a valid frame, got %d", img.CurrentFrame)
	}
}

func TestAdvanceLoadingStopsAtLastUploaded(t *testing.T) {
	s := &Store{}
	img := newAnimatedImage(t, 100, 200, 50)
	img.AnimationState = AnimLoading
	img.Frames[3].Status = StatusUploading // last frame still mid-upload

	s.Advance(img, 0)
	s.Advance(img, 1000)
	if img.CurrentFrame != 2 {
		t.Fatalf("expected loading animation to stall at last uploaded frame (2), got %d", img.CurrentFrame)
	}
}
