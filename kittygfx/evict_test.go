package kittygfx

import (
	"testing"

	"github.com/texelation/kittygfx/config"
)

func TestEnforceImageCountEvictsOldest(t *testing.T) {
	s := newTestStore(t)
	s.Config.MaxImages = 2
	s.Config.ToleranceRatio = 0

	var clockVal int64
	s.Clock = func() int64 { return clockVal }

	for i := uint32(1); i <= 3; i++ {
		clockVal = int64(i)
		transmitRaw32(t, s, i, 1, 1)
	}

	if s.ImageCount() != 2 {
		t.Fatalf("image count = %d, want 2 after eviction", s.ImageCount())
	}
	if s.ImageByID(1) != nil {
		t.Fatalf("expected oldest image (1) to be evicted")
	}
	if s.ImageByID(2) == nil || s.ImageByID(3) == nil {
		t.Fatalf("expected the two newest images to survive")
	}
}

func TestEnforcePlacementCountEvictsOldest(t *testing.T) {
	s := newTestStore(t)
	s.Config.MaxPlacements = 1
	s.Config.ToleranceRatio = 0

	transmitRaw32(t, s, 1, 1, 1)
	var at int64
	s.Clock = func() int64 { return at }

	at = 1
	s.NewPlacement(s.ImageByID(1), 0).touch(at)
	s.runEvictionPass()
	at = 2
	p2 := s.NewPlacement(s.ImageByID(1), 0)
	p2.touch(at)
	s.runEvictionPass()

	if s.PlacementCount() != 1 {
		t.Fatalf("placement count = %d, want 1", s.PlacementCount())
	}
}

func TestEnforceDiskBytesEvictsOldestFrame(t *testing.T) {
	s := newTestStore(t)
	cfg := config.Default()
	cfg.MaxDiskBytes = 20
	cfg.ToleranceRatio = 0
	cfg.CacheDirTemplate = "kittygfx-test-*"
	s.Config = cfg

	var clockVal int64
	s.Clock = func() int64 { return clockVal }

	clockVal = 1
	transmitRaw32(t, s, 1, 2, 2) // 16 bytes
	clockVal = 2
	transmitRaw32(t, s, 2, 2, 2) // another 16 bytes, total 32 > 20

	if s.DiskBytes() > 20 {
		t.Fatalf("disk bytes = %d, want <= 20 after eviction", s.DiskBytes())
	}
}

func TestEnforceRAMBytesDropsDecodedBitmap(t *testing.T) {
	s := newTestStore(t)
	transmitRaw32(t, s, 1, 4, 4)
	img := s.ImageByID(1)
	f := img.Frame(1)
	if err := s.EnsureDecoded(img, f); err != nil {
		t.Fatalf("EnsureDecoded: %v", err)
	}
	if f.DecodedBitmap == nil {
		t.Fatalf("expected decoded bitmap")
	}

	s.Config.MaxRAMBytes = 1
	s.Config.ToleranceRatio = 0
	s.runEvictionPass()

	if f.DecodedBitmap != nil {
		t.Fatalf("expected decoded bitmap to be evicted under ram-bytes pressure")
	}
}
