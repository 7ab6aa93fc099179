// Copyright © 2026 kittygfx contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: kittygfx/store.go
// Summary: Store, the process-wide context object every entry point operates on.

package kittygfx

import (
	"log"
	"math/rand"
	"time"

	"github.com/texelation/kittygfx/config"
)

// Clock returns monotonic milliseconds; tests substitute a deterministic one.
type Clock func() int64

func systemClock() int64 { return time.Now().UnixMilli() }

// CreatePlaceholderFunc is how the store asks the host grid/placeholder
// renderer to reserve a region for a placement.
type CreatePlaceholderFunc func(PlaceholderRequest)

// Store is the process-wide singleton: images map,
// counters, cache dir, init time, pending rects, per-row next-redraw, and
// current cell size, encapsulated in a single context object passed to
// every entry point. It holds no internal lock; the core is single-threaded
// cooperative, and a host calling it from multiple goroutines
// must serialize itself.
type Store struct {
	Config *config.Config
	Surface Surface
	CreatePlaceholder CreatePlaceholderFunc

	Clock Clock
	log   *log.Logger
	rng   *rand.Rand

	images map[uint32]*Image

	diskBytes int64
	ramBytes  int64

	nextCmdIndex uint64

	cache *cacheDir

	// Draw-cycle state.
	drawingStartTime int64
	currentCellW, currentCellH int
	pending []*ImageRect
	rowNextRedraw map[int]int64
}

// NewStore creates a Store. cfg may be nil (defaults are used). surface may
// be nil for tests that never reach the composer. createPlaceholder may be
// nil; placeholder requests are then silently dropped.
func NewStore(cfg *config.Config, surface Surface, createPlaceholder CreatePlaceholderFunc) *Store {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Store{
		Config:            cfg,
		Surface:           surface,
		CreatePlaceholder: createPlaceholder,
		Clock:             systemClock,
		log:               log.New(log.Writer(), "", log.LstdFlags),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		images:            make(map[uint32]*Image),
		rowNextRedraw:     make(map[int]int64),
	}
	s.cache = newCacheDir(cfg.CacheDirTemplate)
	return s
}

// CacheDir returns the live cache directory path, recreating it on demand if
// it vanished.
func (s *Store) CacheDir() (string, error) {
	return s.cache.ensure(func(format string, args ...any) { s.logf("cachedir", format, args...) })
}

// Shutdown removes the cache directory entirely.
func (s *Store) Shutdown() error {
	return s.cache.removeAll()
}

func (s *Store) now() int64 { return s.Clock() }

func (s *Store) logf(component, format string, args ...any) {
	s.log.Printf("kittygfx: "+component+": "+format, args...)
}

func (s *Store) nextCommandIndex() uint64 {
	s.nextCmdIndex++
	return s.nextCmdIndex
}

// ImageByID looks up an image, or nil.
func (s *Store) ImageByID(id uint32) *Image { return s.images[id] }

// ImageByNumber returns the image with the given user-alias number whose
// GlobalCommandIndex is greatest (ties are disambiguated by
// global_command_index), or nil.
func (s *Store) ImageByNumber(number uint32) *Image {
	var best *Image
	for _, img := range s.images {
		if img.Number == number {
			if best == nil || img.GlobalCommandIndex > best.GlobalCommandIndex {
				best = img
			}
		}
	}
	return best
}

// ImageCount returns the number of live images.
func (s *Store) ImageCount() int { return len(s.images) }

// PlacementCount returns the total number of live placements across all images.
func (s *Store) PlacementCount() int {
	n := 0
	for _, img := range s.images {
		n += len(img.Placements)
	}
	return n
}

// DiskBytes returns the global disk-bytes counter.
func (s *Store) DiskBytes() int64 { return s.diskBytes }

// RAMBytes returns the global RAM-bytes counter.
func (s *Store) RAMBytes() int64 { return s.ramBytes }

func (s *Store) addDiskBytes(delta int64) { s.diskBytes += delta }
func (s *Store) addRAMBytes(delta int64)  { s.ramBytes += delta }

// Images returns a snapshot slice of all live images, for tests and eviction.
func (s *Store) Images() []*Image {
	out := make([]*Image, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, img)
	}
	return out
}
