// Copyright © 2026 kittygfx contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: kittygfx/evict.go
// Summary: Eviction passes enforcing the image-count, placement-count, disk, and RAM budgets.

package kittygfx

import "sort"

// runEvictionPass enforces the four independent budgets, each
// with a tolerance ratio T: enforcement triggers once a population exceeds
// budget*(1+T), and evicts down to the plain budget.
func (s *Store) runEvictionPass() {
	s.enforceImageCount()
	s.enforcePlacementCount()
	s.enforceDiskBytes()
	s.enforceRAMBytes()
}

func (s *Store) limitWithTolerance(budget int64) int64 {
	t := s.Config.ToleranceRatio
	return int64(float64(budget) * (1 + t))
}

func (s *Store) sortedImagesByAtime() []*Image {
	imgs := s.Images()
	sort.Slice(imgs, func(i, j int) bool {
		if imgs[i].Atime != imgs[j].Atime {
			return imgs[i].Atime < imgs[j].Atime
		}
		return imgs[i].GlobalCommandIndex < imgs[j].GlobalCommandIndex
	})
	return imgs
}

func (s *Store) enforceImageCount() {
	budget := s.limitWithTolerance(int64(s.Config.MaxImages))
	if int64(s.ImageCount()) <= budget || s.Config.MaxImages <= 0 {
		return
	}
	imgs := s.sortedImagesByAtime()
	target := s.Config.MaxImages
	for _, img := range imgs {
		if int64(s.ImageCount()) <= int64(target) {
			break
		}
		s.logf("evict", "dropping image %d (atime=%d) over image-count budget", img.ID, img.Atime)
		s.DeleteImage(img.ID)
	}
}

type placementEntry struct {
	img *Image
	p   *Placement
}

func (s *Store) sortedPlacements() []placementEntry {
	var entries []placementEntry
	for _, img := range s.Images() {
		for _, p := range img.Placements {
			entries = append(entries, placementEntry{img: img, p: p})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.p.Atime != b.p.Atime {
			return a.p.Atime < b.p.Atime
		}
		if a.img.GlobalCommandIndex != b.img.GlobalCommandIndex {
			return a.img.GlobalCommandIndex < b.img.GlobalCommandIndex
		}
		return a.p.ID < b.p.ID
	})
	return entries
}

func (s *Store) enforcePlacementCount() {
	budget := s.limitWithTolerance(int64(s.Config.MaxPlacements))
	if int64(s.PlacementCount()) <= budget || s.Config.MaxPlacements <= 0 {
		return
	}
	entries := s.sortedPlacements()
	target := s.Config.MaxPlacements
	for _, e := range entries {
		if int64(s.PlacementCount()) <= int64(target) {
			break
		}
		s.logf("evict", "dropping placement %d on image %d over placement-count budget", e.p.ID, e.img.ID)
		s.DeletePlacement(e.img, e.p.ID)
	}
}

type frameEntry struct {
	img   *Image
	frame *ImageFrame
}

func (s *Store) sortedFramesByAtime() []frameEntry {
	var entries []frameEntry
	for _, img := range s.Images() {
		for i := 1; i < len(img.Frames); i++ {
			f := img.Frames[i]
			if f.DiskSize > 0 {
				entries = append(entries, frameEntry{img: img, frame: f})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.frame.Atime != b.frame.Atime {
			return a.frame.Atime < b.frame.Atime
		}
		return a.img.GlobalCommandIndex < b.img.GlobalCommandIndex
	})
	return entries
}

func (s *Store) enforceDiskBytes() {
	budget := s.limitWithTolerance(s.Config.MaxDiskBytes)
	if s.DiskBytes() <= budget || s.Config.MaxDiskBytes <= 0 {
		return
	}
	entries := s.sortedFramesByAtime()
	for _, e := range entries {
		if s.DiskBytes() <= s.Config.MaxDiskBytes {
			break
		}
		s.logf("evict", "dropping disk file for image %d frame %d over disk-bytes budget (%s)",
			e.img.ID, e.frame.Index(), humanizeBytes(s.DiskBytes()))
		s.freeFrame(e.img, e.frame)
		e.frame.Status = StatusUploadError
	}
}

// ramObject is a single unloadable object: either a frame's
// decoded bitmap, or a single placement pixmap.
type ramObject struct {
	img       *Image
	frame     *ImageFrame
	placement *Placement
	frameIdx  int
	size      int64
	score     float64
}

func (s *Store) collectRAMObjects() []*ramObject {
	now := s.now()
	var objs []*ramObject

	for _, img := range s.Images() {
		recency := 2*img.TotalDuration + 1000
		for i := 1; i < len(img.Frames); i++ {
			f := img.Frames[i]
			if f.DecodedBitmap == nil {
				continue
			}
			base := f.Atime
			objs = append(objs, &ramObject{
				img: img, frame: f, frameIdx: i,
				size:  int64(len(f.DecodedBitmap)) * 4,
				score: s.ramScoreFrame(base, now, recency),
			})
		}
		for _, p := range img.Placements {
			for i := 1; i < len(p.Pixmaps); i++ {
				pm := p.Pixmaps[i]
				if pm == nil {
					continue
				}
				if p.ProtectedFrame == i {
					continue // never evict the pixmap just built
				}
				f := img.Frame(i)
				base := p.Atime
				if f != nil && f.Atime < base {
					base = f.Atime
				}
				decodedSize := int64(0)
				if f != nil && f.DecodedBitmap != nil {
					decodedSize = int64(len(f.DecodedBitmap)) * 4
				}
				pixSize := int64(pm.W) * int64(pm.H) * 4
				objs = append(objs, &ramObject{
					img: img, placement: p, frameIdx: i,
					size:  pixSize,
					score: s.ramScorePixmap(base, now, recency, i, img.CurrentFrame, len(img.Frames)-1, decodedSize, pixSize),
				})
			}
		}
	}
	return objs
}

func (s *Store) ramScoreFrame(atime, now, recency int64) float64 {
	score := float64(atime)
	if now-atime <= recency {
		score = float64(now+1000) + float64(s.rng.Intn(1000))
	}
	return score
}

func (s *Store) ramScorePixmap(atime, now, recency int64, frameIdx, currentFrame, numFrames int, decodedSize, pixSize int64) float64 {
	score := float64(atime)
	if now-atime <= recency {
		score = float64(now + 1000)
		if numFrames > 0 {
			dist := frameIdx - currentFrame
			if dist < 0 {
				dist = -dist
			}
			dist = dist % numFrames
			score += float64(numFrames-dist) / float64(numFrames) * 1000
		}
		ratio := 1.0
		if decodedSize > 0 {
			ratio = float64(pixSize) / float64(decodedSize)
		}
		switch {
		case ratio > 1:
			score -= 1000 // pixmap dominates: prefer unloading it first
		case ratio < 1 && ratio > 0:
			score += 1000 // decoded bitmap dominates: prefer unloading the bitmap first, so keep this pixmap longer
		}
	}
	return score
}

func (s *Store) enforceRAMBytes() {
	budget := s.limitWithTolerance(s.Config.MaxRAMBytes)
	if s.RAMBytes() <= budget || s.Config.MaxRAMBytes <= 0 {
		return
	}
	objs := s.collectRAMObjects()
	sort.Slice(objs, func(i, j int) bool { return objs[i].score < objs[j].score })

	for _, o := range objs {
		if s.RAMBytes() <= s.Config.MaxRAMBytes {
			break
		}
		if o.placement != nil {
			pm := o.placement.pixmapAt(o.frameIdx)
			if pm == nil {
				continue
			}
			s.logf("evict", "dropping pixmap for image %d placement %d frame %d over ram-bytes budget (%s)",
				o.img.ID, o.placement.ID, o.frameIdx, humanizeBytes(s.RAMBytes()))
			s.addRAMBytes(-int64(pm.W) * int64(pm.H) * 4)
			if s.Surface != nil {
				s.Surface.FreePixmap(pm.Handle)
			}
			o.placement.setPixmapAt(o.frameIdx, nil)
		} else if o.frame != nil {
			if o.frame.DecodedBitmap == nil {
				continue
			}
			s.logf("evict", "dropping decoded bitmap for image %d frame %d over ram-bytes budget (%s)",
				o.img.ID, o.frameIdx, humanizeBytes(s.RAMBytes()))
			s.addRAMBytes(-int64(len(o.frame.DecodedBitmap)) * 4)
			o.frame.DecodedBitmap = nil
			if o.frame.Status == StatusRAMLoadingSuccess {
				o.frame.Status = StatusUploadSuccess
			}
		}
	}
}
