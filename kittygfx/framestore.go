package kittygfx

import (
	"fmt"
	"os"
)

// NewImage creates (or replaces) an image. If id is 0, a fresh random id is
// generated. If an image with id already exists, it is deleted
// first.
func (s *Store) NewImage(id uint32) *Image {
	if id == 0 {
		id = genImageID(s.rng, func(c uint32) bool { _, ok := s.images[c]; return ok })
	} else if _, ok := s.images[id]; ok {
		s.DeleteImage(id)
	}
	img := newImage(id, s.nextCommandIndex())
	img.touch(s.now())
	s.images[id] = img
	return img
}

// DeleteImage removes an image's files, decoded bitmaps, placements, and the
// map entry. The owning map entry is nulled first, per the weak-back-pointer
// discipline: never observe a dangling back-pointer.
func (s *Store) DeleteImage(id uint32) {
	img, ok := s.images[id]
	if !ok {
		return
	}
	delete(s.images, id)

	for _, p := range img.Placements {
		s.freePlacementPixmaps(p)
	}
	img.Placements = nil

	for i := 1; i < len(img.Frames); i++ {
		s.freeFrame(img, img.Frames[i])
	}
	img.Frames = nil
}

func (s *Store) freeFrame(img *Image, f *ImageFrame) {
	if f == nil {
		return
	}
	if f.DecodedBitmap != nil {
		s.addRAMBytes(-int64(len(f.DecodedBitmap)) * 4)
		f.DecodedBitmap = nil
	}
	if f.openUploadHandle != nil {
		f.openUploadHandle.Close()
		f.openUploadHandle = nil
	}
	if f.cachePath != "" {
		os.Remove(f.cachePath)
		s.addDiskBytes(-f.DiskSize)
		if img != nil {
			img.TotalDiskSize -= f.DiskSize
		}
		f.DiskSize = 0
		f.cachePath = ""
	}
}

// AppendFrame appends a new frame to img, O(1), and returns it; the new
// frame's Index is 1-based.
func (s *Store) AppendFrame(img *Image) *ImageFrame {
	idx := len(img.Frames)
	f := &ImageFrame{owner: img, index: idx}
	img.Frames = append(img.Frames, f)
	return f
}

// GetFrame returns the frame at a 1-based index, or nil.
func (s *Store) GetFrame(img *Image, index int) *ImageFrame {
	return img.Frame(index)
}

// TouchFrame propagates atime from a frame up to its owning image.
func (s *Store) TouchFrame(f *ImageFrame) {
	f.touch(s.now())
}

// TouchPlacement propagates atime from a placement up to its owning image.
func (s *Store) TouchPlacement(p *Placement) {
	p.touch(s.now())
}

// EnsureDecoded lazily decodes and composes a frame's canonical-size bitmap
//. It is idempotent if already loaded, fails fast if the frame
// hasn't finished uploading or its disk file was evicted, and uses a
// transient ram-loading-in-progress status as a re-entrancy guard against
// background-frame reference cycles.
func (s *Store) EnsureDecoded(img *Image, f *ImageFrame) error {
	if f.Status == StatusRAMLoadingSuccess && f.DecodedBitmap != nil {
		return nil
	}
	if f.Status < StatusUploadSuccess {
		return ErrNotUploaded
	}
	if f.DiskSize == 0 {
		return ErrEvicted
	}
	if f.Status == StatusRAMLoadingInProgress {
		return ErrRecursiveLoad
	}

	prevStatus := f.Status
	f.Status = StatusRAMLoadingInProgress
	bitmap, err := s.decodeAndCompose(img, f)
	if err != nil {
		f.Status = StatusRAMLoadingError
		return err
	}
	_ = prevStatus

	if img.PixWidth == 0 && img.PixHeight == 0 {
		img.PixWidth, img.PixHeight = f.DataPixWidth, f.DataPixHeight
	}
	s.resolvePendingPut(img)

	f.DecodedBitmap = bitmap
	f.Status = StatusRAMLoadingSuccess
	s.addRAMBytes(int64(len(bitmap)) * 4)
	return nil
}

// decodeAndCompose implements the composition rule: allocate a
// canonical-size canvas if the frame needs one (non-zero background color,
// a background frame, or data dimensions differing from canonical), fill
// with color or blit the background frame, then blit this frame's own data
// at (OffsetX, OffsetY) with blend-dependent porter-duff.
func (s *Store) decodeAndCompose(img *Image, f *ImageFrame) ([]uint32, error) {
	raw, err := s.loadFrameSource(img, f)
	if err != nil {
		return nil, err
	}

	cw, ch := img.PixWidth, img.PixHeight
	if cw == 0 && ch == 0 {
		cw, ch = f.DataPixWidth, f.DataPixHeight
	}

	needsCanvas := f.BackgroundColor != 0 || f.BackgroundFrameIndex != 0 ||
		f.DataPixWidth != cw || f.DataPixHeight != ch
	if !needsCanvas {
		return raw, nil
	}

	canvas := make([]uint32, cw*ch)
	if f.BackgroundFrameIndex != 0 {
		bg := img.Frame(f.BackgroundFrameIndex)
		if bg == nil {
			return nil, fmt.Errorf("kittygfx: framestore: background frame %d not found", f.BackgroundFrameIndex)
		}
		if err := s.EnsureDecoded(img, bg); err != nil {
			return nil, fmt.Errorf("kittygfx: framestore: background frame: %w", err)
		}
		copy(canvas, bg.DecodedBitmap)
	} else if f.BackgroundColor != 0 {
		fillARGB(canvas, rgba8888ToARGB32(f.BackgroundColor))
	}

	blitInto(canvas, cw, ch, raw, f.DataPixWidth, f.DataPixHeight, f.OffsetX, f.OffsetY, f.Blend)
	return canvas, nil
}

func (s *Store) loadFrameSource(img *Image, f *ImageFrame) ([]uint32, error) {
	file, err := os.Open(f.cachePath)
	if err != nil {
		return nil, fmt.Errorf("kittygfx: framestore: open %s: %w", f.cachePath, err)
	}
	defer file.Close()

	format := f.Format
	if format == FormatAuto || format == FormatDecoderOnly {
		// The core handles only raw RGB/RGBA; container decoding is an
		// explicit out-of-scope collaborator.
		return nil, fmt.Errorf("kittygfx: framestore: format %v requires an external decoder", format)
	}

	return loadRawPixels(file, format, f.DataPixWidth, f.DataPixHeight, f.Compression, s.Config.PerImageRAMLimit)
}

// rgba8888ToARGB32 converts a 0xRRGGBBAA color into the canonical
// 0xAARRGGBB in-memory word.
func rgba8888ToARGB32(c uint32) uint32 {
	r := (c >> 24) & 0xff
	g := (c >> 16) & 0xff
	b := (c >> 8) & 0xff
	a := c & 0xff
	return a<<24 | r<<16 | g<<8 | b
}

func fillARGB(dst []uint32, v uint32) {
	for i := range dst {
		dst[i] = v
	}
}

// blitInto pastes src (w x h) onto dst (dw x dh) at (ox, oy), clipping to
// dst bounds, using OVER (alpha blend) or SRC (replace) per blend.
func blitInto(dst []uint32, dw, dh int, src []uint32, sw, sh, ox, oy int, blend Blend) {
	for y := 0; y < sh; y++ {
		dy := y + oy
		if dy < 0 || dy >= dh {
			continue
		}
		for x := 0; x < sw; x++ {
			dx := x + ox
			if dx < 0 || dx >= dw {
				continue
			}
			sp := src[y*sw+x]
			if blend == BlendReplace {
				dst[dy*dw+dx] = sp
				continue
			}
			dst[dy*dw+dx] = porterDuffOver(sp, dst[dy*dw+dx])
		}
	}
}

// porterDuffOver composes src OVER dst; both are straight (non-premultiplied)
// ARGB32 words, matching how DecodedBitmap is stored before the composer
// premultiplies for the surface.
func porterDuffOver(src, dst uint32) uint32 {
	sa := float64((src >> 24) & 0xff) / 255.0
	if sa >= 1.0 {
		return src
	}
	if sa <= 0.0 {
		return dst
	}
	blend := func(shift uint) byte {
		s := float64((src >> shift) & 0xff)
		d := float64((dst >> shift) & 0xff)
		return byte(s*sa + d*(1-sa))
	}
	da := (dst >> 24) & 0xff
	outA := byte(sa*255 + float64(da)*(1-sa))
	return uint32(outA)<<24 | uint32(blend(16))<<16 | uint32(blend(8))<<8 | uint32(blend(0))
}
