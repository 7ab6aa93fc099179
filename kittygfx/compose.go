// Copyright © 2026 kittygfx contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: kittygfx/compose.go
// Summary: Builds and caches per-placement surface pixmaps, scaling source rects to cell grids.

package kittygfx

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// BuildPixmap implements the composer/scaler: given a
// placement, a frame index, and the current cell dimensions, returns a
// surface-side pixmap of size (cols*cw, rows*ch), building and caching it if
// necessary.
func (s *Store) BuildPixmap(img *Image, p *Placement, frameIndex, cw, ch int) (*Pixmap, error) {
	if p.ScaledCellW != cw || p.ScaledCellH != ch {
		s.freePlacementPixmaps(p)
		p.ScaledCellW, p.ScaledCellH = cw, ch
	}

	if pm := p.pixmapAt(frameIndex); pm != nil {
		return pm, nil
	}

	f := img.Frame(frameIndex)
	if f == nil {
		return nil, ErrFrameNotFound
	}
	if err := s.EnsureDecoded(img, f); err != nil {
		return nil, fmt.Errorf("kittygfx: compose: %w", err)
	}
	s.InferSizeIfNeeded(img, p, cw, ch)

	dstW, dstH := p.Cols*cw, p.Rows*ch
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("kittygfx: compose: degenerate pixmap size %dx%d", dstW, dstH)
	}
	if s.Config.PerImageRAMLimit > 0 && int64(dstW)*int64(dstH)*4 > s.Config.PerImageRAMLimit {
		return nil, fmt.Errorf("kittygfx: compose: pixmap %dx%d exceeds per-image RAM limit", dstW, dstH)
	}

	src := argbToNRGBA(f.DecodedBitmap, img.PixWidth, img.PixHeight)
	srcRect := image.Rect(p.SrcRect.X, p.SrcRect.Y, p.SrcRect.X+p.SrcRect.W, p.SrcRect.Y+p.SrcRect.H)

	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	scaleModeBlit(dst, src, srcRect, resolveScaleMode(p.ScaleMode, dstW, dstH, p.SrcRect.W, p.SrcRect.H))

	argb := nrgbaToPremultipliedARGB(dst)

	handle, err := s.Surface.AllocatePixmap(dstW, dstH)
	if err != nil {
		return nil, fmt.Errorf("kittygfx: compose: allocate pixmap: %w", err)
	}
	if err := s.Surface.UploadPremultiplied(handle, argb, dstW, dstH); err != nil {
		return nil, fmt.Errorf("kittygfx: compose: upload: %w", err)
	}

	pm := &Pixmap{Handle: handle, W: dstW, H: dstH}
	p.setPixmapAt(frameIndex, pm)
	s.addRAMBytes(int64(dstW) * int64(dstH) * 4)

	p.ProtectedFrame = frameIndex
	s.runEvictionPass()
	p.ProtectedFrame = 0

	return pm, nil
}

// resolveScaleMode implements the none-or-contain fallback rule: behave
// like none unless the canvas is smaller than the src in
// either axis, in which case fall through to contain.
func resolveScaleMode(mode ScaleMode, dstW, dstH, srcW, srcH int) ScaleMode {
	if mode == ScaleNoneOrContain {
		if dstW < srcW || dstH < srcH {
			return ScaleContain
		}
		return ScaleNone
	}
	return mode
}

func scaleModeBlit(dst *image.NRGBA, src *image.NRGBA, srcRect image.Rectangle, mode ScaleMode) {
	dstRect := dst.Bounds()
	switch mode {
	case ScaleFill:
		draw.BiLinear.Scale(dst, dstRect, src, srcRect, draw.Src, nil)
	case ScaleNone:
		draw.Draw(dst, dstRect, src, srcRect.Min, draw.Src)
	case ScaleContain:
		target := containRect(dstRect, srcRect.Dx(), srcRect.Dy())
		draw.BiLinear.Scale(dst, target, src, srcRect, draw.Src, nil)
	default:
		draw.Draw(dst, dstRect, src, srcRect.Min, draw.Src)
	}
}

// containRect centres a letter/pillar-boxed rectangle of dstRect preserving
// src's aspect ratio. The test "scaled_w*src_h > src_w*scaled_h" selects
// fit-height vs fit-width: if true, the canvas is wider relative to src
// than src's own aspect, so height is the binding
// constraint (pillarbox); otherwise width is binding (letterbox).
func containRect(dstRect image.Rectangle, srcW, srcH int) image.Rectangle {
	scaledW, scaledH := dstRect.Dx(), dstRect.Dy()
	if srcW <= 0 || srcH <= 0 || scaledW <= 0 || scaledH <= 0 {
		return dstRect
	}
	var w, h int
	if scaledW*srcH > srcW*scaledH {
		h = scaledH
		w = srcW * scaledH / srcH
	} else {
		w = scaledW
		h = srcH * scaledW / srcW
	}
	x0 := dstRect.Min.X + (scaledW-w)/2
	y0 := dstRect.Min.Y + (scaledH-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func argbToNRGBA(argb []uint32, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, px := range argb {
		a := byte(px >> 24)
		r := byte(px >> 16)
		g := byte(px >> 8)
		b := byte(px)
		off := i * 4
		img.Pix[off+0] = r
		img.Pix[off+1] = g
		img.Pix[off+2] = b
		img.Pix[off+3] = a
	}
	return img
}

// nrgbaToPremultipliedARGB converts a straight-alpha NRGBA image into a
// premultiplied ARGB32 ([]uint32, 0xAARRGGBB) buffer, the format the surface
// compositor requires.
func nrgbaToPremultipliedARGB(img *image.NRGBA) []uint32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint32, w*h)
	i := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, bch, a := row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			pr := uint32(r) * uint32(a) / 255
			pg := uint32(g) * uint32(a) / 255
			pb := uint32(bch) * uint32(a) / 255
			out[i] = uint32(a)<<24 | pr<<16 | pg<<8 | pb
			i++
		}
	}
	return out
}
