package kittygfx

import (
	"bufio"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// loadRawPixels streams RGB/RGBA pixel data from r, optionally zlib-inflating
// it, into an ARGB32 buffer (0xAARRGGBB, little-endian byte order within
// each word) of exactly width*height pixels. format24 sets alpha
// opaque per pixel; format32 reads alpha from the stream.
//
// The per-image RAM limit check always assumes 4 bytes/pixel regardless of
// the declared source format: the allocation the decoder performs is
// 4 bytes/pixel uniformly, even though a raw-24 source is only 3
// bytes/pixel on disk.
func loadRawPixels(r io.Reader, format FrameFormat, width, height int, compression Compression, perImageRAMLimit int64) ([]uint32, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("kittygfx: rawpixel: non-positive dimensions %dx%d", width, height)
	}
	totalPixels := int64(width) * int64(height)
	if perImageRAMLimit > 0 && totalPixels*4 > perImageRAMLimit {
		return nil, fmt.Errorf("kittygfx: rawpixel: %dx%d exceeds per-image RAM limit", width, height)
	}

	bytesPerPixel := 4
	if format == FormatRaw24 {
		bytesPerPixel = 3
	}
	srcLen := totalPixels * int64(bytesPerPixel)

	src := r
	if compression == CompressionZlib {
		zr, err := zlib.NewReader(bufferedAtLeast(r, 4096))
		if err != nil {
			return nil, fmt.Errorf("kittygfx: rawpixel: zlib init: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	buf := make([]byte, srcLen)
	n, err := io.ReadFull(src, buf)
	// A short/empty read at end of stream is not an error: terminate
	// cleanly, truncating any pixels the sender never supplied, rather
	// than failing the whole frame.
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		var zerr interface{ Error() string }
		if errors.As(err, &zerr) {
			return nil, fmt.Errorf("kittygfx: rawpixel: decompress: %w", err)
		}
		return nil, err
	}
	buf = buf[:n]

	out := make([]uint32, totalPixels)
	pixels := n / bytesPerPixel
	for i := 0; i < pixels; i++ {
		off := i * bytesPerPixel
		var a, rr, g, b byte
		rr, g, b = buf[off], buf[off+1], buf[off+2]
		if format == FormatRaw24 {
			a = 0xff
		} else {
			a = buf[off+3]
		}
		out[i] = uint32(a)<<24 | uint32(rr)<<16 | uint32(g)<<8 | uint32(b)
	}
	// Pixels beyond what the sender wrote stay zero (transparent black),
	// i.e. implicitly truncated/defaulted; out is already that length.
	return out, nil
}

// bufferedAtLeast wraps r so zlib.NewReader always sees at least the
// requested minimum read-ahead window for a streaming zlib inflate.
// bufio.NewReaderSize already satisfies this; the helper exists so the
// intent is named at the call site.
func bufferedAtLeast(r io.Reader, n int) io.Reader {
	return bufio.NewReaderSize(r, n)
}
