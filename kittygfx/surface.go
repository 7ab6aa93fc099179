package kittygfx

// PixmapHandle is an opaque reference into the host's pixel surface.
type PixmapHandle any

// CompositeOp selects the porter-duff operator used when blitting a pixmap
// onto the output (normal placements use Over, reverse-video
// placements composite their inverted copy with Src).
type CompositeOp int

const (
	OpOver CompositeOp = iota
	OpSrc
)

// Rect is a plain pixel rectangle, used for both source and destination
// regions passed to Surface.Composite.
type Rect struct {
	X, Y, W, H int
}

// Surface is the small capability set the core needs from the host's pixel
// output surface. The core never touches host pixels directly;
// every allocation, upload, and blit goes through this interface.
type Surface interface {
	AllocatePixmap(w, h int) (PixmapHandle, error)
	UploadPremultiplied(p PixmapHandle, argb []uint32, w, h int) error
	Composite(src PixmapHandle, srcRect, dstRect Rect, op CompositeOp) error
	InvertCopy(src PixmapHandle, w, h int) (PixmapHandle, error)
	FreePixmap(p PixmapHandle) error
}

// PlaceholderRequest is what the core asks the host grid/placeholder
// renderer to do: reserve an R-row x C-col region for (image, placement).
// The host decides actual grid coordinates; the core only tracks the
// request for the transmit-and-display response.
type PlaceholderRequest struct {
	ImageID     uint32
	PlacementID uint32
	Rows, Cols  int
}
