package kittygfx

// AnimationState is the per-image animation mode.
type AnimationState int

const (
	AnimUnset AnimationState = iota
	AnimStopped
	AnimLoading
	AnimLooping
)

// Image is the top-level cached entity, keyed by a non-zero 32-bit id.
type Image struct {
	ID     uint32
	Number uint32 // optional user alias, disambiguated by GlobalCommandIndex
	QueryID uint32 // non-zero only for query-action images

	Atime int64 // monotonic milliseconds, updated on any descendant touch

	PixWidth, PixHeight int // canonical size, fixed by the first decoded frame

	CurrentFrame     int // 1-based; 0 = uninitialised
	CurrentFrameTime int64
	NextRedraw       int64
	LastRedraw       int64

	AnimationState AnimationState
	Loops          int // reserved; not enforced

	TotalDuration  int64 // sum of frame gaps (negatives treated as 0)
	TotalDiskSize  int64

	Frames     []*ImageFrame // 1-based external indexing, index 0 unused
	Placements map[uint32]*Placement

	DefaultPlacementID uint32
	InitialPlacementID uint32 // placement to mention in transmit-and-display response

	GlobalCommandIndex uint64

	// pendingPut holds a put (or transmit-and-display) command's placement
	// parameters when they arrived before this image's canonical pixel
	// size was known. It is applied, and cleared, by resolvePendingPut once
	// the size becomes known (ordinarily when the first frame finishes
	// uploading).
	pendingPut *pendingPlacement
}

func newImage(id uint32, cmdIndex uint64) *Image {
	return &Image{
		ID:                 id,
		Frames:             make([]*ImageFrame, 1, 4), // index 0 is a sentinel, unused
		Placements:         make(map[uint32]*Placement),
		GlobalCommandIndex: cmdIndex,
	}
}

// LastFrameIndex returns the highest populated frame index, or 0 if none.
func (img *Image) LastFrameIndex() int {
	return len(img.Frames) - 1
}

// LastUploadedFrameIndex excludes a trailing frame whose status hasn't
// reached upload-success.
func (img *Image) LastUploadedFrameIndex() int {
	idx := img.LastFrameIndex()
	for idx >= 1 && img.Frames[idx].Status < StatusUploadSuccess {
		idx--
	}
	return idx
}

// Frame returns the 1-based frame, or nil if index is out of range.
func (img *Image) Frame(index int) *ImageFrame {
	if index < 1 || index >= len(img.Frames) {
		return nil
	}
	return img.Frames[index]
}

func (img *Image) touch(now int64) {
	img.Atime = now
}
