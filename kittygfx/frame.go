package kittygfx

import "os"

// FrameFormat is the declared pixel encoding of an uploaded frame.
type FrameFormat int

const (
	FormatAuto FrameFormat = iota // decoder, chosen from container sniffing
	FormatRaw24
	FormatRaw32
	FormatDecoderOnly
)

// Compression is the optional stream compression applied to raw formats.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZlib
)

// FrameStatus is the lifecycle of one frame's bytes, from upload through
// decode. Values are ordered so "status >= StatusUploadSuccess"
// comparisons are meaningful.
type FrameStatus int

const (
	StatusUninit FrameStatus = iota
	StatusUploading
	StatusUploadError
	StatusUploadSuccess
	StatusRAMLoadingInProgress
	StatusRAMLoadingError
	StatusRAMLoadingSuccess
)

func (s FrameStatus) String() string {
	switch s {
	case StatusUninit:
		return "uninit"
	case StatusUploading:
		return "uploading"
	case StatusUploadError:
		return "upload-error"
	case StatusUploadSuccess:
		return "upload-success"
	case StatusRAMLoadingInProgress:
		return "ram-loading-in-progress"
	case StatusRAMLoadingError:
		return "ram-loading-error"
	case StatusRAMLoadingSuccess:
		return "ram-loading-success"
	default:
		return "unknown"
	}
}

// UploadFailure records why a direct upload was rejected.
type UploadFailure int

const (
	UploadFailureNone UploadFailure = iota
	UploadFailureOverSizeLimit
	UploadFailureCannotOpenCache
	UploadFailureUnexpectedSize
	UploadFailureCannotCopyFile
)

// Blend selects how a composed frame is pasted over its background.
type Blend int

const (
	BlendOver Blend = iota // porter-duff OVER
	BlendReplace           // SRC
)

// ImageFrame is one frame of an Image's animation, belonging to exactly one
// Image.
type ImageFrame struct {
	owner *Image
	index int

	Atime        int64
	GapMS        int32 // 0 => default; <0 => gapless (always skipped)
	ExpectedSize int64 // bytes, for upload verification; 0 = unchecked

	Format      FrameFormat
	Compression Compression

	DataPixWidth, DataPixHeight int // on-disk pixel size, may differ from canonical

	OffsetX, OffsetY int // paste position onto the canonical canvas

	BackgroundColor       uint32 // 0xRRGGBBAA
	BackgroundFrameIndex  int    // 1-based; 0 => use BackgroundColor
	Blend                 Blend

	Status            FrameStatus
	UploadingFailure  UploadFailure
	Quiet             int // 0,1,2 captured at the creation command

	DiskSize int64

	openUploadHandle *os.File // present only while Status == StatusUploading
	cachePath        string

	DecodedBitmap []uint32 // ARGB32, len == owner.PixWidth*owner.PixHeight, present iff RAM-loading-success

	// awaitsDisplay marks a frame created by a transmit-and-display command
	// whose placement registration was deferred to owner.pendingPut; the
	// response that finishes this frame's upload must report that
	// placement's id even though the finishing command never carried one.
	awaitsDisplay bool
}

func (f *ImageFrame) Owner() *Image { return f.owner }
func (f *ImageFrame) Index() int    { return f.index }

// EffectiveGap returns the gap used for total-duration accounting: negative
// (gapless) gaps count as zero.
func (f *ImageFrame) EffectiveGap() int64 {
	if f.GapMS < 0 {
		return 0
	}
	return int64(f.GapMS)
}

func (f *ImageFrame) touch(now int64) {
	f.Atime = now
	if f.owner != nil {
		f.owner.touch(now)
	}
}
