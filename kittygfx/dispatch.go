// Copyright © 2026 kittygfx contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: kittygfx/dispatch.go
// Summary: Executes parsed commands against a Store and renders wire responses.

package kittygfx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dispatch executes one parsed command against the store and returns the
// response string the host should write back to the terminal, or "" if the
// quiet level suppresses it. Parsing errors recorded on cmd are reported as
// the first offending key; a command that fails to resolve an action or
// image still gets a well-formed error response whenever possible.
func (s *Store) Dispatch(cmd *Command) string {
	action := cmd.Action
	if action == 0 {
		if f := s.continuationTarget(cmd); f != nil {
			return s.continueUpload(cmd, f)
		}
		action = 't'
	}

	if len(cmd.Errors) > 0 {
		return s.respond(cmd, nil, cmd.Errors[0])
	}

	switch action {
	case 't':
		return s.dispatchTransmit(cmd, false)
	case 'T':
		return s.dispatchTransmit(cmd, true)
	case 'f':
		return s.dispatchFrameTransmit(cmd)
	case 'p':
		return s.dispatchPut(cmd)
	case 'd':
		return s.dispatchDelete(cmd)
	case 'q':
		return s.dispatchQuery(cmd)
	case 'a':
		return s.dispatchAnimationControl(cmd)
	case 'c':
		return s.dispatchCompose(cmd)
	default:
		return s.respond(cmd, nil, newErr(KindEINVAL, "unknown action '%c'", action))
	}
}

// continuationTarget finds the frame a no-action, m=-bearing command should
// append its payload to: the most recently appended frame of the named
// image, if it is still mid-upload.
func (s *Store) continuationTarget(cmd *Command) *ImageFrame {
	if cmd.More == 0 && cmd.ImageID == 0 {
		return nil
	}
	img := s.resolveExisting(cmd)
	if img == nil {
		return nil
	}
	n := len(img.Frames)
	if n < 2 {
		return nil
	}
	f := img.Frames[n-1]
	if f.Status != StatusUploading {
		return nil
	}
	return f
}

func (s *Store) resolveExisting(cmd *Command) *Image {
	if cmd.ImageID != 0 {
		return s.ImageByID(cmd.ImageID)
	}
	if cmd.ImageNumber != 0 {
		return s.ImageByNumber(cmd.ImageNumber)
	}
	return nil
}

func (s *Store) dispatchTransmit(cmd *Command, andDisplay bool) string {
	img := s.NewImage(cmd.ImageID)
	img.Number = cmd.ImageNumber
	if cmd.ImageID == 0 {
		cmd.ImageID = img.ID
	}

	f := s.AppendFrame(img)
	if cerr := s.beginFrame(img, f, cmd); cerr != nil {
		return s.respond(cmd, img, cerr)
	}
	if cerr := s.writeChunk(img, f, cmd); cerr != nil {
		return s.respond(cmd, img, cerr)
	}

	if andDisplay {
		// The placement can't be finalised until this frame's canonical
		// size is known, which may be chunks away; defer it the same way
		// a standalone put arriving before any upload finishes would be.
		pp := buildPendingPlacement(cmd)
		if pp.placementID == 0 {
			pp.placementID = genPlacementID(s.rng, func(c uint32) bool { _, ok := img.Placements[c]; return ok })
		}
		if _, ok := img.Placements[pp.placementID]; !ok {
			s.NewPlacement(img, pp.placementID)
		}
		img.pendingPut = pp
		img.InitialPlacementID = pp.placementID
		cmd.PlacementID = pp.placementID
		f.awaitsDisplay = true
	}

	if cmd.More != 0 {
		return ""
	}
	if cerr := s.finishFrame(img, f, cmd); cerr != nil {
		return s.respond(cmd, img, cerr)
	}
	return s.respond(cmd, img, nil)
}

func (s *Store) dispatchFrameTransmit(cmd *Command) string {
	img := s.resolveExisting(cmd)
	if img == nil {
		return s.respond(cmd, nil, newErr(KindENOENT, "image %d not found", cmd.ImageID))
	}

	var f *ImageFrame
	if cmd.Num4 > 0 {
		f = img.Frame(int(cmd.Num4))
		if f == nil {
			return s.respond(cmd, img, newErr(KindENOENT, "frame %d not found", cmd.Num4))
		}
		s.freeFrame(img, f)
	} else {
		f = s.AppendFrame(img)
	}

	if cerr := s.beginFrame(img, f, cmd); cerr != nil {
		return s.respond(cmd, img, cerr)
	}
	if cerr := s.writeChunk(img, f, cmd); cerr != nil {
		return s.respond(cmd, img, cerr)
	}
	if cmd.More != 0 {
		return ""
	}
	if cerr := s.finishFrame(img, f, cmd); cerr != nil {
		return s.respond(cmd, img, cerr)
	}
	return s.respond(cmd, img, nil)
}

// wireFormatToFrameFormat maps the f= protocol value (24, 32, or a
// container format code handled by an external decoder) onto FrameFormat.
func wireFormatToFrameFormat(wire int) FrameFormat {
	switch wire {
	case 24:
		return FormatRaw24
	case 32, 0:
		return FormatRaw32
	default:
		return FormatDecoderOnly
	}
}

// beginFrame records the transmission parameters on f from cmd and opens the
// cache file the payload bytes are written into.
func (s *Store) beginFrame(img *Image, f *ImageFrame, cmd *Command) *CmdError {
	f.Format = wireFormatToFrameFormat(cmd.Format)
	if cmd.Compression == 'z' {
		f.Compression = CompressionZlib
	}
	f.DataPixWidth = int(cmd.Num1)
	f.DataPixHeight = int(cmd.Num2)
	f.OffsetX = int(cmd.Num5)
	f.OffsetY = int(cmd.Num6)
	f.ExpectedSize = cmd.ExpectedSize
	f.Quiet = cmd.Quiet
	if cmd.Action == 'f' {
		f.BackgroundFrameIndex = int(cmd.Num3)
		f.GapMS = cmd.Gap
		if cmd.Num7 != 0 {
			f.Blend = BlendReplace
		} else {
			f.Blend = BlendOver
		}
		f.BackgroundColor = uint32(cmd.Num8)
	}
	f.Status = StatusUploading

	dir, err := s.CacheDir()
	if err != nil {
		f.Status = StatusUploadError
		f.UploadingFailure = UploadFailureCannotOpenCache
		return newErr(KindEIO, "cache dir: %v", err)
	}
	path := filepath.Join(dir, frameFileName(img.ID, f.Index()))
	fh, err := os.Create(path)
	if err != nil {
		f.Status = StatusUploadError
		f.UploadingFailure = UploadFailureCannotOpenCache
		return newErr(KindEIO, "create cache file: %v", err)
	}
	f.openUploadHandle = fh
	f.cachePath = path
	return nil
}

// writeChunk appends one command's payload bytes to f's in-progress cache
// file, decoding the transmission medium named by cmd.Transmission.
func (s *Store) writeChunk(img *Image, f *ImageFrame, cmd *Command) *CmdError {
	switch cmd.Transmission {
	case 'f', 't':
		return s.writeChunkFromFile(img, f, cmd)
	default: // 'd' direct, or unset
		if f.openUploadHandle == nil {
			return newErr(KindEBADF, "no upload in progress for image %d", img.ID)
		}
		if _, err := f.openUploadHandle.Write(cmd.Payload); err != nil {
			return newErr(KindEIO, "write cache file: %v", err)
		}
		return nil
	}
}

// writeChunkFromFile handles t=f (read a file the sender already wrote the
// pixel data to) and t=t (same, but the file is the sender's own temp file
// and must be unlinked once read). The payload carries the file's path, not
// pixel bytes.
func (s *Store) writeChunkFromFile(img *Image, f *ImageFrame, cmd *Command) *CmdError {
	path := string(cmd.Payload)
	info, err := os.Stat(path)
	if err != nil {
		return newErr(KindENOENT, "stat source file: %v", err)
	}
	if !info.Mode().IsRegular() {
		return newErr(KindEINVAL, "source file %s is not a regular file", path)
	}
	if info.Size() == 0 {
		return newErr(KindEINVAL, "source file %s is empty", path)
	}
	if s.Config.PerFileUploadLimit > 0 && info.Size() > s.Config.PerFileUploadLimit {
		return newErr(KindEFBIG, "source file of %d bytes exceeds per-file limit", info.Size())
	}

	src, err := os.Open(path)
	if err != nil {
		return newErr(KindENOENT, "open source file: %v", err)
	}
	defer src.Close()

	if _, err := io.Copy(f.openUploadHandle, src); err != nil {
		return newErr(KindEIO, "copy source file: %v", err)
	}

	if cmd.Transmission == 't' && looksLikeProtocolTempFile(path) {
		os.Remove(path)
	}
	return nil
}

// looksLikeProtocolTempFile restricts t=t's unlink-after-read to paths that
// plausibly belong to this protocol's own temp-file convention, so a
// malicious or buggy client cannot use t=t to delete an arbitrary path.
func looksLikeProtocolTempFile(path string) bool {
	tmp := os.TempDir()
	if tmp == "" {
		tmp = "/tmp"
	}
	return strings.HasPrefix(path, tmp) && strings.Contains(path, "tty-graphics-protocol")
}

func (s *Store) finishFrame(img *Image, f *ImageFrame, cmd *Command) *CmdError {
	if f.openUploadHandle != nil {
		f.openUploadHandle.Close()
		f.openUploadHandle = nil
	}
	info, err := os.Stat(f.cachePath)
	if err != nil {
		f.Status = StatusUploadError
		return newErr(KindEIO, "stat cache file: %v", err)
	}
	size := info.Size()
	if f.ExpectedSize > 0 && size != f.ExpectedSize {
		f.Status = StatusUploadError
		f.UploadingFailure = UploadFailureUnexpectedSize
		s.freeFrame(img, f)
		return newErr(KindEINVAL, "transmitted %d bytes, expected %d", size, f.ExpectedSize)
	}
	if s.Config.PerFileUploadLimit > 0 && size > s.Config.PerFileUploadLimit {
		f.Status = StatusUploadError
		f.UploadingFailure = UploadFailureOverSizeLimit
		s.freeFrame(img, f)
		return newErr(KindEFBIG, "frame of %d bytes exceeds per-file limit", size)
	}

	f.DiskSize = size
	img.TotalDiskSize += size
	s.addDiskBytes(size)
	f.Status = StatusUploadSuccess
	f.touch(s.now())

	if img.PixWidth == 0 && img.PixHeight == 0 && f.Format != FormatDecoderOnly {
		img.PixWidth, img.PixHeight = f.DataPixWidth, f.DataPixHeight
	}
	s.resolvePendingPut(img)

	var total int64
	for i := 1; i < len(img.Frames); i++ {
		total += img.Frames[i].EffectiveGap()
	}
	img.TotalDuration = total

	s.runEvictionPass()
	return nil
}

func (s *Store) continueUpload(cmd *Command, f *ImageFrame) string {
	img := f.Owner()

	// respond wraps s.respond so a query's throwaway image is cleaned up
	// whichever way this, its final, chunk resolves.
	respond := func(cerr *CmdError) string {
		resp := s.respond(cmd, img, cerr)
		if img.QueryID != 0 {
			s.DeleteImage(img.QueryID)
		}
		return resp
	}

	if cerr := s.writeChunk(img, f, cmd); cerr != nil {
		return respond(cerr)
	}
	if cmd.More != 0 {
		return ""
	}
	if cerr := s.finishFrame(img, f, cmd); cerr != nil {
		return respond(cerr)
	}
	if f.awaitsDisplay && img.InitialPlacementID != 0 {
		cmd.PlacementID = img.InitialPlacementID
	}
	return respond(nil)
}

// dispatchPut implements the put action: locate or create a placement on an
// existing image, resolve its displayed size and source rectangle, and ask
// the host to reserve grid space for it. If the image's canonical pixel
// size isn't known yet (its first frame hasn't finished uploading),
// registration is deferred until it is.
func (s *Store) dispatchPut(cmd *Command) string {
	img := s.resolveExisting(cmd)
	if img == nil {
		return s.respond(cmd, nil, newErr(KindENOENT, "image %d not found", cmd.ImageID))
	}

	pp := buildPendingPlacement(cmd)

	if img.LastUploadedFrameIndex() == 0 {
		if pp.placementID == 0 {
			pp.placementID = genPlacementID(s.rng, func(c uint32) bool { _, ok := img.Placements[c]; return ok })
		}
		if _, ok := img.Placements[pp.placementID]; !ok {
			s.NewPlacement(img, pp.placementID)
		}
		img.pendingPut = pp
		img.InitialPlacementID = pp.placementID
		cmd.PlacementID = pp.placementID
		return s.respond(cmd, img, nil)
	}

	p := s.applyPendingPlacement(img, pp)
	cmd.PlacementID = p.ID
	return s.respond(cmd, img, nil)
}

// dispatchDelete implements a practical subset of the delete specifier
// alphabet: target selection by 'a' (all visible), 'i' (image id), or 'n'
// (image number). Lowercase removes placements only; uppercase also frees
// the image's frame data once it has no placements left.
func (s *Store) dispatchDelete(cmd *Command) string {
	spec := cmd.Delete
	if spec == 0 {
		spec = 'a'
	}
	freeImageToo := spec >= 'A' && spec <= 'Z'
	lower := spec
	if freeImageToo {
		lower = spec - 'A' + 'a'
	}

	var targets []*Image
	switch lower {
	case 'a':
		targets = s.Images()
	case 'i':
		if img := s.ImageByID(cmd.ImageID); img != nil {
			targets = []*Image{img}
		}
	case 'n':
		if img := s.ImageByNumber(cmd.ImageNumber); img != nil {
			targets = []*Image{img}
		}
	default:
		return s.respond(cmd, nil, newErr(KindEINVAL, "unknown delete specifier '%c'", spec))
	}

	for _, img := range targets {
		if cmd.PlacementID != 0 {
			s.DeletePlacement(img, cmd.PlacementID)
		} else {
			for id, p := range img.Placements {
				if lower == 'a' && p.Virtual {
					continue
				}
				s.DeletePlacement(img, id)
			}
		}
		if freeImageToo && len(img.Placements) == 0 {
			s.DeleteImage(img.ID)
		}
	}
	return s.respond(cmd, nil, nil)
}

// dispatchQuery validates a transmit command without retaining any state:
// it runs the ordinary transmit path against a throwaway image id and
// deletes that image once its upload actually finishes — immediately here
// for a single-command query, or later via continueUpload's QueryID check
// when this command's chunk still leaves the upload in progress.
func (s *Store) dispatchQuery(cmd *Command) string {
	queryCmd := *cmd
	resp := s.dispatchTransmit(&queryCmd, false)

	if img := s.resolveExisting(&queryCmd); img != nil {
		if n := len(img.Frames); n >= 2 && img.Frames[n-1].Status == StatusUploading {
			img.QueryID = img.ID
			return resp
		}
		s.DeleteImage(img.ID)
		return resp
	}
	s.DeleteImage(queryCmd.ImageID)
	return resp
}

// dispatchAnimationControl edits an image's animation state, loop count,
// current frame, or a single frame's gap.
func (s *Store) dispatchAnimationControl(cmd *Command) string {
	img := s.resolveExisting(cmd)
	if img == nil {
		return s.respond(cmd, nil, newErr(KindENOENT, "image %d not found", cmd.ImageID))
	}

	if cmd.Num1 != 0 {
		switch cmd.Num1 {
		case 1:
			img.AnimationState = AnimStopped
		case 2:
			img.AnimationState = AnimLoading
		case 3:
			img.AnimationState = AnimLooping
		default:
			return s.respond(cmd, img, newErr(KindEINVAL, "unknown animation state %d", cmd.Num1))
		}
	}
	if cmd.Num2 != 0 {
		img.Loops = int(cmd.Num2)
	}

	target := img.CurrentFrame
	if cmd.Num4 > 0 {
		target = int(cmd.Num4)
	}
	if cmd.Gap != 0 {
		if f := img.Frame(target); f != nil {
			f.GapMS = cmd.Gap
		} else {
			return s.respond(cmd, img, newErr(KindENOENT, "frame %d not found", target))
		}
	}
	if cmd.Num3 != 0 {
		if f := img.Frame(int(cmd.Num3)); f != nil {
			img.CurrentFrame = int(cmd.Num3)
			img.CurrentFrameTime = s.now()
		} else {
			return s.respond(cmd, img, newErr(KindENOENT, "frame %d not found", cmd.Num3))
		}
	}

	var total int64
	for i := 1; i < len(img.Frames); i++ {
		total += img.Frames[i].EffectiveGap()
	}
	img.TotalDuration = total
	img.touch(s.now())
	return s.respond(cmd, img, nil)
}

// dispatchCompose sets an already-appended frame's background frame, paste
// offset and blend without transmitting new pixel data, then recomposes it on
// next decode. The frame's background color is left unchanged.
func (s *Store) dispatchCompose(cmd *Command) string {
	img := s.resolveExisting(cmd)
	if img == nil {
		return s.respond(cmd, nil, newErr(KindENOENT, "image %d not found", cmd.ImageID))
	}
	idx := int(cmd.Num3)
	if idx == 0 {
		idx = img.LastFrameIndex()
	}
	f := img.Frame(idx)
	if f == nil {
		return s.respond(cmd, img, newErr(KindENOENT, "frame %d not found", idx))
	}
	f.BackgroundFrameIndex = int(cmd.Num4)
	f.OffsetX = int(cmd.Num5)
	f.OffsetY = int(cmd.Num6)
	if cmd.Num7 != 0 {
		f.Blend = BlendReplace
	} else {
		f.Blend = BlendOver
	}
	s.addRAMBytes(-int64(len(f.DecodedBitmap)) * 4)
	f.DecodedBitmap = nil
	if f.Status == StatusRAMLoadingSuccess {
		f.Status = StatusUploadSuccess
	}
	return s.respond(cmd, img, nil)
}

// respond renders the "Gi=<id>[,I=<n>][,p=<pid>];<OK|Emsg>" response string,
// honoring the quiet level: 1 suppresses success responses, 2 suppresses all.
func (s *Store) respond(cmd *Command, img *Image, cerr *CmdError) string {
	if cerr == nil && cmd.Quiet >= 1 {
		return ""
	}
	if cerr != nil && cmd.Quiet >= 2 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Gi=")
	if img != nil {
		fmt.Fprintf(&b, "%d", img.ID)
	} else {
		fmt.Fprintf(&b, "%d", cmd.ImageID)
	}
	if img != nil && img.Number != 0 {
		fmt.Fprintf(&b, ",I=%d", img.Number)
	}
	if cmd.PlacementID != 0 {
		fmt.Fprintf(&b, ",p=%d", cmd.PlacementID)
	}
	b.WriteString(";")
	if cerr != nil {
		fmt.Fprintf(&b, "%s: %s", cerr.Kind, cerr.Msg)
	} else {
		b.WriteString("OK")
	}
	return b.String()
}
