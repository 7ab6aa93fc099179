package kittygfx

// Advance implements the animation scheduler: given the
// current wall time, updates CurrentFrame, CurrentFrameTime, and NextRedraw.
// Calling Advance twice with the same now is idempotent: on the
// second call less than the current frame's gap has passed since
// CurrentFrameTime (or the same modulo state is re-derived), so it performs
// no further stepping.
func (s *Store) Advance(img *Image, now int64) {
	numFrames := img.LastFrameIndex()
	if numFrames < 1 {
		img.NextRedraw = 0
		return
	}

	if img.AnimationState == AnimUnset || img.AnimationState == AnimStopped {
		img.NextRedraw = 0
		return
	}

	if img.CurrentFrame == 0 {
		img.CurrentFrame = 1
		img.CurrentFrameTime = now
	}

	lastUploaded := img.LastUploadedFrameIndex()
	if img.AnimationState == AnimLoading && img.CurrentFrame >= lastUploaded {
		img.CurrentFrame = lastUploaded
		img.NextRedraw = 0
		return
	}

	passed := now - img.CurrentFrameTime
	if passed < 0 {
		passed = 0
	}

	if img.AnimationState == AnimLooping && img.TotalDuration > 0 && passed >= img.TotalDuration {
		passed %= img.TotalDuration
		img.CurrentFrameTime = now - passed
	}

	startFrame := img.CurrentFrame
	visitedStart := false

	for {
		f := img.Frame(img.CurrentFrame)
		if f == nil {
			break
		}
		gapless := f.GapMS < 0
		eff := f.EffectiveGap()
		if !gapless && eff > passed {
			break
		}

		passed -= eff
		img.CurrentFrameTime += eff

		next := img.CurrentFrame + 1
		if next > numFrames {
			switch img.AnimationState {
			case AnimLooping:
				next = 1
			case AnimLoading:
				img.CurrentFrame = img.LastUploadedFrameIndex()
				img.NextRedraw = 0
				return
			default:
				next = numFrames
			}
		}
		img.CurrentFrame = next

		if img.AnimationState == AnimLoading && img.CurrentFrame > lastUploaded {
			img.CurrentFrame = lastUploaded
			img.NextRedraw = 0
			return
		}

		if img.CurrentFrame == startFrame {
			// Loop-termination guard: if every frame is gapless we
			// would spin forever revisiting the start frame. The first
			// revisit allows one more full lap; the second stops on the
			// start frame, so next_redraw uses the pre-advance frame's
			// effective gap.
			if visitedStart {
				break
			}
			visitedStart = true
		}
	}

	cur := img.Frame(img.CurrentFrame)
	gap := int64(1)
	if cur != nil {
		if g := cur.EffectiveGap(); g > gap {
			gap = g
		}
	}
	img.NextRedraw = img.CurrentFrameTime + gap
	img.LastRedraw = now
}
