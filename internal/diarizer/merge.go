package diarizer

// Merge reduces a frame-level annotation to the minimal ordered sequence of
// contiguous per-speaker turns. Frames are scanned in their given order and
// are assumed already time-ordered; a frame with the same speaker as the open
// turn extends that turn's end, any speaker change closes it. Zero-duration
// and inverted frames pass through unchanged.
func Merge(frames FrameAnnotation) []Turn {
	var turns []Turn
	var current *Turn

	for _, frame := range frames {
		if current == nil || frame.Speaker != current.Speaker {
			if current != nil {
				turns = append(turns, *current)
			}
			current = &Turn{Start: frame.Start, End: frame.End, Speaker: frame.Speaker}
			continue
		}
		current.End = frame.End
	}

	if current != nil {
		turns = append(turns, *current)
	}

	return turns
}
