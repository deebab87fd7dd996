package audio

// FrameRing is a bounded FIFO of recent frames. When the ring is full the
// oldest frame is evicted before a new one is appended, so its length never
// exceeds the configured capacity.
//
// The ring is owned by a single pipeline stage and is not safe for
// concurrent use.
type FrameRing struct {
	frames []Frame
	head   int
	count  int
}

// NewFrameRing creates a ring holding at most capacity frames. Capacity must
// be at least 1.
func NewFrameRing(capacity int) *FrameRing {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameRing{frames: make([]Frame, capacity)}
}

// Push appends a frame, evicting the oldest frame first if the ring is full.
func (r *FrameRing) Push(f Frame) {
	if r.count == len(r.frames) {
		// Overwrite the oldest slot.
		r.frames[r.head] = f
		r.head = (r.head + 1) % len(r.frames)
		return
	}
	r.frames[(r.head+r.count)%len(r.frames)] = f
	r.count++
}

// Len returns the number of frames currently held.
func (r *FrameRing) Len() int { return r.count }

// Cap returns the configured capacity.
func (r *FrameRing) Cap() int { return len(r.frames) }

// Frames returns the buffered frames oldest-first as a fresh slice.
func (r *FrameRing) Frames() []Frame {
	out := make([]Frame, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.frames[(r.head+i)%len(r.frames)]
	}
	return out
}

// Reset discards all buffered frames.
func (r *FrameRing) Reset() {
	r.head = 0
	r.count = 0
}
