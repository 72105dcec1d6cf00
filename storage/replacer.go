package storage

// Replacer is the pluggable page-replacement policy interface used by
// BufferPoolManager. LRU-K is the only policy implemented here; the
// interface stays frame-id-based so a different policy could be dropped in
// without touching the buffer pool manager.
type Replacer interface {
	// Victim selects a frame to evict.
	// Returns the frame id and true if a victim was found, false otherwise.
	Victim() (int, bool)

	// Pin marks a frame as in-use (not evictable).
	Pin(frameID int)

	// Unpin marks a frame as available for eviction.
	Unpin(frameID int)

	// Size returns the number of evictable frames.
	Size() int
}

// NewReplacer creates a replacer for the given policy. "lruk" is currently
// the only supported algorithm.
func NewReplacer(algorithm string, numFrames, k int) Replacer {
	switch algorithm {
	case "lruk":
		return NewLRUKReplacer(numFrames, k)
	default:
		return NewLRUKReplacer(numFrames, k)
	}
}
