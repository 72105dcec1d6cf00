package storage

import (
	"container/list"
	"sync"
)

// LRUKReplacer tracks per-frame access history and selects the next buffer
// frame to evict under the LRU-K policy. A frame's backward k-distance is
// the time since its k-th most recent access; frames with fewer than k
// recorded accesses are treated as having infinite backward k-distance and
// are evicted first, oldest-first-inserted among them.
//
// A frame lives in exactly one of two lists once it has at least one
// recorded access: the history list (access count in [1, k)), ordered by
// arrival, or the cache list (access count >= k), ordered by recency. Each
// list is paired with a map to its *list.Element for O(1) removal.
type LRUKReplacer struct {
	mu sync.Mutex

	k         int
	numFrames int
	currSize  int // number of evictable, tracked frames

	history    *list.List // front = most recently inserted, back = oldest
	historyIdx map[int]*list.Element

	cache    *list.List // front = most recently accessed, back = oldest
	cacheIdx map[int]*list.Element

	accessCount map[int]int
	evictable   map[int]bool
}

// NewLRUKReplacer creates a replacer over frame ids in [0, numFrames) using
// the given k.
func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:           k,
		numFrames:   numFrames,
		history:     list.New(),
		historyIdx:  make(map[int]*list.Element),
		cache:       list.New(),
		cacheIdx:    make(map[int]*list.Element),
		accessCount: make(map[int]int),
		evictable:   make(map[int]bool),
	}
}

// Evict picks a victim frame and fully clears its state. It prefers the
// oldest-inserted evictable frame in the history list (access count < k);
// if none is evictable, it falls back to the least-recently-accessed
// evictable frame in the cache list. Returns ok=false if no evictable
// frame exists.
func (r *LRUKReplacer) Evict() (frameID int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.findEvictable(r.history); e != nil {
		frameID = e.Value.(int)
		r.history.Remove(e)
		delete(r.historyIdx, frameID)
		r.clearLocked(frameID)
		return frameID, true
	}

	if e := r.findEvictable(r.cache); e != nil {
		frameID = e.Value.(int)
		r.cache.Remove(e)
		delete(r.cacheIdx, frameID)
		r.clearLocked(frameID)
		return frameID, true
	}

	return 0, false
}

// findEvictable walks l from the back (oldest) and returns the first
// element whose frame is evictable.
func (r *LRUKReplacer) findEvictable(l *list.List) *list.Element {
	for e := l.Back(); e != nil; e = e.Prev() {
		frameID := e.Value.(int)
		if r.evictable[frameID] {
			return e
		}
	}
	return nil
}

// clearLocked resets all bookkeeping for frameID. Caller must hold mu.
func (r *LRUKReplacer) clearLocked(frameID int) {
	if r.evictable[frameID] {
		r.currSize--
	}
	delete(r.accessCount, frameID)
	delete(r.evictable, frameID)
}

// RecordAccess records a new access to frameID, migrating it between the
// history and cache lists per the LRU-K state machine. Returns
// ErrInvalidFrame if frameID is out of range.
func (r *LRUKReplacer) RecordAccess(frameID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frameID < 0 || frameID >= r.numFrames {
		return ErrInvalidFrame("RecordAccess", frameID, r.numFrames)
	}

	r.accessCount[frameID]++
	count := r.accessCount[frameID]

	switch {
	case count < r.k:
		// Push to front only on first entry; repeated sub-k accesses do
		// not re-front the history entry (we order history by first access).
		if _, inHistory := r.historyIdx[frameID]; !inHistory {
			e := r.history.PushFront(frameID)
			r.historyIdx[frameID] = e
		}
	case count == r.k:
		if e, inHistory := r.historyIdx[frameID]; inHistory {
			r.history.Remove(e)
			delete(r.historyIdx, frameID)
		}
		e := r.cache.PushFront(frameID)
		r.cacheIdx[frameID] = e
	default: // count > r.k
		if e, inCache := r.cacheIdx[frameID]; inCache {
			r.cache.Remove(e)
		}
		e := r.cache.PushFront(frameID)
		r.cacheIdx[frameID] = e
	}

	return nil
}

// SetEvictable marks frameID as evictable or pinned. It is a no-op for an
// untracked frame (access count 0); that check is an explicit map
// containment test so a query never creates a spurious zero-value entry.
func (r *LRUKReplacer) SetEvictable(frameID int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, tracked := r.accessCount[frameID]; !tracked {
		return
	}

	was := r.evictable[frameID]
	if was == evictable {
		return
	}
	r.evictable[frameID] = evictable
	if evictable {
		r.currSize++
	} else {
		r.currSize--
	}
}

// Remove clears a specific frame's access history, regardless of its
// backward k-distance. It is a no-op if the frame is untracked, and
// returns ErrFrameNotEvictable if the frame is tracked but pinned.
func (r *LRUKReplacer) Remove(frameID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, tracked := r.accessCount[frameID]; !tracked {
		return nil
	}
	if !r.evictable[frameID] {
		return ErrFrameNotEvictable("Remove", frameID)
	}

	if e, ok := r.historyIdx[frameID]; ok {
		r.history.Remove(e)
		delete(r.historyIdx, frameID)
	}
	if e, ok := r.cacheIdx[frameID]; ok {
		r.cache.Remove(e)
		delete(r.cacheIdx, frameID)
	}
	r.clearLocked(frameID)
	return nil
}

// Size returns the number of evictable, tracked frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currSize
}

// The following methods adapt LRUKReplacer to the Replacer interface used
// by BufferPoolManager, so NewReplacer("lruk", ...) can hand back an
// LRUKReplacer wherever a generic Victim/Pin/Unpin-shaped policy is wanted.

// Victim satisfies the Replacer interface by delegating to Evict.
func (r *LRUKReplacer) Victim() (int, bool) {
	return r.Evict()
}

// Pin records that frameID is now in use: it is tracked via RecordAccess
// and marked non-evictable.
func (r *LRUKReplacer) Pin(frameID int) {
	_ = r.RecordAccess(frameID)
	r.SetEvictable(frameID, false)
}

// Unpin marks frameID as evictable.
func (r *LRUKReplacer) Unpin(frameID int) {
	r.SetEvictable(frameID, true)
}
