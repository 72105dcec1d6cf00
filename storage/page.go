package storage

import "sync"

// PageSize is the fixed size, in bytes, of every page the disk managers and
// buffer pool exchange.
const PageSize = 4096

// Page is a single buffer-pool frame: a page id, its pin count and dirty
// bit, and PageSize bytes of raw content. Callers are responsible for
// interpreting the byte payload; this module treats it as opaque, the way
// the extendible hash table treats V as opaque.
type Page struct {
	mu sync.RWMutex

	pageID uint32
	pinCount int32
	isDirty bool
	data [PageSize]byte
}

// NewPage creates an empty page for the given page id.
func NewPage(pageID uint32) *Page {
	return &Page{pageID: pageID}
}

// GetPageId returns the page's id.
func (p *Page) GetPageId() uint32 {
	return p.pageID
}

// GetPinCount returns the current pin count.
func (p *Page) GetPinCount() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pinCount
}

// Pin increments the pin count, marking the page as in use.
func (p *Page) Pin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinCount++
}

// Unpin decrements the pin count. It is a no-op once the count reaches
// zero; a page cannot have negative pins.
func (p *Page) Unpin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pinCount > 0 {
		p.pinCount--
	}
}

// IsDirty returns whether the page has unflushed writes.
func (p *Page) IsDirty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isDirty
}

// SetDirty sets or clears the dirty bit.
func (p *Page) SetDirty(dirty bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isDirty = dirty
}

// GetData returns a copy of the page's raw bytes.
func (p *Page) GetData() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]byte, PageSize)
	copy(out, p.data[:])
	return out
}

// SetData overwrites the page's raw bytes and marks it dirty. data must be
// at most PageSize bytes; the remainder, if any, is zero-filled.
func (p *Page) SetData(data []byte) error {
	if len(data) > PageSize {
		return ErrInvalidPageData("SetData", len(data), PageSize)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero [PageSize]byte
	p.data = zero
	copy(p.data[:], data)
	p.isDirty = true
	return nil
}

// ResetFor reinitializes the page in place for reuse as pageID, clearing
// its content, pin count and dirty bit. BufferPoolManager does not call it;
// it allocates a new Page for every frame it fills.
func (p *Page) ResetFor(pageID uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageID = pageID
	p.pinCount = 0
	p.isDirty = false
	p.data = [PageSize]byte{}
}
