package storage

import (
	"fmt"
	"sync"
)

// BufferPoolManager manages a pool of in-memory page frames backed by disk,
// using an ExtendibleHashTable to map page ids to frames and an LRUKReplacer
// to choose eviction victims among unpinned frames. It is the external
// collaborator the two core data structures were built to serve: neither
// core type knows about pages or disk I/O, and this manager only orchestrates
// calls into them.
type BufferPoolManager struct {
	poolSize uint32
	pages []*Page
	pageTable *ExtendibleHashTable[uint32, *Page]
	freeList []int // indices of free frames
	diskManager *DiskManager
	replacer Replacer
	metrics *Metrics

	compressFlushes bool // compress dirty pages before writing to disk

	freeListMutex sync.Mutex // Protects freeList only
	pagesMutex sync.RWMutex // Protects pages array and page operations
}

// NewBufferPoolManager creates a buffer pool manager with an LRU-K(2) replacer.
func NewBufferPoolManager(poolSize uint32, diskManager *DiskManager) (*BufferPoolManager, error) {
	return NewBufferPoolManagerWithConfig(poolSize, diskManager, 2, 4, false)
}

// NewBufferPoolManagerWithConfig creates a buffer pool manager with an
// explicit LRU-K k value, extendible hash table bucket size, and whether
// dirty pages should be compressed (lz4/snappy, whichever is smaller)
// before being written to disk.
func NewBufferPoolManagerWithConfig(poolSize uint32, diskManager *DiskManager, replacerK, hashBucketSize int, compressFlushes bool) (*BufferPoolManager, error) {
	if poolSize == 0 {
		return nil, fmt.Errorf("pool size must be greater than 0")
	}

	bpm := &BufferPoolManager{
		poolSize: poolSize,
		pages: make([]*Page, poolSize),
		pageTable: NewExtendibleHashTable[uint32, *Page](hashBucketSize, Uint32Hash),
		freeList: make([]int, 0, poolSize),
		diskManager: diskManager,
		replacer: NewReplacer("lruk", int(poolSize), replacerK),
		metrics: NewMetrics(),
		compressFlushes: compressFlushes,
	}

	for i := 0; i < int(poolSize); i++ {
		bpm.freeList = append(bpm.freeList, i)
	}

	return bpm, nil
}

// GetPoolSize returns the pool size
func (bpm *BufferPoolManager) GetPoolSize() uint32 {
	return bpm.poolSize
}

// NewPage allocates a new page on disk and brings it into the buffer pool,
// pinned.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	pageId := bpm.diskManager.AllocatePage()

	frameId, err := bpm.getFrameId()
	if err != nil {
		return nil, fmt.Errorf("failed to get free frame: %w", err)
	}

	page := NewPage(pageId)
	page.Pin()

	bpm.pagesMutex.Lock()
	bpm.pages[frameId] = page
	bpm.pagesMutex.Unlock()

	if err := bpm.pageTable.Insert(pageId, page); err != nil {
		return nil, fmt.Errorf("failed to register new page: %w", err)
	}
	bpm.recordHashTableGrowth()

	bpm.replacer.Pin(frameId)

	return page, nil
}

// FetchPage fetches a page from disk if not in the buffer pool, or returns
// the page already resident in the pool.
func (bpm *BufferPoolManager) FetchPage(pageId uint32) (*Page, error) {
	if page, exists := bpm.pageTable.Find(pageId); exists {
		bpm.metrics.RecordCacheHit()
		page.Pin()
		if frameId, ok := bpm.frameOf(page); ok {
			bpm.replacer.Pin(frameId)
		}
		return page, nil
	}

	bpm.metrics.RecordCacheMiss()

	frameId, err := bpm.getFrameId()
	if err != nil {
		return nil, fmt.Errorf("failed to get free frame: %w", err)
	}

	pageData, err := bpm.diskManager.ReadPage(pageId)
	if err != nil {
		return nil, fmt.Errorf("failed to read page from disk: %w", err)
	}
	if decoded, derr := DecompressPageTransparent(pageData); derr == nil {
		pageData = decoded
	}

	page := NewPage(pageId)
	if err := page.SetData(pageData); err != nil {
		return nil, fmt.Errorf("failed to load page data: %w", err)
	}
	page.SetDirty(false)
	page.Pin()

	bpm.pagesMutex.Lock()
	bpm.pages[frameId] = page
	bpm.pagesMutex.Unlock()

	if err := bpm.pageTable.Insert(pageId, page); err != nil {
		return nil, fmt.Errorf("failed to register fetched page: %w", err)
	}
	bpm.recordHashTableGrowth()

	bpm.replacer.Pin(frameId)

	return page, nil
}

// UnpinPage unpins a page and optionally marks it dirty. Once a page's pin
// count drops to zero it becomes eligible for eviction.
func (bpm *BufferPoolManager) UnpinPage(pageId uint32, isDirty bool) error {
	page, exists := bpm.pageTable.Find(pageId)
	if !exists {
		return ErrPageNotFound("UnpinPage", pageId)
	}

	page.Unpin()

	if isDirty {
		page.SetDirty(true)
	}

	if page.GetPinCount() == 0 {
		if frameId, ok := bpm.frameOf(page); ok {
			bpm.replacer.Unpin(frameId)
		}
	}

	return nil
}

// frameOf finds the frame index currently holding page. Returns ok=false if
// the page is not resident (e.g. it was just evicted by a racing caller).
func (bpm *BufferPoolManager) frameOf(page *Page) (int, bool) {
	bpm.pagesMutex.RLock()
	defer bpm.pagesMutex.RUnlock()
	for frameId, p := range bpm.pages {
		if p == page {
			return frameId, true
		}
	}
	return 0, false
}

// getFrameId returns a free frame, evicting a page via the replacer if the
// pool is full.
func (bpm *BufferPoolManager) getFrameId() (int, error) {
	bpm.freeListMutex.Lock()
	if len(bpm.freeList) > 0 {
		frameId := bpm.freeList[0]
		bpm.freeList = bpm.freeList[1:]
		bpm.freeListMutex.Unlock()
		return frameId, nil
	}
	bpm.freeListMutex.Unlock()

	return bpm.evictPage()
}

// evictPage asks the replacer for a victim frame, flushes it if dirty, and
// removes its page from the page table.
func (bpm *BufferPoolManager) evictPage() (int, error) {
	frameId, ok := bpm.replacer.Victim()
	if !ok {
		bpm.metrics.RecordReplacerNoVictim()
		return 0, ErrNoFreePages("evictPage")
	}

	bpm.pagesMutex.Lock()
	page := bpm.pages[frameId]
	if page != nil {
		if page.IsDirty() {
			bpm.metrics.RecordDirtyPageFlush()
			if err := bpm.flushPage(page); err != nil {
				bpm.pagesMutex.Unlock()
				return 0, fmt.Errorf("failed to flush dirty page: %w", err)
			}
		}
		bpm.pageTable.Remove(page.GetPageId())
		bpm.pages[frameId] = nil
	}
	bpm.pagesMutex.Unlock()

	bpm.metrics.RecordPageEviction()

	return frameId, nil
}

// evictPagesParallel evicts up to count unpinned pages concurrently,
// flushing dirty ones in parallel before clearing their frames.
func (bpm *BufferPoolManager) evictPagesParallel(count int) ([]int, error) {
	if count <= 0 {
		return nil, fmt.Errorf("evict count must be positive")
	}

	victims := make([]int, 0, count)
	for i := 0; i < count; i++ {
		frameId, ok := bpm.replacer.Victim()
		if !ok {
			bpm.metrics.RecordReplacerNoVictim()
			break
		}
		victims = append(victims, frameId)
	}

	if len(victims) == 0 {
		return nil, ErrNoFreePages("evictPagesParallel")
	}

	type evictTask struct {
		frameId int
		page *Page
	}

	tasks := make([]evictTask, 0, len(victims))
	bpm.pagesMutex.Lock()
	for _, frameId := range victims {
		if bpm.pages[frameId] != nil {
			tasks = append(tasks, evictTask{frameId: frameId, page: bpm.pages[frameId]})
		}
	}
	bpm.pagesMutex.Unlock()

	if len(tasks) == 0 {
		return nil, ErrNoFreePages("evictPagesParallel: no valid pages")
	}

	var wg sync.WaitGroup
	errorsChan := make(chan error, len(tasks))

	for _, task := range tasks {
		if task.page.IsDirty() {
			wg.Add(1)
			go func(t evictTask) {
				defer wg.Done()
				bpm.metrics.RecordDirtyPageFlush()
				if err := bpm.flushPage(t.page); err != nil {
					errorsChan <- fmt.Errorf("failed to flush page %d: %w", t.page.GetPageId(), err)
				}
			}(task)
		}
	}

	wg.Wait()
	close(errorsChan)

	var flushErrors []error
	for err := range errorsChan {
		flushErrors = append(flushErrors, err)
	}
	if len(flushErrors) > 0 {
		return nil, flushErrors[0]
	}

	evictedFrames := make([]int, 0, len(tasks))
	bpm.pagesMutex.Lock()
	for _, task := range tasks {
		if bpm.pages[task.frameId] != nil {
			bpm.pageTable.Remove(task.page.GetPageId())
			bpm.pages[task.frameId] = nil
			evictedFrames = append(evictedFrames, task.frameId)
			bpm.metrics.RecordPageEviction()
		}
	}
	bpm.pagesMutex.Unlock()

	return evictedFrames, nil
}

// getFrameIdBatch returns up to count free frames, evicting in parallel as
// needed. It returns fewer than count when the free list and the replacer
// together cannot supply that many.
func (bpm *BufferPoolManager) getFrameIdBatch(count int) ([]int, error) {
	if count <= 0 {
		return nil, fmt.Errorf("batch count must be positive")
	}

	frames := make([]int, 0, count)

	bpm.freeListMutex.Lock()
	availableFree := len(bpm.freeList)
	if availableFree > 0 {
		takeCount := availableFree
		if takeCount > count {
			takeCount = count
		}
		frames = append(frames, bpm.freeList[:takeCount]...)
		bpm.freeList = bpm.freeList[takeCount:]
	}
	bpm.freeListMutex.Unlock()

	if len(frames) >= count {
		return frames[:count], nil
	}

	needed := count - len(frames)
	evicted, err := bpm.evictPagesParallel(needed)
	if err != nil {
		if len(frames) > 0 {
			return frames, nil
		}
		return nil, err
	}

	frames = append(frames, evicted...)
	return frames, nil
}

// flushPage writes a page's content back to disk, optionally compressing it
// first, and clears its dirty bit.
func (bpm *BufferPoolManager) flushPage(page *Page) error {
	data := page.GetData()

	if bpm.compressFlushes {
		best, err := ChooseBestCompression(data)
		if err == nil {
			if serialized, serr := SerializeCompressedPage(best); serr == nil {
				data = serialized
			}
		}
	}

	if err := bpm.diskManager.WritePage(page.GetPageId(), data); err != nil {
		return err
	}

	page.SetDirty(false)
	return nil
}

// FlushPage explicitly flushes a page to disk.
func (bpm *BufferPoolManager) FlushPage(pageId uint32) error {
	page, exists := bpm.pageTable.Find(pageId)
	if !exists {
		return ErrPageNotFound("FlushPage", pageId)
	}
	return bpm.flushPage(page)
}

// FlushAllPages flushes all dirty pages to disk using a single batched write.
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.pagesMutex.RLock()
	dirtyPages := make([]PageWrite, 0)
	for _, page := range bpm.pages {
		if page != nil && page.IsDirty() {
			dirtyPages = append(dirtyPages, PageWrite{PageID: page.GetPageId(), Data: page.GetData()})
		}
	}
	bpm.pagesMutex.RUnlock()

	if len(dirtyPages) > 0 {
		if err := bpm.diskManager.WritePagesV(dirtyPages); err != nil {
			return fmt.Errorf("failed to batch write pages: %w", err)
		}

		bpm.pagesMutex.Lock()
		for _, pw := range dirtyPages {
			if page, exists := bpm.pageTable.Find(pw.PageID); exists {
				page.SetDirty(false)
			}
		}
		bpm.pagesMutex.Unlock()
	}

	return nil
}

// FlushAllPagesParallel flushes all dirty pages concurrently using the given
// number of worker goroutines (4 if workers <= 0).
func (bpm *BufferPoolManager) FlushAllPagesParallel(workers int) error {
	if workers <= 0 {
		workers = 4
	}

	bpm.pagesMutex.RLock()
	dirtyPages := make([]*Page, 0)
	for _, page := range bpm.pages {
		if page != nil && page.IsDirty() {
			dirtyPages = append(dirtyPages, page)
		}
	}
	bpm.pagesMutex.RUnlock()

	if len(dirtyPages) == 0 {
		return nil
	}

	type flushJob struct {
		page *Page
		err error
	}

	jobs := make(chan *Page, len(dirtyPages))
	results := make(chan flushJob, len(dirtyPages))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				err := bpm.diskManager.WritePage(page.GetPageId(), page.GetData())
				results <- flushJob{page: page, err: err}
			}
		}()
	}

	for _, page := range dirtyPages {
		jobs <- page
	}
	close(jobs)

	wg.Wait()
	close(results)

	var flushErrors []error
	cleanPages := make([]*Page, 0, len(dirtyPages))

	for result := range results {
		if result.err != nil {
			flushErrors = append(flushErrors, result.err)
		} else {
			cleanPages = append(cleanPages, result.page)
		}
	}

	for _, page := range cleanPages {
		page.SetDirty(false)
	}

	if len(flushErrors) > 0 {
		return fmt.Errorf("failed to flush %d pages: %w", len(flushErrors), flushErrors[0])
	}

	return nil
}

// GetDirtyPageCount returns the number of dirty pages in the buffer pool
func (bpm *BufferPoolManager) GetDirtyPageCount() int {
	bpm.pagesMutex.RLock()
	defer bpm.pagesMutex.RUnlock()
	count := 0
	for _, page := range bpm.pages {
		if page != nil && page.IsDirty() {
			count++
		}
	}
	return count
}

// GetCapacity returns the total capacity of the buffer pool
func (bpm *BufferPoolManager) GetCapacity() int {
	return int(bpm.poolSize)
}

// GetDirtyPages returns up to maxPages dirty page IDs
func (bpm *BufferPoolManager) GetDirtyPages(maxPages int) []uint32 {
	bpm.pagesMutex.RLock()
	defer bpm.pagesMutex.RUnlock()
	dirtyPages := make([]uint32, 0, maxPages)
	for _, page := range bpm.pages {
		if len(dirtyPages) >= maxPages {
			break
		}
		if page != nil && page.IsDirty() {
			dirtyPages = append(dirtyPages, page.GetPageId())
		}
	}
	return dirtyPages
}

// GetMetrics returns the buffer pool metrics
func (bpm *BufferPoolManager) GetMetrics() *Metrics {
	return bpm.metrics
}

// recordHashTableGrowth mirrors the page table's split/growth counters into
// the buffer pool's own metrics after every insert.
func (bpm *BufferPoolManager) recordHashTableGrowth() {
	if bpm.pageTable.SplitCount() > 0 {
		bpm.metrics.hashBucketSplits.Store(uint64(bpm.pageTable.SplitCount()))
	}
	if bpm.pageTable.DirectoryGrowthCount() > 0 {
		bpm.metrics.hashDirectoryGrowths.Store(uint64(bpm.pageTable.DirectoryGrowthCount()))
	}
}
