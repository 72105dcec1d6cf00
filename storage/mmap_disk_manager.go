package storage

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// MmapDiskManager provides zero-copy disk access using memory-mapped files.
type MmapDiskManager struct {
	file          *os.File
	mmapData      []byte
	fileSize      int64
	nextPageId    uint32
	mutex         sync.RWMutex
	growMutex     sync.Mutex // Separate mutex for file growth operations
}

const (
	// Initial file size: 1GB (256K pages * 4KB)
	InitialFileSize = 1024 * 1024 * 1024
	// Grow by 256MB when we run out of space
	FileGrowSize = 256 * 1024 * 1024
)

// NewMmapDiskManager creates a new memory-mapped disk manager
func NewMmapDiskManager(fileName string) (*MmapDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, ErrDiskOperation("NewMmapDiskManager", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ErrDiskOperation("NewMmapDiskManager", err)
	}

	fileSize := fileInfo.Size()

	if fileSize < InitialFileSize {
		err = file.Truncate(InitialFileSize)
		if err != nil {
			file.Close()
			return nil, ErrDiskOperation("NewMmapDiskManager", err)
		}
		fileSize = InitialFileSize
	}

	dm := &MmapDiskManager{
		file:       file,
		fileSize:   fileSize,
		nextPageId: 0,
	}

	if err := dm.createMapping(); err != nil {
		file.Close()
		return nil, err
	}

	dm.nextPageId = uint32(fileSize / PageSize)

	return dm, nil
}

// createMapping maps the file's current extent into memory read/write.
func (dm *MmapDiskManager) createMapping() error {
	data, err := unix.Mmap(int(dm.file.Fd()), 0, int(dm.fileSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return ErrDiskOperation("createMapping", err)
	}
	dm.mmapData = data
	return nil
}

// AllocatePage allocates a new page and returns its page ID
func (dm *MmapDiskManager) AllocatePage() (uint32, error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	pageId := dm.nextPageId

	requiredSize := int64(pageId+1) * PageSize
	if requiredSize > dm.fileSize {
		dm.mutex.Unlock()
		err := dm.growFile()
		dm.mutex.Lock()
		if err != nil {
			return 0, err
		}
	}

	dm.nextPageId++
	return pageId, nil
}

// growFile expands the file and recreates the mapping
func (dm *MmapDiskManager) growFile() error {
	dm.growMutex.Lock()
	defer dm.growMutex.Unlock()

	if dm.mmapData != nil {
		if err := unix.Munmap(dm.mmapData); err != nil {
			return ErrDiskOperation("growFile", err)
		}
		dm.mmapData = nil
	}

	newSize := dm.fileSize + FileGrowSize
	err := dm.file.Truncate(newSize)
	if err != nil {
		dm.createMapping()
		return ErrDiskOperation("growFile", err)
	}

	dm.fileSize = newSize

	return dm.createMapping()
}

// ReadPage reads a page from the memory-mapped region (zero-copy).
// Callers must not mutate the returned slice; use ReadPageCopy if
// modification is needed.
func (dm *MmapDiskManager) ReadPage(pageId uint32) ([]byte, error) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	offset := int64(pageId) * PageSize

	if offset+PageSize > dm.fileSize {
		return nil, ErrPageOutOfBounds("ReadPage", pageId, dm.fileSize)
	}

	return dm.mmapData[offset : offset+PageSize], nil
}

// ReadPageCopy reads a page and returns a copy (safe for modification)
func (dm *MmapDiskManager) ReadPageCopy(pageId uint32) ([]byte, error) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	offset := int64(pageId) * PageSize

	if offset+PageSize > dm.fileSize {
		return nil, ErrPageOutOfBounds("ReadPageCopy", pageId, dm.fileSize)
	}

	data := make([]byte, PageSize)
	copy(data, dm.mmapData[offset:offset+PageSize])
	return data, nil
}

// WritePage writes a page to the memory-mapped region
func (dm *MmapDiskManager) WritePage(pageId uint32, data []byte) error {
	if len(data) != PageSize {
		return ErrInvalidPageData("WritePage", len(data), PageSize)
	}

	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	offset := int64(pageId) * PageSize

	if offset+PageSize > dm.fileSize {
		return ErrPageOutOfBounds("WritePage", pageId, dm.fileSize)
	}

	copy(dm.mmapData[offset:offset+PageSize], data)

	return nil
}

// WritePagesV writes multiple pages in a single batch operation
func (dm *MmapDiskManager) WritePagesV(writes []PageWrite) error {
	if len(writes) == 0 {
		return nil
	}

	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	for _, pw := range writes {
		if len(pw.Data) != PageSize {
			return ErrInvalidPageData("WritePagesV", len(pw.Data), PageSize)
		}

		offset := int64(pw.PageID) * PageSize

		if offset+PageSize > dm.fileSize {
			return ErrPageOutOfBounds("WritePagesV", pw.PageID, dm.fileSize)
		}

		copy(dm.mmapData[offset:offset+PageSize], pw.Data)
	}

	return nil
}

// Flush ensures all dirty pages are written to disk
func (dm *MmapDiskManager) Flush() error {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	if dm.mmapData == nil {
		return nil
	}

	if err := unix.Msync(dm.mmapData, unix.MS_SYNC); err != nil {
		return ErrDiskOperation("Flush", err)
	}

	if err := dm.file.Sync(); err != nil {
		return ErrDiskOperation("Flush", err)
	}
	return nil
}

// FlushPage flushes a specific page to disk
func (dm *MmapDiskManager) FlushPage(pageId uint32) error {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	offset := int64(pageId) * PageSize

	if offset+PageSize > dm.fileSize {
		return ErrPageOutOfBounds("FlushPage", pageId, dm.fileSize)
	}

	if err := unix.Msync(dm.mmapData[offset:offset+PageSize], unix.MS_SYNC); err != nil {
		return ErrDiskOperation("FlushPage", err)
	}

	return nil
}

// FlushPages flushes multiple pages to disk
func (dm *MmapDiskManager) FlushPages(pageIds []uint32) error {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	for _, pageId := range pageIds {
		offset := int64(pageId) * PageSize

		if offset+PageSize > dm.fileSize {
			return ErrPageOutOfBounds("FlushPages", pageId, dm.fileSize)
		}

		if err := unix.Msync(dm.mmapData[offset:offset+PageSize], unix.MS_SYNC); err != nil {
			return ErrDiskOperation("FlushPages", err)
		}
	}

	return nil
}

// AdviceType represents memory access advice
type AdviceType int

const (
	AdviceNormal     AdviceType = 0 // No special treatment
	AdviceRandom     AdviceType = 1 // Random access pattern
	AdviceSequential AdviceType = 2 // Sequential access pattern
	AdviceWillNeed   AdviceType = 3 // Will need these pages soon (prefetch)
	AdviceDontNeed   AdviceType = 4 // Won't need these pages (can evict)
)

// Advise provides hints to the OS about memory access patterns via madvise.
func (dm *MmapDiskManager) Advise(pageId uint32, advice AdviceType) error {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	offset := int64(pageId) * PageSize
	if offset+PageSize > dm.fileSize {
		return ErrPageOutOfBounds("Advise", pageId, dm.fileSize)
	}

	region := dm.mmapData[offset : offset+PageSize]

	var advise int
	switch advice {
	case AdviceRandom:
		advise = unix.MADV_RANDOM
	case AdviceSequential:
		advise = unix.MADV_SEQUENTIAL
	case AdviceWillNeed:
		advise = unix.MADV_WILLNEED
	case AdviceDontNeed:
		advise = unix.MADV_DONTNEED
	default:
		advise = unix.MADV_NORMAL
	}

	if err := unix.Madvise(region, advise); err != nil {
		return ErrDiskOperation("Advise", err)
	}
	return nil
}

// GetFileSize returns the current file size
func (dm *MmapDiskManager) GetFileSize() int64 {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()
	return dm.fileSize
}

// GetNextPageId returns the next page ID that will be allocated
func (dm *MmapDiskManager) GetNextPageId() uint32 {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()
	return dm.nextPageId
}

// Close unmaps memory and closes the file
func (dm *MmapDiskManager) Close() error {
	dm.Flush()

	if dm.mmapData != nil {
		if err := unix.Munmap(dm.mmapData); err != nil {
			return ErrDiskOperation("Close", err)
		}
		dm.mmapData = nil
	}

	if dm.file != nil {
		if err := dm.file.Close(); err != nil {
			return ErrDiskOperation("Close", err)
		}
	}

	return nil
}

// MmapStats reports statistics about the mmap disk manager.
type MmapStats struct {
	FileSize    int64
	MappedSize  int64
	NextPageId  uint32
	UsedPages   uint32
	AllocatedMB int64
	UsedMB      int64
}

func (dm *MmapDiskManager) GetStats() MmapStats {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	return MmapStats{
		FileSize:    dm.fileSize,
		MappedSize:  int64(len(dm.mmapData)),
		NextPageId:  dm.nextPageId,
		UsedPages:   dm.nextPageId,
		AllocatedMB: dm.fileSize / (1024 * 1024),
		UsedMB:      int64(dm.nextPageId) * PageSize / (1024 * 1024),
	}
}
