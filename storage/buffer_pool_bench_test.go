package storage

import (
	"fmt"
	"math/rand"
	"os"
	"testing"
)

// setupBufferPool wires a fresh on-disk buffer pool for benchmarking.
func setupBufferPool(b *testing.B, poolSize uint32) (*BufferPoolManager, func()) {
	b.Helper()

	dbFile := "bench_bpm_test.db"
	dm, err := NewDiskManager(dbFile)
	if err != nil {
		b.Fatal(err)
	}

	bpm, err := NewBufferPoolManager(poolSize, dm)
	if err != nil {
		b.Fatal(err)
	}

	cleanup := func() {
		bpm.FlushAllPages()
		dm.Close()
		os.Remove(dbFile)
	}

	return bpm, cleanup
}

// setupMmapDiskManager wires a fresh mmap disk manager for benchmarking.
// BufferPoolManager is built against the handle-based DiskManager, so the
// mmap manager is benchmarked directly rather than through the pool.
func setupMmapDiskManager(b *testing.B) (*MmapDiskManager, func()) {
	b.Helper()

	dbFile := "bench_mmap_test.db"
	dm, err := NewMmapDiskManager(dbFile)
	if err != nil {
		b.Fatal(err)
	}

	cleanup := func() {
		dm.Close()
		os.Remove(dbFile)
	}

	return dm, cleanup
}

func BenchmarkBufferPoolNewPage(b *testing.B) {
	bpm, cleanup := setupBufferPool(b, 100)
	defer cleanup()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		page, err := bpm.NewPage()
		if err != nil {
			b.Fatal(err)
		}
		bpm.UnpinPage(page.GetPageId(), false)
	}
}

func BenchmarkBufferPoolFetchPageCacheHit(b *testing.B) {
	bpm, cleanup := setupBufferPool(b, 100)
	defer cleanup()

	page, err := bpm.NewPage()
	if err != nil {
		b.Fatal(err)
	}
	pageId := page.GetPageId()
	bpm.UnpinPage(pageId, false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fetched, err := bpm.FetchPage(pageId)
		if err != nil {
			b.Fatal(err)
		}
		bpm.UnpinPage(fetched.GetPageId(), false)
	}
}

func BenchmarkBufferPoolFetchPageCacheMiss(b *testing.B) {
	bpm, cleanup := setupBufferPool(b, 10) // small pool forces evictions
	defer cleanup()

	pageIds := make([]uint32, 100)
	for i := 0; i < 100; i++ {
		page, err := bpm.NewPage()
		if err != nil {
			b.Fatal(err)
		}
		pageIds[i] = page.GetPageId()
		bpm.UnpinPage(page.GetPageId(), true) // dirty, forces a disk write on eviction
	}
	if err := bpm.FlushAllPages(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pageId := pageIds[i%100]
		fetched, err := bpm.FetchPage(pageId)
		if err != nil {
			b.Fatal(err)
		}
		bpm.UnpinPage(fetched.GetPageId(), false)
	}
}

// BenchmarkMmapDiskManagerReadPage measures the mmap read path directly
// through ReadPageCopy, which copies each page out of the mapping, as the
// comparison point for BenchmarkBufferPoolFetchPageCacheMiss's handle-based
// equivalent above.
func BenchmarkMmapDiskManagerReadPage(b *testing.B) {
	dm, cleanup := setupMmapDiskManager(b)
	defer cleanup()

	pageIds := make([]uint32, 100)
	page := make([]byte, PageSize)
	for i := 0; i < 100; i++ {
		pageId, err := dm.AllocatePage()
		if err != nil {
			b.Fatal(err)
		}
		pageIds[i] = pageId
		if err := dm.WritePage(pageId, page); err != nil {
			b.Fatal(err)
		}
	}
	if err := dm.Flush(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dm.ReadPageCopy(pageIds[i%100]); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMmapDiskManagerAdvise measures the cost of the unix.Madvise hint
// call behind AdviceWillNeed, the piece of the mmap manager with no
// equivalent in the handle-based DiskManager above it.
func BenchmarkMmapDiskManagerAdvise(b *testing.B) {
	dm, cleanup := setupMmapDiskManager(b)
	defer cleanup()

	pageId, err := dm.AllocatePage()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := dm.Advise(pageId, AdviceWillNeed); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBufferPoolSizes(b *testing.B) {
	sizes := []uint32{10, 50, 100, 500, 1000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("PoolSize%d", size), func(b *testing.B) {
			bpm, cleanup := setupBufferPool(b, size)
			defer cleanup()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				page, err := bpm.NewPage()
				if err != nil {
					if !IsErrorCode(err, ErrCodeNoFreePages) {
						b.Fatal(err)
					}
					// Pool full: fall back to fetching an already-allocated page.
					page, err = bpm.FetchPage(1)
					if err != nil {
						b.Fatal(err)
					}
				}
				bpm.UnpinPage(page.GetPageId(), false)
			}
		})
	}
}

func BenchmarkBufferPoolFlushDirtyPages(b *testing.B) {
	bpm, cleanup := setupBufferPool(b, 100)
	defer cleanup()

	pageIds := make([]uint32, 50)
	for i := 0; i < 50; i++ {
		page, err := bpm.NewPage()
		if err != nil {
			b.Fatal(err)
		}
		pageIds[i] = page.GetPageId()
		bpm.UnpinPage(page.GetPageId(), true)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bpm.FlushAllPages(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBufferPoolRandomAccess(b *testing.B) {
	bpm, cleanup := setupBufferPool(b, 100)
	defer cleanup()

	pageIds := make([]uint32, 500)
	for i := 0; i < 500; i++ {
		page, err := bpm.NewPage()
		if err != nil {
			b.Fatal(err)
		}
		pageIds[i] = page.GetPageId()
		bpm.UnpinPage(page.GetPageId(), true)
	}
	if err := bpm.FlushAllPages(); err != nil {
		b.Fatal(err)
	}

	r := rand.New(rand.NewSource(42))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		pageId := pageIds[r.Intn(500)]
		page, err := bpm.FetchPage(pageId)
		if err != nil {
			b.Fatal(err)
		}
		bpm.UnpinPage(page.GetPageId(), false)
	}
}

func BenchmarkBufferPoolSequentialAccess(b *testing.B) {
	bpm, cleanup := setupBufferPool(b, 100)
	defer cleanup()

	pageIds := make([]uint32, 500)
	for i := 0; i < 500; i++ {
		page, err := bpm.NewPage()
		if err != nil {
			b.Fatal(err)
		}
		pageIds[i] = page.GetPageId()
		bpm.UnpinPage(page.GetPageId(), true)
	}
	if err := bpm.FlushAllPages(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pageId := pageIds[i%500]
		page, err := bpm.FetchPage(pageId)
		if err != nil {
			b.Fatal(err)
		}
		bpm.UnpinPage(page.GetPageId(), false)
	}
}

// BenchmarkPageCompressionRoundTrip measures the compression path that
// BufferPoolManager calls through ChooseBestCompression/SerializeCompressedPage
// when persisting dirty pages, so the cost of that StorageError-returning
// path is visible alongside the raw I/O benchmarks above.
func BenchmarkPageCompressionRoundTrip(b *testing.B) {
	data := make([]byte, PageSize)
	r := rand.New(rand.NewSource(7))
	// Sparse, compressible payload: mirrors a mostly-empty page, not random noise.
	for i := 0; i < PageSize/8; i++ {
		data[r.Intn(PageSize)] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		best, err := ChooseBestCompression(data)
		if err != nil {
			b.Fatal(err)
		}
		serialized, err := SerializeCompressedPage(best)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := DecompressPageTransparent(serialized); err != nil {
			b.Fatal(err)
		}
	}
}
