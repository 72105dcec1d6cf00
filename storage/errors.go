package storage

import (
	"errors"
	"fmt"
)

// ErrorCode represents different types of storage errors
type ErrorCode int

const (
	// Generic errors
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInternal

	// Page errors
	ErrCodePageNotFound
	ErrCodePageFull
	ErrCodeInvalidPageID
	ErrCodePageCorrupted
	ErrCodeInvalidPageData

	// Buffer pool errors
	ErrCodeNoFreePages
	ErrCodePagePinned
	ErrCodeInvalidPin

	// Replacer errors
	ErrCodeInvalidFrame
	ErrCodeFrameNotEvictable

	// Extendible hash table errors
	ErrCodeHashCollisionOverflow
	ErrCodeInvalidDirectoryIndex

	// Disk errors
	ErrCodeDiskFull
	ErrCodeDiskReadFailed
	ErrCodeDiskWriteFailed
	ErrCodeFileNotFound

	// Compression errors
	ErrCodeCompressionFailed
)

// StorageError represents a storage engine error with context
type StorageError struct {
	Code    ErrorCode
	Message string
	Op      string // Operation that failed
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a specific error code
func (e *StorageError) Is(target error) bool {
	if t, ok := target.(*StorageError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewStorageError creates a new storage error
func NewStorageError(code ErrorCode, op, message string, err error) *StorageError {
	return &StorageError{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Helper functions for common errors

func ErrPageNotFound(op string, pageID uint32) *StorageError {
	return NewStorageError(
		ErrCodePageNotFound,
		op,
		fmt.Sprintf("page %d not found", pageID),
		nil,
	)
}

func ErrPageFull(op string, pageID uint32) *StorageError {
	return NewStorageError(
		ErrCodePageFull,
		op,
		fmt.Sprintf("page %d is full", pageID),
		nil,
	)
}

// ErrInvalidPageData reports page data whose size is not acceptable for a
// page: larger than maxSize, or, for callers that need exactly PageSize
// bytes, any other size.
func ErrInvalidPageData(op string, size, maxSize int) *StorageError {
	msg := fmt.Sprintf("page data size %d exceeds page size %d", size, maxSize)
	if size < maxSize {
		msg = fmt.Sprintf("page data size %d does not match page size %d", size, maxSize)
	}
	return NewStorageError(
		ErrCodeInvalidPageData,
		op,
		msg,
		nil,
	)
}

func ErrNoFreePages(op string) *StorageError {
	return NewStorageError(
		ErrCodeNoFreePages,
		op,
		"no free pages available in buffer pool",
		nil,
	)
}

func ErrPagePinned(op string, pageID uint32, pinCount int) *StorageError {
	return NewStorageError(
		ErrCodePagePinned,
		op,
		fmt.Sprintf("page %d is pinned (pin count: %d)", pageID, pinCount),
		nil,
	)
}

// ErrInvalidFrame reports a frame id outside [0, numFrames) passed to the replacer.
func ErrInvalidFrame(op string, frameID, numFrames int) *StorageError {
	return NewStorageError(
		ErrCodeInvalidFrame,
		op,
		fmt.Sprintf("frame %d is out of range [0, %d)", frameID, numFrames),
		nil,
	)
}

// ErrFrameNotEvictable reports Remove called on a tracked but pinned frame.
func ErrFrameNotEvictable(op string, frameID int) *StorageError {
	return NewStorageError(
		ErrCodeFrameNotEvictable,
		op,
		fmt.Sprintf("frame %d is not evictable", frameID),
		nil,
	)
}

// ErrHashCollisionOverflow reports that a bucket could not be split into room
// for a new key even after the hash table's safety cap on split attempts.
func ErrHashCollisionOverflow(op string, splitAttempts int) *StorageError {
	return NewStorageError(
		ErrCodeHashCollisionOverflow,
		op,
		fmt.Sprintf("could not make room for key after %d splits; keys likely share a hash prefix", splitAttempts),
		nil,
	)
}

func ErrInvalidDirectoryIndex(op string, index, dirLen int) *StorageError {
	return NewStorageError(
		ErrCodeInvalidDirectoryIndex,
		op,
		fmt.Sprintf("directory index %d is out of range [0, %d)", index, dirLen),
		nil,
	)
}

// ErrPageOutOfBounds reports a page id whose offset falls past the current
// extent of a memory-mapped or on-disk file.
func ErrPageOutOfBounds(op string, pageID uint32, fileSize int64) *StorageError {
	return NewStorageError(
		ErrCodeInvalidPageID,
		op,
		fmt.Sprintf("page %d out of bounds (file size: %d)", pageID, fileSize),
		nil,
	)
}

func ErrDiskOperation(op string, err error) *StorageError {
	return NewStorageError(
		ErrCodeDiskWriteFailed,
		op,
		"disk operation failed",
		err,
	)
}

// ErrCompressionFailed reports a codec (LZ4/Snappy) failure or an
// unsupported CompressionType passed to CompressPage/DecompressPage.
func ErrCompressionFailed(op, message string, err error) *StorageError {
	return NewStorageError(
		ErrCodeCompressionFailed,
		op,
		message,
		err,
	)
}

// ErrPageCorrupted reports a compressed page that failed its magic-number,
// length, or checksum check on deserialize/decompress.
func ErrPageCorrupted(op, message string) *StorageError {
	return NewStorageError(
		ErrCodePageCorrupted,
		op,
		message,
		nil,
	)
}

// IsErrorCode checks if err, or anything it wraps, is a *StorageError with
// the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// GetErrorCode returns the error code from err or anything it wraps, or
// ErrCodeUnknown if it isn't a *StorageError.
func GetErrorCode(err error) ErrorCode {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeUnknown
}
