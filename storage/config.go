package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config holds buffer-pool engine configuration.
type Config struct {
	// Buffer Pool Configuration
	BufferPoolSize uint32 `json:"buffer_pool_size"` // Number of frames in the buffer pool
	ReplacerAlgorithm string `json:"replacer_algorithm"` // Page replacement policy; only "lruk" is implemented
	ReplacerK int `json:"replacer_k"` // K in LRU-K; the number of accesses before a frame leaves the history list
	HashBucketSize int `json:"hash_bucket_size"` // Max entries per extendible hash table bucket
	EnablePrefetching bool `json:"enable_prefetching"` // Enable sequential prefetching

	// Disk Configuration
	DataDirectory string `json:"data_directory"` // Directory for data files
	PageSize uint32 `json:"page_size"` // Page size in bytes (default: 4096)
	UseMmap bool `json:"use_mmap"` // Use memory-mapped disk I/O instead of read/write syscalls

	// Compression Configuration
	FrameCompressionEnabled bool `json:"frame_compression_enabled"` // Compress dirty frames before flush
	FrameCompressionAlg string `json:"frame_compression_alg"` // Compression algorithm (lz4, snappy, none)

	// Performance Configuration
	EnableMetrics bool `json:"enable_metrics"` // Whether to collect performance metrics
	LogLevel string `json:"log_level"` // Log level (debug, info, warn, error)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BufferPoolSize: 100,
		ReplacerAlgorithm: "lruk",
		ReplacerK: 2,
		HashBucketSize: 4,
		EnablePrefetching: false,
		DataDirectory: "./data",
		PageSize: PageSize,
		UseMmap: false,
		FrameCompressionEnabled: false,
		FrameCompressionAlg: "none",
		EnableMetrics: true,
		LogLevel: "info",
	}
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	err = json.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnv loads configuration from environment variables, falling
// back to default values if a variable is not set.
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if val := os.Getenv("BUFFERCORE_BUFFER_POOL_SIZE"); val != "" {
		if size, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.BufferPoolSize = uint32(size)
		}
	}

	if val := os.Getenv("BUFFERCORE_REPLACER_K"); val != "" {
		if k, err := strconv.Atoi(val); err == nil {
			config.ReplacerK = k
		}
	}

	if val := os.Getenv("BUFFERCORE_HASH_BUCKET_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.HashBucketSize = size
		}
	}

	if val := os.Getenv("BUFFERCORE_DATA_DIRECTORY"); val != "" {
		config.DataDirectory = val
	}

	if val := os.Getenv("BUFFERCORE_PAGE_SIZE"); val != "" {
		if size, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.PageSize = uint32(size)
		}
	}

	if val := os.Getenv("BUFFERCORE_USE_MMAP"); val != "" {
		config.UseMmap = val == "true" || val == "1"
	}

	if val := os.Getenv("BUFFERCORE_ENABLE_METRICS"); val != "" {
		config.EnableMetrics = val == "true" || val == "1"
	}

	if val := os.Getenv("BUFFERCORE_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	return config
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.BufferPoolSize == 0 {
		return fmt.Errorf("buffer pool size must be greater than 0")
	}

	if c.ReplacerK < 1 {
		return fmt.Errorf("replacer k must be at least 1")
	}

	if c.HashBucketSize < 1 {
		return fmt.Errorf("hash bucket size must be at least 1")
	}

	if c.PageSize == 0 {
		return fmt.Errorf("page size must be greater than 0")
	}

	if c.PageSize%512 != 0 {
		return fmt.Errorf("page size must be a multiple of 512")
	}

	if c.DataDirectory == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info": true,
		"warn": true,
		"error": true,
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
