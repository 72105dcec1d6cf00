package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BufferPoolSize != 100 {
		t.Errorf("Expected buffer pool size 100, got %d", config.BufferPoolSize)
	}

	if config.PageSize != PageSize {
		t.Errorf("Expected page size %d, got %d", PageSize, config.PageSize)
	}

	if config.ReplacerAlgorithm != "lruk" {
		t.Errorf("Expected replacer algorithm 'lruk', got '%s'", config.ReplacerAlgorithm)
	}

	if config.ReplacerK != 2 {
		t.Errorf("Expected replacer k 2, got %d", config.ReplacerK)
	}

	if config.HashBucketSize != 4 {
		t.Errorf("Expected hash bucket size 4, got %d", config.HashBucketSize)
	}

	if !config.EnableMetrics {
		t.Error("Expected metrics to be enabled by default")
	}

	if config.LogLevel != "info" {
		t.Errorf("Expected log level 'info', got '%s'", config.LogLevel)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{
			name:        "valid config",
			config:      DefaultConfig(),
			expectError: false,
		},
		{
			name: "zero buffer pool size",
			config: &Config{
				BufferPoolSize: 0,
				ReplacerK:      2,
				HashBucketSize: 4,
				PageSize:       4096,
				DataDirectory:  "./data",
				LogLevel:       "info",
			},
			expectError: true,
		},
		{
			name: "zero page size",
			config: &Config{
				BufferPoolSize: 100,
				ReplacerK:      2,
				HashBucketSize: 4,
				PageSize:       0,
				DataDirectory:  "./data",
				LogLevel:       "info",
			},
			expectError: true,
		},
		{
			name: "invalid page size",
			config: &Config{
				BufferPoolSize: 100,
				ReplacerK:      2,
				HashBucketSize: 4,
				PageSize:       4000, // Not a multiple of 512
				DataDirectory:  "./data",
				LogLevel:       "info",
			},
			expectError: true,
		},
		{
			name: "empty data directory",
			config: &Config{
				BufferPoolSize: 100,
				ReplacerK:      2,
				HashBucketSize: 4,
				PageSize:       4096,
				DataDirectory:  "",
				LogLevel:       "info",
			},
			expectError: true,
		},
		{
			name: "replacer k below minimum",
			config: &Config{
				BufferPoolSize: 100,
				ReplacerK:      0,
				HashBucketSize: 4,
				PageSize:       4096,
				DataDirectory:  "./data",
				LogLevel:       "info",
			},
			expectError: true,
		},
		{
			name: "hash bucket size below minimum",
			config: &Config{
				BufferPoolSize: 100,
				ReplacerK:      2,
				HashBucketSize: 0,
				PageSize:       4096,
				DataDirectory:  "./data",
				LogLevel:       "info",
			},
			expectError: true,
		},
		{
			name: "invalid log level",
			config: &Config{
				BufferPoolSize: 100,
				ReplacerK:      2,
				HashBucketSize: 4,
				PageSize:       4096,
				DataDirectory:  "./data",
				LogLevel:       "invalid",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	originalConfig := DefaultConfig()
	originalConfig.BufferPoolSize = 200
	originalConfig.LogLevel = "debug"

	err := originalConfig.SaveToFile(configPath)
	if err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loadedConfig, err := LoadConfigFromFile(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.BufferPoolSize != 200 {
		t.Errorf("Expected buffer pool size 200, got %d", loadedConfig.BufferPoolSize)
	}

	if loadedConfig.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", loadedConfig.LogLevel)
	}
}

func TestLoadConfigFromInvalidFile(t *testing.T) {
	_, err := LoadConfigFromFile("/nonexistent/config.json")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	originalVars := map[string]string{
		"BUFFERCORE_BUFFER_POOL_SIZE": os.Getenv("BUFFERCORE_BUFFER_POOL_SIZE"),
		"BUFFERCORE_USE_MMAP":         os.Getenv("BUFFERCORE_USE_MMAP"),
		"BUFFERCORE_LOG_LEVEL":        os.Getenv("BUFFERCORE_LOG_LEVEL"),
	}

	defer func() {
		for key, val := range originalVars {
			if val == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, val)
			}
		}
	}()

	os.Setenv("BUFFERCORE_BUFFER_POOL_SIZE", "500")
	os.Setenv("BUFFERCORE_USE_MMAP", "true")
	os.Setenv("BUFFERCORE_LOG_LEVEL", "debug")

	config := LoadConfigFromEnv()

	if config.BufferPoolSize != 500 {
		t.Errorf("Expected buffer pool size 500, got %d", config.BufferPoolSize)
	}

	if !config.UseMmap {
		t.Error("Expected mmap to be enabled")
	}

	if config.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", config.LogLevel)
	}
}

func TestConfigClone(t *testing.T) {
	original := DefaultConfig()
	original.BufferPoolSize = 500
	original.LogLevel = "debug"

	clone := original.Clone()

	if clone.BufferPoolSize != original.BufferPoolSize {
		t.Errorf("Clone buffer pool size mismatch: got %d, want %d",
			clone.BufferPoolSize, original.BufferPoolSize)
	}

	if clone.LogLevel != original.LogLevel {
		t.Errorf("Clone log level mismatch: got %s, want %s",
			clone.LogLevel, original.LogLevel)
	}

	clone.BufferPoolSize = 1000

	if original.BufferPoolSize == 1000 {
		t.Error("Modifying clone should not affect original")
	}
}

func TestEnvVarBooleanParsing(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"true string", "true", true},
		{"1 string", "1", true},
		{"false string", "false", false},
		{"0 string", "0", false},
		{"other string", "other", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("BUFFERCORE_USE_MMAP", tt.value)
			defer os.Unsetenv("BUFFERCORE_USE_MMAP")

			config := LoadConfigFromEnv()
			if config.UseMmap != tt.expected {
				t.Errorf("Expected UseMmap=%v for value '%s', got %v",
					tt.expected, tt.value, config.UseMmap)
			}
		})
	}
}
