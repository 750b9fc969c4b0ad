package testutil

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

// TempDir creates a temporary directory for testing
// It returns the directory path and a cleanup function
func TempDir(t *testing.T) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "unfold-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

// CreateTestFile creates a test file with the given content, creating parent directories
func CreateTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create test file directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return path
}

// CreateTestFileWithSize creates a test file with random content of the given size
func CreateTestFileWithSize(t *testing.T, dir, name string, size int64) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create test file directory: %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	defer file.Close()

	// Write random data in chunks
	const chunkSize = 1024 * 1024
	buf := make([]byte, chunkSize)
	remaining := size

	for remaining > 0 {
		writeSize := chunkSize
		if remaining < int64(chunkSize) {
			writeSize = int(remaining)
		}

		rand.Read(buf[:writeSize])
		if _, err := file.Write(buf[:writeSize]); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		remaining -= int64(writeSize)
	}

	return path
}
