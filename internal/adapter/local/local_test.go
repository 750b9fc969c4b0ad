package local

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/Ning0612/unfold/internal/domain"
	"github.com/Ning0612/unfold/internal/testutil"
)

func newMemStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewWithFs(fs, "/dest")
	if err != nil {
		t.Fatalf("NewWithFs failed: %v", err)
	}
	return s, fs
}

func TestStore_Stat(t *testing.T) {
	s, fs := newMemStore(t)

	if err := afero.WriteFile(fs, "/dest/2023_01/a.jpg", []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll("/dest/dir.jpg", 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		exists bool
		size   int64
	}{
		{"existing file", "/dest/2023_01/a.jpg", true, 5},
		{"missing file", "/dest/2023_01/b.jpg", false, 0},
		{"directory in place of file", "/dest/dir.jpg", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := s.Stat(tt.path)
			if err != nil {
				t.Fatalf("Stat failed: %v", err)
			}
			if st.Exists != tt.exists || st.Size != tt.size {
				t.Errorf("got %+v, want exists=%v size=%d", st, tt.exists, tt.size)
			}
		})
	}
}

func TestStore_ResolveRejectsEscape(t *testing.T) {
	s, _ := newMemStore(t)

	bad := []string{"/dest/../etc/passwd", "/etc/passwd", "/destination/x", ""}
	for _, p := range bad {
		if _, err := s.Resolve(p); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("Resolve(%q) = %v, want ErrPermissionDenied", p, err)
		}
	}

	got, err := s.Resolve("/dest/a/../b.jpg")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != filepath.Clean("/dest/b.jpg") {
		t.Errorf("got %q", got)
	}
}

func TestStore_Write(t *testing.T) {
	s, fs := newMemStore(t)

	n, err := s.Write(context.Background(), "/dest/2023_01_January/IMG_001.jpg", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 11 {
		t.Errorf("expected 11 bytes, got %d", n)
	}

	data, err := afero.ReadFile(fs, "/dest/2023_01_January/IMG_001.jpg")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected content %q", data)
	}

	if ok, _ := afero.Exists(fs, "/dest/2023_01_January/IMG_001.jpg"+tempSuffix); ok {
		t.Error("temp file left behind")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stream broke") }

func TestStore_WriteFailureLeavesNoFile(t *testing.T) {
	s, fs := newMemStore(t)

	if _, err := s.Write(context.Background(), "/dest/x/a.jpg", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	for _, p := range []string{"/dest/x/a.jpg", "/dest/x/a.jpg" + tempSuffix} {
		if ok, _ := afero.Exists(fs, p); ok {
			t.Errorf("%s should not exist", p)
		}
	}
}

func TestStore_WriteCancelled(t *testing.T) {
	s, _ := newMemStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Write(ctx, "/dest/a.jpg", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStore_EnsureRoot(t *testing.T) {
	s, fs := newMemStore(t)

	if err := s.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}
	if ok, _ := afero.DirExists(fs, "/dest"); !ok {
		t.Error("root not created")
	}

	fileFs := afero.NewMemMapFs()
	_ = afero.WriteFile(fileFs, "/file", []byte("x"), 0o644)
	fileStore, _ := NewWithFs(fileFs, "/file")
	if err := fileStore.EnsureRoot(); !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestNewWithFs_EmptyRoot(t *testing.T) {
	if _, err := NewWithFs(afero.NewMemMapFs(), "  "); !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestStore_OsFs(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	path := testutil.CreateTestFileWithSize(t, dir, filepath.Join("2023_01", "big.bin"), 3*1024*1024+7)

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	st, err := s.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !st.Exists || st.Size != 3*1024*1024+7 {
		t.Errorf("unexpected stat %+v", st)
	}
}
