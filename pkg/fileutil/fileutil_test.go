package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("Exists returned true for non-existent file")
	}

	path := filepath.Join(tmpDir, "exists.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("Exists returned false for existing file")
	}
}

func TestIsNonEmpty(t *testing.T) {
	tmpDir := t.TempDir()

	if IsNonEmpty(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("IsNonEmpty returned true for non-existent file")
	}

	emptyPath := filepath.Join(tmpDir, "empty.txt")
	if err := os.WriteFile(emptyPath, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}
	if IsNonEmpty(emptyPath) {
		t.Error("IsNonEmpty returned true for empty file")
	}

	nonEmptyPath := filepath.Join(tmpDir, "nonempty.txt")
	if err := os.WriteFile(nonEmptyPath, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsNonEmpty(nonEmptyPath) {
		t.Error("IsNonEmpty returned false for non-empty file")
	}
}

func TestCopyFile(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.h")
	dst := filepath.Join(tmpDir, "dst.h")
	if err := os.WriteFile(src, []byte("#define X 1\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	same, err := SameContent(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("copied content differs")
	}
	if IsSymlink(dst) {
		t.Error("copy is a symlink")
	}

	if err := CopyFile(filepath.Join(tmpDir, "missing.h"), dst); err == nil {
		t.Error("CopyFile of a missing source should fail")
	}
}

func TestSameContent(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name string, data []byte) string {
		t.Helper()
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	big := make([]byte, 3*compareChunk+17)
	for i := range big {
		big[i] = byte(i)
	}
	bigCopy := append([]byte(nil), big...)
	bigDiff := append([]byte(nil), big...)
	bigDiff[2*compareChunk+3] ^= 0xff

	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"equal_small", []byte("abc"), []byte("abc"), true},
		{"different_small", []byte("abc"), []byte("abd"), false},
		{"different_size", []byte("abc"), []byte("abcd"), false},
		{"empty", nil, nil, true},
		{"equal_large", big, bigCopy, true},
		{"different_large", big, bigDiff, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := write(tt.name+".a", tt.a)
			b := write(tt.name+".b", tt.b)
			got, err := SameContent(a, b)
			if err != nil {
				t.Fatalf("SameContent: %v", err)
			}
			if got != tt.want {
				t.Errorf("SameContent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameContentFollowsSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "target")
	if err := os.WriteFile(target, []byte("shared"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(tmpDir, "link")
	if err := os.Symlink("target", link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if !IsSymlink(link) {
		t.Error("IsSymlink returned false for a symlink")
	}
	same, err := SameContent(link, target)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("symlink content differs from target")
	}
}

func TestWriteTmpThenMove(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "output.txt")

	content := []byte("test content")
	err := WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		return os.WriteFile(tmpPath, content, 0o644)
	})
	if err != nil {
		t.Fatalf("WriteTmpThenMove failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Content mismatch: got %q, want %q", got, content)
	}

	if Exists(filepath.Join(tmpDir, "output.txt.tmp")) {
		t.Error("Tmp file still exists after successful write")
	}
}

func TestWriteTmpThenMoveError(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "output.txt")

	err := WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		return os.ErrPermission
	})
	if err == nil {
		t.Error("WriteTmpThenMove should have failed")
	}
	if Exists(filepath.Join(tmpDir, "output.txt.tmp")) {
		t.Error("Tmp file exists after failed write")
	}
	if Exists(outPath) {
		t.Error("Output file exists after failed write")
	}
}

func TestRemoveAllIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := RemoveAll(dir); err != nil {
		t.Fatalf("first RemoveAll: %v", err)
	}
	if Exists(dir) {
		t.Error("directory still exists")
	}
	if err := RemoveAll(dir); err != nil {
		t.Errorf("second RemoveAll: %v", err)
	}
	if err := RemoveAll(""); err != nil {
		t.Errorf("RemoveAll(\"\"): %v", err)
	}
}
